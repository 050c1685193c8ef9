package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"market-dashboard/src/logger"
	"market-dashboard/src/models"

	"github.com/sony/gobreaker"
)

// maxBodyBytes caps provider responses.
const maxBodyBytes = 4 << 20

// ErrRequestAborted wraps failures caused by the caller's context ending.
// They are returned to the caller but never count against the breaker.
var ErrRequestAborted = errors.New("request aborted by caller")

// -----------------------------------------------------------------------------

// AsyncNetworkManager performs provider requests behind a circuit breaker.
// Transport failures and 5xx responses count as failures; 4xx responses are
// returned to the caller untouched because providers use them to signal
// "not available on this plan".
type AsyncNetworkManager struct {
	Config  *models.MConfig
	Client  *http.Client
	Logger  *logger.Logger
	breaker *gobreaker.CircuitBreaker
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, name string, log *logger.Logger) *AsyncNetworkManager {
	nm := &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
	}
	nm.Client = nm.createClient()

	failures := uint32(cfg.Network.BreakerFailures)
	nm.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     time.Duration(cfg.Network.BreakerCooldown) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRequestAborted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warning("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.Config.Network.Proxy != "" {
		proxyURL, err := url.Parse(nm.Config.Network.Proxy)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			nm.Logger.Warning("Ignoring invalid proxy %q: %v", nm.Config.Network.Proxy, err)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with query parameters and extra headers.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string, headers map[string]string) (*models.MHTTPResponse, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl.String(), nil)
	if err != nil {
		return nil, err
	}
	return nm.do(req, headers)
}

// -----------------------------------------------------------------------------

// PostForm performs a form-encoded POST request.
func (nm *AsyncNetworkManager) PostForm(ctx context.Context, urlStr string, form url.Values, headers map[string]string) (*models.MHTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return nm.do(req, headers)
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(req *http.Request, headers map[string]string) (*models.MHTTPResponse, error) {
	if nm.Config.Network.UserAgent != "" {
		req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	var clientResp *models.MHTTPResponse
	_, err := nm.breaker.Execute(func() (interface{}, error) {
		resp, err := nm.Client.Do(req)
		if err != nil {
			return nil, aborted(req, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, aborted(req, err)
		}

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
		}

		clientResp = &models.MHTTPResponse{StatusCode: resp.StatusCode, Body: body}
		return nil, nil
	})
	if err != nil {
		nm.Logger.Debug("Request %s %s failed: %v", req.Method, req.URL.Host+req.URL.Path, err)
		return nil, err
	}
	return clientResp, nil
}

// -----------------------------------------------------------------------------

// aborted marks err as the caller's doing when the request context has ended.
// The client's own timeout is not a request context and still counts.
func aborted(req *http.Request, err error) error {
	if req.Context().Err() != nil {
		return fmt.Errorf("%w: %w", ErrRequestAborted, err)
	}
	return err
}

// -----------------------------------------------------------------------------

// State exposes the breaker state for health reporting.
func (nm *AsyncNetworkManager) State() string {
	return nm.breaker.State().String()
}
