package grpc_control

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"market-dashboard/src/config"
	"market-dashboard/src/configstore"
	"market-dashboard/src/dashboard"
	datasource "market-dashboard/src/data_source"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"
	"market-dashboard/src/utils"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type stubQuotes struct{}

func (stubQuotes) Name() string { return "stub" }

func (stubQuotes) FetchBatch(_ context.Context, symbols []string, _ bool) []models.MStockSnapshot {
	out := make([]models.MStockSnapshot, len(symbols))
	for i, sym := range symbols {
		out[i] = models.MStockSnapshot{Symbol: sym, Name: sym}
	}
	return out
}

type stubWeather struct{}

func (stubWeather) FetchWeather(_ context.Context, location string) models.MWeather {
	return models.MWeather{Location: location}
}

type recordingSink struct {
	msgs chan models.MMessage
}

func (r *recordingSink) Send(msg models.MMessage) error {
	select {
	case r.msgs <- msg:
	default:
	}
	return nil
}

func newTestControl(t *testing.T) (*ControlClient, *dashboard.Dashboard) {
	t.Helper()
	log := logger.NewNop("grpc-test")
	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC))

	cfg := config.Defaults()
	cfg.Dashboard.ConfigFile = filepath.Join(t.TempDir(), "config.json")
	cal, err := utils.NewTradingCalendar("America/New_York", 570, 960)
	require.NoError(t, err)
	source := datasource.NewDashboardSource(stubQuotes{}, stubWeather{}, utils.NewMarketScheduler(cal, 5*time.Minute), clock, log)
	dash := dashboard.New(cfg, configstore.NewStore(cfg.Dashboard.ConfigFile, log), source, clock, log)
	t.Cleanup(dash.Stop)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterControlServer(srv, NewControlService(dash, log))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewControlClient(conn), dash
}

func TestControl_GetStatus(t *testing.T) {
	client, dash := newTestControl(t)
	dash.Connect(&recordingSink{msgs: make(chan models.MMessage, 8)})

	st, err := client.GetStatus(context.Background())
	require.NoError(t, err)

	statusModel, err := FromStruct[models.MStatus](st)
	require.NoError(t, err)
	assert.Equal(t, "ok", statusModel.Status)
	assert.Equal(t, 1, statusModel.Connections)
	assert.True(t, statusModel.MarketStatus.IsOpen)
}

func TestControl_ForceRefreshAndReload(t *testing.T) {
	client, dash := newTestControl(t)
	sink := &recordingSink{msgs: make(chan models.MMessage, 8)}
	dash.Connect(sink)

	n, err := client.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, client.ReloadConfig(context.Background()))
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-sink.msgs:
			if msg.Type == models.MessageConfigChanged {
				return
			}
		case <-deadline:
			t.Fatal("no configChanged after ReloadConfig")
		}
	}
}

func TestControl_UpdateTickers(t *testing.T) {
	client, dash := newTestControl(t)

	st, err := client.UpdateTickers(context.Background(), []string{"nvda", "AMD"})
	require.NoError(t, err)
	saved, err := FromStruct[models.MDashboardConfig](st)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "AMD"}, saved.Tickers)
	assert.Equal(t, []string{"NVDA", "AMD"}, dash.CurrentConfig(context.Background()).Tickers)

	_, err = client.UpdateTickers(context.Background(), []string{"AAPL", " "})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
