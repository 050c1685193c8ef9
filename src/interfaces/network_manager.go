package interfaces

import (
	"context"
	"net/url"

	"market-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for provider HTTP requests.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with parameters.
	// A non-nil response is returned for every status below 500.
	Get(ctx context.Context, url string, params map[string]string, headers map[string]string) (*models.MHTTPResponse, error)

	// -----------------------------------------------------------------------------

	// PostForm performs a form-encoded POST request.
	PostForm(ctx context.Context, url string, form url.Values, headers map[string]string) (*models.MHTTPResponse, error)
}
