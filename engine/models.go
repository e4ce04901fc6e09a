package engine

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/fableloom/fableloom/store"
)

// FetchModels lists the model ids a provider offers. The same local-only
// gates as a turn apply before any network call.
func FetchModels(ctx context.Context, provider *store.Provider, fullLocalMode bool) ([]string, error) {
	if provider.FullLocalOnly && !IsLoopbackURL(provider.BaseURL) {
		return nil, errors.Wrap(ErrPolicyViolation, "provider is local-only but base URL is not loopback")
	}
	if fullLocalMode && !IsLoopbackURL(provider.BaseURL) {
		return nil, errors.Wrap(ErrPolicyViolation, "full local mode blocks non-loopback provider")
	}

	endpoint := strings.TrimRight(provider.BaseURL, "/") + "/models"
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	request.Header.Set("Authorization", "Bearer "+provider.APIKey)

	client := &http.Client{Timeout: 30 * time.Second}
	response, err := client.Do(request)
	if err != nil {
		return nil, errors.Wrapf(ErrUpstream, "sending request: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, errors.Wrapf(ErrUpstream, "status %s", response.Status)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrUpstream, "reading response: %v", err)
	}

	var models []string
	for _, item := range gjson.GetBytes(body, "data").Array() {
		if id := item.Get("id").String(); id != "" {
			models = append(models, id)
		}
	}
	return models, nil
}

// TestConnection reports whether a provider passes the local-only gates.
func TestConnection(provider *store.Provider, fullLocalMode bool) bool {
	if provider.FullLocalOnly && !IsLoopbackURL(provider.BaseURL) {
		return false
	}
	if fullLocalMode && !IsLoopbackURL(provider.BaseURL) {
		return false
	}
	return true
}
