package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fableloom/fableloom/store"
)

// Message is a role/content pair as sent over the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a streaming chat completion request.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Stream      bool      `json:"stream"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// Completer drives one streaming exchange with a provider, invoking onDelta
// for every text fragment in decode order and returning the accumulated text.
// It is the pluggable seam for regeneration strategies and tests.
type Completer interface {
	StreamCompletion(ctx context.Context, provider *store.Provider, request *CompletionRequest, onDelta func(delta string)) (string, error)
}

// httpCompleter talks to an OpenAI-compatible `/chat/completions` endpoint.
type httpCompleter struct {
	client *http.Client
}

func newHTTPCompleter() *httpCompleter {
	return &httpCompleter{client: &http.Client{Timeout: 5 * time.Minute}}
}

func (c *httpCompleter) StreamCompletion(ctx context.Context, provider *store.Provider, request *CompletionRequest, onDelta func(delta string)) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", errors.Wrap(err, "marshaling request")
	}

	endpoint := strings.TrimRight(provider.BaseURL, "/") + "/chat/completions"
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+provider.APIKey)

	response, err := c.client.Do(httpRequest)
	if err != nil {
		return "", errors.Wrapf(ErrUpstream, "sending request: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", errors.Wrapf(ErrUpstream, "status %s", response.Status)
	}

	decoder := &streamDecoder{}
	chunk := make([]byte, 4096)
	for !decoder.finished() {
		n, readErr := response.Body.Read(chunk)
		if n > 0 {
			for _, delta := range decoder.feed(chunk[:n]) {
				onDelta(delta)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return "", errors.Wrap(ctx.Err(), "streaming response")
			}
			return "", errors.Wrapf(ErrUpstream, "reading response: %v", readErr)
		}
	}

	return decoder.accumulated(), nil
}

var _ Completer = (*httpCompleter)(nil)

// IsLoopbackURL reports whether a raw URL points at the local machine. Used
// to gate network egress in local-only mode.
func IsLoopbackURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
