// Package authclient is the HTTP binding for the remote auth service: login,
// logout, refresh, register, and profile endpoints. It reads the current access
// token from the token store for outbound header injection but never writes it.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// TokenReader supplies the current access token for header injection. The
// session manager's token store satisfies this.
type TokenReader interface {
	AccessToken() string
}

// Client issues requests against the auth service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenReader
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (primarily for tests and
// custom transports).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a Client for the auth service at baseURL. The tokens reader is
// consulted on every request; when it holds a token, an Authorization bearer
// header is attached, otherwise no such header is sent.
func New(baseURL string, tokens TokenReader, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[New] baseURL is required")
	}
	if tokens == nil {
		return nil, errors.New("[New] tokens reader is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// do issues a single request and decodes the (possibly enveloped) response
// into out. overrideToken, when non-empty, replaces the token store's value
// for this request only.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out interface{}, overrideToken string) error {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return errors.Wrapf(err, "[do] marshaling request body for %s %s", method, path)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return errors.Wrapf(err, "[do] creating request %s %s", method, path)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token := overrideToken
	if token == "" {
		token = c.tokens.AccessToken()
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[do] invoking %s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "[do] reading response body")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newServiceError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := unwrap(respBody, out); err != nil {
		return errors.Wrapf(err, "[do] unmarshaling response from %s %s", method, path)
	}
	return nil
}
