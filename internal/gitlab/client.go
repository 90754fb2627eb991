// Package gitlab wraps the GitLab API v4 generic package registry: upload,
// list and download. Requests go through gitlab.com/gitlab-org/api/client-go;
// this package adds exact-name filtering, atomic downloads and the mapping
// of API failures onto the CLI's error categories.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/version"
)

// TokenHeader carries the personal access token.
const TokenHeader = "PRIVATE-TOKEN"

// Client talks to one GitLab instance.
type Client struct {
	api     *gl.Client
	baseURL *url.URL
}

type clientOptions struct {
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// NewClient creates a client for host. A host without a scheme gets https.
// Requests are never retried.
func NewClient(host, token string, opts ...Option) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("%w: gitlab host is empty", oerrors.ErrValidation)
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid gitlab host %q", oerrors.ErrValidation, host)
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	apiOpts := []gl.ClientOptionFunc{
		gl.WithBaseURL(u.String()),
		gl.WithoutRetries(),
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, gl.WithHTTPClient(o.httpClient))
	}
	api, err := gl.NewClient(token, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating gitlab client for %s: %w", oerrors.ErrValidation, u.Redacted(), err)
	}
	api.UserAgent = "glabu/" + version.Version

	return &Client{api: api, baseURL: u}, nil
}

// Host returns the base URL of the instance.
func (c *Client) Host() string { return c.baseURL.String() }

// APIError is a non-success response from the GitLab API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap maps the status onto the CLI's error categories.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return oerrors.ErrPermission
	case http.StatusNotFound:
		return oerrors.ErrNotFound
	case http.StatusConflict:
		return oerrors.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return oerrors.ErrValidation
	default:
		return nil
	}
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// translate turns a client-go failure into an *APIError when the server
// answered, or a connectivity error when it did not.
func translate(resp *gl.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp != nil && resp.Response != nil && resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if req := resp.Request; req != nil {
			apiErr.Method = req.Method
			apiErr.URL = req.URL.Redacted()
		}
		var errResp *gl.ErrorResponse
		if errors.As(err, &errResp) {
			apiErr.Message = apiMessage(errResp.Body)
		}
		return apiErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", oerrors.ErrConnectivity, err)
}

// apiMessage extracts GitLab's {"message": ...} or {"error": ...} body.
func apiMessage(body []byte) string {
	var payload struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch m := payload.Message.(type) {
		case string:
			return m
		case nil:
		default:
			if b, err := json.Marshal(m); err == nil {
				return string(b)
			}
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
