// Package foundry talks to the status endpoint of a Foundry VTT server.
package foundry

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/opmon"
	"github.com/pkg/errors"
)

const statusPath = "/api/status"

// maxStatusBodySize bounds how much of a status response is read
const maxStatusBodySize = 1 << 20

// StatusError is returned when the status can not be fetched or understood
type StatusError struct {
	URL        string
	StatusCode int // 0 if no response was received
	Err        error
}

func (e *StatusError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("foundry status %s: http %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("foundry status %s: %v", e.URL, e.Err)
}

// Cause returns the underlying error
func (e *StatusError) Cause() error {
	return e.Err
}

// StatusGetter is anything that can read the current Foundry status
type StatusGetter interface {
	GetStatus(ctx context.Context) (Status, error)
}

// Client reads the Foundry status over HTTP. It keeps no state between
// calls and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a status client for the server at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = consts.STATUS_REQUEST_TIMEOUT
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server url
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetStatus performs exactly one status round trip, without retries
func (c *Client) GetStatus(ctx context.Context) (status Status, err error) {
	op := opmon.StartOperation("foundry.status")
	defer func() {
		if err != nil {
			op.Fail(consts.STATUS_WARN_THRESHOLD)
		} else {
			op.Finish(consts.STATUS_WARN_THRESHOLD)
		}
	}()

	url := c.baseURL + statusPath
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return Status{}, &StatusError{URL: url, Err: err}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, &StatusError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxStatusBodySize))
	if err != nil {
		return Status{}, &StatusError{URL: url, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read body")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Status{}, &StatusError{URL: url, StatusCode: resp.StatusCode, Err: errors.Errorf("unexpected status %s", resp.Status)}
	}

	status, err = ParseStatus(body)
	if err != nil {
		return Status{}, &StatusError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	return status, nil
}
