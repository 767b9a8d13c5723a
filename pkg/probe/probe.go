// Package probe performs the outbound GET requests behind the URL test endpoints.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	MIMEJSON = "application/json"
	MIMEXML  = "application/xml"
)

var ErrInvalidScheme = errors.New("url must start with http:// or https://")

// StatusError is returned when the target answered with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ContentTypeError reports a response whose declared content type lacks the expected token.
type ContentTypeError struct {
	Expected string
	Received string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("unexpected content type: want %q, got %q", e.Expected, e.Received)
}

// Result describes a completed outbound call.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Elapsed     time.Duration
}

// PayloadSize is the body length in bytes.
func (r Result) PayloadSize() int {
	return len(r.Body)
}

// CheckContentType returns a *ContentTypeError unless the declared content type contains expected.
func (r Result) CheckContentType(expected string) error {
	if strings.Contains(strings.ToLower(r.ContentType), expected) {
		return nil
	}
	return &ContentTypeError{Expected: expected, Received: r.ContentType}
}

type Client struct {
	http *http.Client
}

// New returns a Client whose requests are bounded by timeout.
func New(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// ValidateURL rejects anything that does not start with http:// or https://.
func ValidateURL(url string) error {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return nil
	}
	return ErrInvalidScheme
}

// Fetch performs a blocking GET on url and reads the whole body.
// Elapsed is measured up to the failure when an error is returned.
// A non-2xx answer is reported as a *StatusError.
func (c *Client) Fetch(ctx context.Context, url string) (Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Elapsed: time.Since(start)}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Elapsed: time.Since(start)}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Elapsed: time.Since(start)}, err
	}

	res := Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Elapsed:     time.Since(start),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Elapsed: res.Elapsed}, &StatusError{StatusCode: resp.StatusCode}
	}

	return res, nil
}
