// Package maps talks to the Google Places API (v1) for delivery address entry.
package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"
	defaultTimeout = 10 * time.Second
	errorBodyLimit = 1 << 10
)

var errAPIKeyRequired = errors.New("google maps api key is required")

type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	regions  []string
	language string
	limiter  *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if u := strings.TrimRight(strings.TrimSpace(baseURL), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithDefaults biases autocomplete towards the delivery regions and language
// when the caller does not pick its own.
func WithDefaults(regionCodes []string, language string) Option {
	return func(c *Client) {
		for _, code := range regionCodes {
			if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
				c.regions = append(c.regions, code)
			}
		}
		c.language = strings.TrimSpace(language)
	}
}

// WithRateLimit caps outbound calls so one chatty address form cannot burn
// the project's Places quota. rps <= 0 leaves calls unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	c := &Client{apiKey: apiKey, baseURL: defaultBaseURL, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends one Places call. A 404 means the caller passed a place that does
// not exist, so it is reported as a validation error.
func (c *Client) do(ctx context.Context, op, method, path, fieldMask string, in, out any) (err error) {
	ctx, span := tracing.Start(ctx, "maps."+op, attribute.String("http.method", method))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" throttled")
		}
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode "+op+" request")
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+op+" request")
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" request")
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, upstream(resp), "unknown place")
	case resp.StatusCode != http.StatusOK:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, upstream(resp), op+" request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return nil
}

func upstream(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
