package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"order-service/internal/logger"
	"order-service/internal/metrics"

	"go.uber.org/zap"
)

const (
	callFetchProduct      = "fetch_product"
	callCheckAvailability = "check_availability"

	maxResponseBytes = 1 << 20
)

// Client looks products up in the remote catalog. It never returns transport
// faults: every failure resolves to not found or unavailable, and the caller
// decides what that means for its workflow.
type Client interface {
	FetchProduct(ctx context.Context, productID int64) (*Snapshot, bool)
	CheckAvailability(ctx context.Context, productID int64, quantity int) bool
}

type httpClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

type Option func(*httpClient)

// WithHTTPClient replaces the underlying client, e.g. to share a transport.
func WithHTTPClient(c *http.Client) Option {
	return func(h *httpClient) { h.httpClient = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *httpClient) { h.metrics = m }
}

// ----------------- Constructor -----------------

// NewHTTPClient targets a catalog whose product routes live under baseURL,
// e.g. "http://product-service:8082/api".
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) Client {
	if baseURL == "" {
		logger.L().Warn("product service URL is empty")
	}

	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ----------------- FetchProduct -----------------

func (c *httpClient) FetchProduct(ctx context.Context, productID int64) (*Snapshot, bool) {
	endpoint := c.baseURL + "/products/" + strconv.FormatInt(productID, 10)

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "client"),
		zap.String("method", "FetchProduct"),
		zap.Int64("product_id", productID),
	)

	env, err := c.getEnvelope(ctx, endpoint)
	if err != nil {
		c.record(callFetchProduct, outcomeOf(err))
		log.Error("product lookup failed", zap.String("url", endpoint), zap.Error(err))
		return nil, false
	}

	data, err := decodePayload(env.Data)
	if err != nil {
		c.record(callFetchProduct, outcomeOf(err))
		log.Warn("product payload unusable", zap.Error(err))
		return nil, false
	}

	snapshot, err := snapshotFromPayload(data)
	if err != nil {
		c.record(callFetchProduct, outcomeOf(err))
		log.Warn("product payload unusable", zap.Error(err))
		return nil, false
	}

	c.record(callFetchProduct, "found")
	log.Debug("product fetched",
		zap.String("name", snapshot.Name),
		zap.Bool("active", snapshot.Active),
		zap.Bool("has_price", snapshot.Price.Valid),
	)
	return snapshot, true
}

// ----------------- CheckAvailability -----------------

func (c *httpClient) CheckAvailability(ctx context.Context, productID int64, quantity int) bool {
	q := url.Values{}
	q.Set("quantity", strconv.Itoa(quantity))
	endpoint := fmt.Sprintf("%s/products/%d/availability?%s", c.baseURL, productID, q.Encode())

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "client"),
		zap.String("method", "CheckAvailability"),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)

	env, err := c.getEnvelope(ctx, endpoint)
	if err != nil {
		c.record(callCheckAvailability, outcomeOf(err))
		log.Error("availability check failed", zap.String("url", endpoint), zap.Error(err))
		return false
	}

	data, err := decodePayload(env.Data)
	if err != nil {
		c.record(callCheckAvailability, outcomeOf(err))
		log.Warn("availability payload unusable", zap.Error(err))
		return false
	}

	available := boolField(data)
	if available {
		c.record(callCheckAvailability, "available")
	} else {
		c.record(callCheckAvailability, "unavailable")
	}
	return available
}

// getEnvelope performs the GET and returns a successful envelope, or an error
// describing why there is none.
func (c *httpClient) getEnvelope(ctx context.Context, endpoint string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqID := logger.RequestIDFrom(ctx); reqID != "" {
		req.Header.Set(logger.RequestIDHeader, reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", errUpstreamStatus, resp.StatusCode)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errEnvelopeMalformed, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", errEnvelopeNotSuccess, env.Message)
	}

	return &env, nil
}

func (c *httpClient) record(call, outcome string) {
	c.metrics.CatalogLookup(call, outcome)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, errUpstreamStatus):
		return "bad_status"
	case errors.Is(err, errEnvelopeMalformed):
		return "malformed"
	case errors.Is(err, errEnvelopeNotSuccess), errors.Is(err, errPayloadMissing), errors.Is(err, errPayloadNotObject):
		return "not_found"
	default:
		return "transport_error"
	}
}
