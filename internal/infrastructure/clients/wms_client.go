package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/sorter-station-service/pkg/logging"
	"github.com/wms-platform/sorter-station-service/pkg/metrics"
	"github.com/wms-platform/sorter-station-service/pkg/resilience"
	"github.com/wms-platform/sorter-station-service/pkg/tracing"
)

// Sorter API headers
const (
	HeaderAPIKey    = "x-wms-api-key"
	HeaderStationID = "x-wms-sorter-station-id"
	HeaderCenterID  = "x-wms-sorter-center-id"
)

// Config holds the WMS API settings
type Config struct {
	BaseURL              string
	APIKey               string
	CenterID             string
	SnapshotPath         string
	ContainerPagePath    string
	FeedbackPath         string
	ContainerPage        int
	MaxContainerPageSize int
	Timeout              time.Duration
}

// WMSClient talks to the WMS GraphQL and sorter feedback APIs. Queries and
// feedback run behind separate circuit breakers.
type WMSClient struct {
	config     Config
	httpClient *http.Client
	queries    *resilience.CircuitBreaker
	feedback   *resilience.CircuitBreaker
	validator  *SnapshotValidator
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewWMSClient creates a new WMS API client. m may be nil.
func NewWMSClient(config Config, m *metrics.Metrics, logger *logging.Logger) (*WMSClient, error) {
	validator, err := NewSnapshotValidator()
	if err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	c := &WMSClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		validator:  validator,
		metrics:    m,
		logger:     logger.WithComponent("wms-client"),
		tracer:     otel.Tracer("wms-client"),
	}
	c.queries = c.newBreaker("wms-graphql")
	c.feedback = c.newBreaker("wms-sorter-feedback")
	return c, nil
}

func (c *WMSClient) newBreaker(name string) *resilience.CircuitBreaker {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.OnStateChange = func(name string, _, to gobreaker.State) {
		if c.metrics == nil {
			return
		}
		c.metrics.SetCircuitBreakerState(name, int(to))
		if to == gobreaker.StateOpen {
			c.metrics.RecordCircuitBreakerTrip(name)
		}
	}
	return resilience.NewCircuitBreaker(cfg, c.logger.Logger)
}

// upstreamResponse is a completed HTTP exchange
type upstreamResponse struct {
	status int
	body   []byte
}

// post sends body as JSON to path through breaker. Transport errors and
// 5xx responses count against the breaker; anything else is returned for
// the caller to interpret.
func (c *WMSClient) post(ctx context.Context, breaker *resilience.CircuitBreaker, endpoint, path string, headers map[string]string, body any) (*upstreamResponse, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "wms."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.UpstreamSpanAttributes(endpoint, headers[HeaderStationID])...),
	)
	defer span.End()

	result, err := breaker.Execute(ctx, func() (interface{}, error) {
		return c.do(ctx, path, headers, body)
	})

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(endpoint, err == nil, duration)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WithContext(ctx).WithError(err).Warn("WMS request failed",
			"endpoint", endpoint,
			"duration_ms", duration.Milliseconds(),
		)
		return nil, err
	}

	resp := result.(*upstreamResponse)
	span.SetAttributes(attribute.Int("http.status_code", resp.status))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (c *WMSClient) do(ctx context.Context, path string, headers map[string]string, body any) (*upstreamResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return &upstreamResponse{status: resp.StatusCode, body: data}, nil
}
