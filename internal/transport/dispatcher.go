// Package transport sends resolved API requests to the Devino backend and
// retries failures under the episode deadline.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/devinotele/pushsdk-go/internal/api"
	"github.com/devinotele/pushsdk-go/internal/common"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devino_sdk_requests_total",
		Help: "Total API requests sent, by operation and outcome",
	}, []string{"operation", "outcome"})
	retriesScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devino_sdk_retries_scheduled_total",
		Help: "Total retry attempts scheduled",
	})
	retryAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devino_sdk_retry_abandoned_total",
		Help: "Total retry episodes abandoned at the retry window",
	})
)

// Config is the wire configuration resolved at dispatch time, so host
// changes apply to subsequent requests without rebuilding the dispatcher.
type Config struct {
	Scheme string // defaults to https
	Host   string
	Port   int
	APIKey string
}

// apiPrefix is the fixed versioned prefix in front of every operation path.
const apiPrefix = "/v1/"

// Completion receives the terminal outcome of a single send attempt. A nil
// Completion is valid and common for fire-and-forget tracking calls; its
// absence never changes retry behavior.
type Completion func(status int, body []byte, err error)

// Dispatcher turns resolved requests into HTTP calls. Sends are
// asynchronous; failures enroll with the retry coordinator under a
// correlation id assigned at first dispatch.
type Dispatcher struct {
	client *http.Client
	config func() (Config, bool)
	retry  *Coordinator
	logger zerolog.Logger
	tracer trace.Tracer
}

func NewDispatcher(client *http.Client, config func() (Config, bool), retry *Coordinator, logger zerolog.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Dispatcher{
		client: client,
		config: config,
		retry:  retry,
		logger: logger.With().Str("component", "dispatcher").Logger(),
		tracer: otel.Tracer("devino-sdk"),
	}
}

// Send dispatches req asynchronously. Transport errors and statuses above
// 299 are handed to the retry coordinator with the same frozen request;
// anything at or below 299 is terminal success.
func (d *Dispatcher) Send(req api.Request) {
	d.SendWithCompletion(req, nil)
}

// SendWithCompletion is Send with an optional listener for the raw outcome
// of each attempt.
func (d *Dispatcher) SendWithCompletion(req api.Request, done Completion) {
	httpReq, err := d.build(req)
	if err != nil {
		d.logger.Error().Err(err).Str("operation", req.Operation).Msg("request build failed")
		if done != nil {
			done(0, nil, err)
		}
		return
	}
	id := uuid.NewString()
	go d.attempt(id, req.Operation, httpReq, done)
}

// Do performs req synchronously without retry enrollment, for one-shot
// queries whose result the caller consumes directly.
func (d *Dispatcher) Do(ctx context.Context, req api.Request) (int, []byte, error) {
	httpReq, err := d.build(req)
	if err != nil {
		return 0, nil, err
	}
	resp, err := d.client.Do(httpReq.clone(ctx))
	if err != nil {
		requestsTotal.WithLabelValues(req.Operation, "error").Inc()
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	requestsTotal.WithLabelValues(req.Operation, strconv.Itoa(resp.StatusCode)).Inc()
	return resp.StatusCode, body, nil
}

// frozenRequest is the immutable material of an outgoing call. Retries
// replay exactly these bytes against exactly this URL, even if the host
// setting changes mid-episode.
type frozenRequest struct {
	method string
	url    string
	body   []byte
	apiKey string
}

func (f *frozenRequest) clone(ctx context.Context) *http.Request {
	var rd io.Reader
	if f.body != nil {
		rd = bytes.NewReader(f.body)
	}
	req, _ := http.NewRequestWithContext(ctx, f.method, f.url, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", f.apiKey)
	return req
}

func (d *Dispatcher) build(req api.Request) (*frozenRequest, error) {
	cfg, ok := d.config()
	if !ok {
		return nil, fmt.Errorf("dispatcher: not activated")
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   cfg.Host,
		Path:   apiPrefix + req.Path,
	}
	if cfg.Port != 0 {
		u.Host = cfg.Host + ":" + strconv.Itoa(cfg.Port)
	}
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", req.Operation, err)
		}
	}
	return &frozenRequest{
		method: req.Method,
		url:    u.String(),
		body:   body,
		apiKey: cfg.APIKey,
	}, nil
}

// attempt performs one send and classifies the outcome. Each attempt gets
// its own span; the correlation id ties the attempts of one request
// together across the retry schedule.
func (d *Dispatcher) attempt(id, operation string, req *frozenRequest, done Completion) {
	ctx, span := d.tracer.Start(context.Background(), "devino.dispatch")
	span.SetAttributes(
		attribute.String("devino.operation", operation),
		attribute.String("devino.request_id", id),
	)
	defer span.End()

	logger := common.WithContext(ctx, d.logger.With().Str("operation", operation).Str("request_id", id).Logger())

	resp, err := d.client.Do(req.clone(ctx))
	if err != nil {
		span.RecordError(err)
		requestsTotal.WithLabelValues(operation, "error").Inc()
		logger.Warn().Err(err).Msg("transport failure")
		if done != nil {
			done(0, nil, err)
		}
		d.retry.Fail(id, func() { d.attempt(id, operation, req, done) })
		return
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	requestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()
	if readErr == nil && len(body) > 0 {
		logger.Debug().Int("status", resp.StatusCode).Str("body", string(body)).Msg("response")
	} else {
		logger.Debug().Int("status", resp.StatusCode).Msg("response without readable body")
	}

	if done != nil {
		done(resp.StatusCode, body, nil)
	}

	if resp.StatusCode > 299 {
		span.RecordError(fmt.Errorf("status %d", resp.StatusCode))
		logger.Warn().Int("status", resp.StatusCode).Msg("server rejected request")
		d.retry.Fail(id, func() { d.attempt(id, operation, req, done) })
		return
	}
	d.retry.Resolve(id)
}
