// Package backendtest runs an in-process stand-in for the Devino backend so
// client behavior can be exercised end to end without the real service.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Recorded is one request the fake backend received.
type Recorded struct {
	Operation string
	Method    string
	Path      string
	Token     string
	Query     url.Values
	Body      map[string]any
	Batch     []map[string]any
}

// Backend records every SDK call and answers with configurable results.
type Backend struct {
	srv *httptest.Server

	mu         sync.Mutex
	requests   []Recorded
	status     int
	subscribed bool
	rawStatus  string
}

func New() *Backend {
	b := &Backend{status: http.StatusOK}

	r := chi.NewRouter()
	r.Put("/v1/sdk/users/{token}/data", b.record("users-data"))
	r.Post("/v1/sdk/users/{token}/app-start", b.record("app-start"))
	r.Post("/v1/sdk/users/{token}/event", b.record("custom-event"))
	r.Post("/v1/sdk/users/{token}/subscription", b.record("subscription"))
	r.Get("/v1/sdk/users/{token}/subscription/status", b.subscriptionStatus)
	r.Post("/v1/sdk/users/{token}/geo", b.record("geo"))
	r.Post("/v1/sdk/messages/events", b.record("push-event"))
	r.Post("/v1/api/messages", b.record("send-message"))

	b.srv = httptest.NewServer(r)
	return b
}

func (b *Backend) Close() { b.srv.Close() }

// Host returns the host:port the client should be pointed at.
func (b *Backend) Host() string {
	return strings.TrimPrefix(b.srv.URL, "http://")
}

func (b *Backend) Client() *http.Client { return b.srv.Client() }

// SetStatus makes subsequent calls answer with the given HTTP status.
func (b *Backend) SetStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// SetSubscribed sets the answer of the subscription-status endpoint.
func (b *Backend) SetSubscribed(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed = v
}

// SetSubscriptionRaw makes the subscription-status endpoint answer with a
// verbatim body instead of the JSON result.
func (b *Backend) SetSubscriptionRaw(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rawStatus = body
}

// Requests returns a copy of everything recorded so far.
func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Recorded, len(b.requests))
	copy(out, b.requests)
	return out
}

// RequestsFor filters recorded requests by operation.
func (b *Backend) RequestsFor(operation string) []Recorded {
	var out []Recorded
	for _, r := range b.Requests() {
		if r.Operation == operation {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) record(operation string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := Recorded{
			Operation: operation,
			Method:    r.Method,
			Path:      r.URL.Path,
			Token:     chi.URLParam(r, "token"),
			Query:     r.URL.Query(),
		}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			if json.Unmarshal(data, &rec.Body) != nil {
				_ = json.Unmarshal(data, &rec.Batch)
			}
		}
		b.mu.Lock()
		b.requests = append(b.requests, rec)
		status := b.status
		b.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (b *Backend) subscriptionStatus(w http.ResponseWriter, r *http.Request) {
	rec := Recorded{
		Operation: "subscription-status",
		Method:    r.Method,
		Path:      r.URL.Path,
		Token:     chi.URLParam(r, "token"),
		Query:     r.URL.Query(),
	}
	b.mu.Lock()
	b.requests = append(b.requests, rec)
	status := b.status
	subscribed := b.subscribed
	raw := b.rawStatus
	b.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	if raw != "" {
		_, _ = w.Write([]byte(raw))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": subscribed})
}
