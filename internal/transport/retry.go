package transport

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// retryWindow bounds a failure episode: once any request's next attempt
// would land past this window from the episode's first failure, every
// pending retry is abandoned.
const retryWindow = 24 * time.Hour

// stepBackOff is the Devino retry schedule: three quick retries a minute
// apart, then hourly.
type stepBackOff struct {
	n int
}

var _ backoff.BackOff = (*stepBackOff)(nil)

func (b *stepBackOff) NextBackOff() time.Duration {
	b.n++
	if b.n <= 3 {
		return time.Minute
	}
	return time.Hour
}

func (b *stepBackOff) Reset() { b.n = 0 }

type retryEntry struct {
	attempts int
	policy   backoff.BackOff
	timer    Timer
}

// Coordinator owns all retry bookkeeping: per-request attempt counts keyed
// by correlation id and the single episode deadline. Callers enroll a
// failed request with Fail and clear it with Resolve on eventual success.
// All state is in memory; a process restart forgets pending retries.
type Coordinator struct {
	clock  Clock
	logger zerolog.Logger

	mu       sync.Mutex
	pending  map[string]*retryEntry
	deadline time.Time
	stopped  bool
}

func NewCoordinator(clock Clock, logger zerolog.Logger) *Coordinator {
	if clock == nil {
		clock = SystemClock()
	}
	return &Coordinator{
		clock:   clock,
		logger:  logger.With().Str("component", "retry").Logger(),
		pending: make(map[string]*retryEntry),
	}
}

// Fail records a failed attempt for the request identified by id and
// schedules resend after the policy delay. The episode deadline is set on
// the first failure only. When the next attempt would land past the
// deadline, the whole episode is abandoned: every pending entry is dropped,
// not just this one.
func (c *Coordinator) Fail(id string, resend func()) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	e, ok := c.pending[id]
	if !ok {
		e = &retryEntry{policy: &stepBackOff{}}
		c.pending[id] = e
	}
	e.attempts++
	attempt := e.attempts

	now := c.clock.Now()
	if c.deadline.IsZero() {
		c.deadline = now.Add(retryWindow)
	}

	delay := e.policy.NextBackOff()
	if delay == backoff.Stop || now.Add(delay).After(c.deadline) {
		dropped := len(c.pending)
		for _, p := range c.pending {
			if p.timer != nil {
				p.timer.Stop()
			}
		}
		c.pending = make(map[string]*retryEntry)
		c.deadline = time.Time{}
		c.mu.Unlock()
		retryAbandoned.Inc()
		c.logger.Warn().
			Str("request_id", id).
			Int("attempt", attempt).
			Int("dropped", dropped).
			Msg("retry window exhausted, abandoning all pending retries")
		return
	}

	e.timer = c.clock.AfterFunc(delay, resend)
	c.mu.Unlock()

	retriesScheduled.Inc()
	c.logger.Info().
		Str("request_id", id).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("retry scheduled")
}

// Resolve drops the retry state for id after a successful send. When it was
// the last pending entry the episode deadline is cleared too. Resolving an
// unknown id is a no-op.
func (c *Coordinator) Resolve(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.pending[id]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.pending, id)
	if len(c.pending) == 0 {
		c.deadline = time.Time{}
	}
}

// Attempts reports the recorded failure count for id.
func (c *Coordinator) Attempts(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.pending[id]; ok {
		return e.attempts
	}
	return 0
}

// Pending reports how many requests currently await a retry.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stop cancels all scheduled retries and rejects new enrollments.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for id, e := range c.pending {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(c.pending, id)
	}
	c.deadline = time.Time{}
}
