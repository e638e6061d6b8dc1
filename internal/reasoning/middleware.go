package reasoning

// This file implements the port middleware chain. Middlewares decorate a
// types.ReasoningPort with cross-cutting concerns without the extractors
// knowing which adapter sits at the bottom.

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/types"
)

// Middleware decorates a ReasoningPort to inject cross-cutting concerns.
type Middleware func(types.ReasoningPort) types.ReasoningPort

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner types.ReasoningPort, mws ...Middleware) types.ReasoningPort {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Retry with exponential backoff --------

// WithRetry retries Invoke up to maxAttempts with exponential backoff
// starting at baseDelay. If the context is done, it stops immediately so a
// pipeline deadline is never stretched by backoff sleeps.
func WithRetry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next types.ReasoningPort) types.ReasoningPort {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next types.ReasoningPort
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Invoke(ctx context.Context, req types.ReasoningRequest) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.Invoke(ctx, req)
		if err == nil {
			return resp, nil
		}
		last = err
		if i == r.max-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.base * time.Duration(1<<i)):
		}
	}
	return nil, last
}

// -------- Response cache --------

// WithCache memoizes successful responses in an LRU keyed by the request
// fingerprint. Identical narratives re-run (the what-if comparator, retried
// submissions) skip the round trip. Errors are never cached. Hits are
// audited when a sink is provided.
func WithCache(size int, sink logging.Sink) Middleware {
	return func(next types.ReasoningPort) types.ReasoningPort {
		cache, err := lru.New[string, json.RawMessage](size)
		if err != nil {
			// Size <= 0; caching is disabled.
			return next
		}
		return &cached{next: next, cache: cache, sink: sink}
	}
}

type cached struct {
	next  types.ReasoningPort
	cache *lru.Cache[string, json.RawMessage]
	sink  logging.Sink
}

func (c *cached) Name() string { return c.next.Name() }
func (c *cached) Close() error { return c.next.Close() }

func (c *cached) Invoke(ctx context.Context, req types.ReasoningRequest) (json.RawMessage, error) {
	key, ok := fingerprint(req)
	if !ok {
		return c.next.Invoke(ctx, req)
	}
	if raw, hit := c.cache.Get(key); hit {
		logging.NewAuditor(c.sink, req.RequestID).CacheHit(string(req.Kind), c.next.Name())
		return raw, nil
	}
	raw, err := c.next.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, raw)
	return raw, nil
}

// fingerprint keys a request by kind, prompt and serialized input. The
// request ID stays out of the key so identical narratives hit across runs.
func fingerprint(req types.ReasoningRequest) (string, bool) {
	in, err := json.Marshal(req.Input)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(append([]byte(req.Prompt+"\x00"), in...))
	return fmt.Sprintf("%s|%x", req.Kind, sum), true
}

// -------- Structured logging --------

// WithLogging logs each Invoke with duration and outcome.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next types.ReasoningPort) types.ReasoningPort {
		return &logged{next: next, logger: logger}
	}
}

type logged struct {
	next   types.ReasoningPort
	logger *zap.Logger
}

func (l *logged) Name() string { return l.next.Name() }
func (l *logged) Close() error { return l.next.Close() }

func (l *logged) Invoke(ctx context.Context, req types.ReasoningRequest) (json.RawMessage, error) {
	start := time.Now()
	raw, err := l.next.Invoke(ctx, req)
	fields := []zap.Field{
		zap.String("kind", string(req.Kind)),
		zap.String("port", l.next.Name()),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		l.logger.Warn("reasoning call failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	l.logger.Debug("reasoning call ok", append(fields, zap.Int("bytes", len(raw)))...)
	return raw, nil
}

// -------- Audit trail --------

// WithAudit emits a reasoning_call audit event per Invoke, correlated by the
// request ID carried in the request.
func WithAudit(sink logging.Sink) Middleware {
	return func(next types.ReasoningPort) types.ReasoningPort {
		return &audited{next: next, sink: sink}
	}
}

type audited struct {
	next types.ReasoningPort
	sink logging.Sink
}

func (a *audited) Name() string { return a.next.Name() }
func (a *audited) Close() error { return a.next.Close() }

func (a *audited) Invoke(ctx context.Context, req types.ReasoningRequest) (json.RawMessage, error) {
	start := time.Now()
	raw, err := a.next.Invoke(ctx, req)
	logging.NewAuditor(a.sink, req.RequestID).
		ReasoningCall(string(req.Kind), a.next.Name(), time.Since(start).Milliseconds(), err)
	return raw, err
}
