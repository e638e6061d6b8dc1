package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/types"
)

// flakyPort fails its first n invokes, then succeeds.
type flakyPort struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (p *flakyPort) Name() string { return "flaky" }
func (p *flakyPort) Close() error { return nil }

func (p *flakyPort) Invoke(ctx context.Context, req types.ReasoningRequest) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return nil, errors.New("transient upstream failure")
	}
	return json.RawMessage(`{"ok": true}`), nil
}

func (p *flakyPort) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func metaphorReq() types.ReasoningRequest {
	return types.ReasoningRequest{
		Kind:      types.KindMetaphor,
		RequestID: "req-1",
		Prompt:    "translate",
		Input:     map[string]string{"narrative": "a tight band around my chest"},
	}
}

func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	t.Parallel()

	inner := &flakyPort{failures: 2}
	port := Wrap(inner, WithRetry(3, time.Millisecond))

	raw, err := port.Invoke(context.Background(), metaphorReq())
	require.NoError(t, err)
	require.JSONEq(t, `{"ok": true}`, string(raw))
	require.Equal(t, 3, inner.callCount())
}

func TestWithRetryExhaustsAndReturnsLastError(t *testing.T) {
	t.Parallel()

	inner := &flakyPort{failures: 10}
	port := Wrap(inner, WithRetry(3, time.Millisecond))

	_, err := port.Invoke(context.Background(), metaphorReq())
	require.Error(t, err)
	require.Equal(t, 3, inner.callCount())
}

func TestWithRetryStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	inner := &flakyPort{failures: 10}
	port := Wrap(inner, WithRetry(5, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := port.Invoke(ctx, metaphorReq())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, inner.callCount(), "no retries after cancellation")
}

func TestWithCacheMemoizesIdenticalRequests(t *testing.T) {
	t.Parallel()

	fake := NewFakePort()
	sink := &logging.MemorySink{}
	port := Wrap(fake, WithCache(8, sink))

	req := metaphorReq()
	first, err := port.Invoke(context.Background(), req)
	require.NoError(t, err)
	second, err := port.Invoke(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, string(first), string(second))
	require.Equal(t, 1, fake.Calls(types.KindMetaphor), "second invoke must be served from cache")

	hits := sink.ByType(logging.EventReasoningCacheHit)
	require.Len(t, hits, 1)
	require.Equal(t, "req-1", hits[0].RequestID)
}

func TestWithCacheMissesOnDifferentInput(t *testing.T) {
	t.Parallel()

	fake := NewFakePort()
	port := Wrap(fake, WithCache(8, nil))

	req := metaphorReq()
	_, err := port.Invoke(context.Background(), req)
	require.NoError(t, err)

	req.Input = map[string]string{"narrative": "my knee clicks"}
	_, err = port.Invoke(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 2, fake.Calls(types.KindMetaphor))
}

func TestWithCacheDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	fake := NewFakePort()
	fake.FailWith(types.KindRisk, errors.New("boom"))
	port := Wrap(fake, WithCache(8, nil))

	req := types.ReasoningRequest{Kind: types.KindRisk, RequestID: "req-2", Prompt: "assess"}
	_, err := port.Invoke(context.Background(), req)
	require.Error(t, err)
	_, err = port.Invoke(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, 2, fake.Calls(types.KindRisk), "errors must reach the port every time")
}

func TestWithAuditEmitsReasoningCallEvents(t *testing.T) {
	t.Parallel()

	fake := NewFakePort()
	fake.FailWith(types.KindEmotion, errors.New("upstream 500"))
	sink := &logging.MemorySink{}
	port := Wrap(fake, WithAudit(sink))

	_, err := port.Invoke(context.Background(), metaphorReq())
	require.NoError(t, err)
	_, err = port.Invoke(context.Background(), types.ReasoningRequest{
		Kind: types.KindEmotion, RequestID: "req-1", Prompt: "extract",
	})
	require.Error(t, err)

	events := sink.ByType(logging.EventReasoningCall)
	require.Len(t, events, 2)
	require.True(t, events[0].Success)
	require.False(t, events[1].Success)
	require.NotEmpty(t, events[1].Error)
}

func TestWrapOrder(t *testing.T) {
	t.Parallel()

	// Retry outside the cache: a transient failure is retried, and the
	// eventual success is what lands in the cache.
	inner := &flakyPort{failures: 1}
	sink := &logging.MemorySink{}
	port := Wrap(inner, WithRetry(2, time.Millisecond), WithCache(8, sink), WithAudit(sink))

	raw, err := port.Invoke(context.Background(), metaphorReq())
	require.NoError(t, err)
	require.JSONEq(t, `{"ok": true}`, string(raw))
	// One failed attempt plus one success, both audited.
	require.Len(t, sink.ByType(logging.EventReasoningCall), 2)

	_, err = port.Invoke(context.Background(), metaphorReq())
	require.NoError(t, err)
	require.Equal(t, 2, inner.callCount(), "second invoke served from cache")
}

func TestFakePortBlockOnHonorsContext(t *testing.T) {
	t.Parallel()

	fake := NewFakePort()
	fake.BlockOn(types.KindRisk)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := fake.Invoke(ctx, types.ReasoningRequest{Kind: types.KindRisk, Prompt: "assess"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFakePortCannedResponsesParse(t *testing.T) {
	t.Parallel()

	fake := NewFakePort()
	for _, kind := range []types.ExtractorKind{types.KindMetaphor, types.KindEmotion, types.KindRisk} {
		raw, err := fake.Invoke(context.Background(), types.ReasoningRequest{Kind: kind, Prompt: "p"})
		require.NoError(t, err, kind)
		var v map[string]any
		require.NoError(t, json.Unmarshal(raw, &v), kind)
	}
}
