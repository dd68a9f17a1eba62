package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	LeadID string `json:"lead_id"`
}

func newTestBroker(t *testing.T, opts MemoryOptions) *MemoryBroker {
	t.Helper()
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = 5 * time.Millisecond
	}
	b := NewMemory(opts)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestMemoryBroker_DeliversJobs(t *testing.T) {
	b := newTestBroker(t, MemoryOptions{})

	var mu sync.Mutex
	var got []string
	b.Subscribe(StageEnrich, func(ctx context.Context, job Job) error {
		var p testPayload
		require.NoError(t, job.Decode(&p))
		mu.Lock()
		got = append(got, p.LeadID)
		mu.Unlock()
		return nil
	})
	require.NoError(t, b.Start(context.Background()))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, b.Publish(context.Background(), StageEnrich, testPayload{LeadID: id}))
	}
	b.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)
}

func TestMemoryBroker_RetriesThenSucceeds(t *testing.T) {
	b := newTestBroker(t, MemoryOptions{MaxAttempts: 3})

	var calls atomic.Int32
	b.Subscribe(StageEmail, func(ctx context.Context, job Job) error {
		if calls.Add(1) < 3 {
			return eris.New("smtp unavailable")
		}
		assert.Equal(t, 3, job.Attempt)
		return nil
	})
	require.NoError(t, b.Start(context.Background()))

	require.NoError(t, b.Publish(context.Background(), StageEmail, testPayload{LeadID: "x"}))
	b.Wait()

	assert.Equal(t, int32(3), calls.Load())
	assert.Empty(t, b.DeadLetters())
}

func TestMemoryBroker_DeadLettersAfterMaxAttempts(t *testing.T) {
	b := newTestBroker(t, MemoryOptions{MaxAttempts: 2})

	var calls atomic.Int32
	b.Subscribe(StageCall, func(ctx context.Context, job Job) error {
		calls.Add(1)
		return eris.New("voice provider down")
	})
	require.NoError(t, b.Start(context.Background()))

	require.NoError(t, b.Publish(context.Background(), StageCall, testPayload{LeadID: "x"}))
	b.Wait()

	assert.Equal(t, int32(2), calls.Load())
	dead := b.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, StageCall, dead[0].Job.Stage)
	assert.Contains(t, dead[0].Reason, "voice provider down")
}

func TestMemoryBroker_DelayedPublish(t *testing.T) {
	b := newTestBroker(t, MemoryOptions{})

	var deliveredAt atomic.Int64
	b.Subscribe(StageCall, func(ctx context.Context, job Job) error {
		deliveredAt.Store(time.Now().UnixNano())
		return nil
	})
	require.NoError(t, b.Start(context.Background()))

	start := time.Now()
	require.NoError(t, b.Publish(context.Background(), StageCall, testPayload{LeadID: "x"},
		WithDelay(30*time.Millisecond)))
	b.Wait()

	elapsed := time.Duration(deliveredAt.Load() - start.UnixNano())
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestMemoryBroker_ConcurrencyBound(t *testing.T) {
	b := newTestBroker(t, MemoryOptions{
		Concurrency: func(Stage) int { return 2 },
	})

	var current, peak atomic.Int32
	b.Subscribe(StageEnrich, func(ctx context.Context, job Job) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return nil
	})
	require.NoError(t, b.Start(context.Background()))

	for i := 0; i < 8; i++ {
		require.NoError(t, b.Publish(context.Background(), StageEnrich, testPayload{LeadID: "x"}))
	}
	b.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestMemoryBroker_HandlerChaining(t *testing.T) {
	b := newTestBroker(t, MemoryOptions{})

	var enriched atomic.Bool
	b.Subscribe(StageScrape, func(ctx context.Context, job Job) error {
		return b.Publish(ctx, StageEnrich, testPayload{LeadID: "lead-1"})
	})
	b.Subscribe(StageEnrich, func(ctx context.Context, job Job) error {
		enriched.Store(true)
		return nil
	})
	require.NoError(t, b.Start(context.Background()))

	require.NoError(t, b.Publish(context.Background(), StageScrape, testPayload{}))
	b.Wait()

	assert.True(t, enriched.Load())
}

func TestMemoryBroker_PublishAfterClose(t *testing.T) {
	b := NewMemory(MemoryOptions{})
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), StageScrape, testPayload{})
	require.Error(t, err)
}

func TestJobEncodeDecode(t *testing.T) {
	job, err := NewJob(StageEmail, testPayload{LeadID: "lead-7"})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 1, job.Attempt)

	var p testPayload
	require.NoError(t, job.Decode(&p))
	assert.Equal(t, "lead-7", p.LeadID)
}
