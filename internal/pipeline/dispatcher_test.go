package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/domain"
)

type recordingEventRepo struct {
	mu     sync.Mutex
	events []*domain.EnrichedEvent
}

func (r *recordingEventRepo) Insert(_ context.Context, event *domain.EnrichedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEventRepo) perUser() map[uint64][]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint64][]uint64)
	for _, e := range r.events {
		out[e.UserID] = append(out[e.UserID], e.EventID)
	}
	return out
}

type recordingCommitter struct {
	mu      sync.Mutex
	commits []kafka.Message
}

func (c *recordingCommitter) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits = append(c.commits, msgs...)
	return nil
}

func (c *recordingCommitter) last() (kafka.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.commits) == 0 {
		return kafka.Message{}, false
	}
	return c.commits[len(c.commits)-1], true
}

func TestDispatcher_PerUserOrderPreserved(t *testing.T) {
	shops := new(mockShopRepo)
	shops.On("FindNearest", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Shop{ShopID: 1, ShopName: "Bar Roma", Category: "bar", Distance: 500}, nil)

	events := &recordingEventRepo{}
	processor := NewProcessor(shops, new(mockProfileRepo), events, new(mockGenerator), zap.NewNop())
	committer := &recordingCommitter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(4, 8, processor, committer, zap.NewNop())
	d.Start(ctx)

	users := []uint64{11, 22, 33}
	offset := int64(0)
	for round := 0; round < 20; round++ {
		for _, user := range users {
			msg := gpsMessage(t, user, 45.07, 7.69, offset)
			msg.Partition = 0
			assert.NoError(t, d.Dispatch(ctx, msg))
			offset++
		}
	}

	d.Close()

	byUser := events.perUser()
	for _, user := range users {
		ids := byUser[user]
		assert.Len(t, ids, 20)
		for i := 1; i < len(ids); i++ {
			assert.Greater(t, ids[i], ids[i-1],
				"events for one user must sink in arrival order")
		}
	}
}

// gatedEventRepo blocks inserts for one user until released, holding
// that user's message in flight on its shard.
type gatedEventRepo struct {
	recordingEventRepo
	gate chan struct{}
	slow uint64
}

func (r *gatedEventRepo) Insert(ctx context.Context, event *domain.EnrichedEvent) error {
	if event.UserID == r.slow {
		<-r.gate
	}
	return r.recordingEventRepo.Insert(ctx, event)
}

func TestDispatcher_SlowShardHoldsBackCommit(t *testing.T) {
	shops := new(mockShopRepo)
	shops.On("FindNearest", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Shop{ShopID: 1, ShopName: "Bar Roma", Category: "bar", Distance: 500}, nil)

	slowUser := uint64(1)
	events := &gatedEventRepo{gate: make(chan struct{}), slow: slowUser}
	processor := NewProcessor(shops, new(mockProfileRepo), events, new(mockGenerator), zap.NewNop())
	committer := &recordingCommitter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(4, 8, processor, committer, zap.NewNop())
	d.Start(ctx)

	slowMsg := gpsMessage(t, slowUser, 45.07, 7.69, 0)
	slowMsg.Partition = 0

	// Pick a second user landing on a different shard so its message
	// completes while the first is still blocked.
	fastUser := uint64(2)
	fastMsg := gpsMessage(t, fastUser, 45.07, 7.69, 1)
	fastMsg.Partition = 0
	for d.shardFor(fastMsg) == d.shardFor(slowMsg) {
		fastUser++
		fastMsg = gpsMessage(t, fastUser, 45.07, 7.69, 1)
		fastMsg.Partition = 0
	}

	assert.NoError(t, d.Dispatch(ctx, slowMsg))
	assert.NoError(t, d.Dispatch(ctx, fastMsg))

	assert.Eventually(t, func() bool {
		return len(events.perUser()[fastUser]) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Offset 1 is done but offset 0 is still in flight; nothing may
	// commit yet.
	time.Sleep(100 * time.Millisecond)
	_, committed := committer.last()
	assert.False(t, committed, "commit must wait for the earlier offset")

	close(events.gate)
	d.Close()

	last, ok := committer.last()
	assert.True(t, ok)
	assert.Equal(t, int64(1), last.Offset)
}

func TestDispatcher_CommitsContiguousOffsets(t *testing.T) {
	shops := new(mockShopRepo)
	shops.On("FindNearest", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Shop{ShopID: 1, ShopName: "Bar Roma", Category: "bar", Distance: 500}, nil)

	events := &recordingEventRepo{}
	processor := NewProcessor(shops, new(mockProfileRepo), events, new(mockGenerator), zap.NewNop())
	committer := &recordingCommitter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(2, 4, processor, committer, zap.NewNop())
	d.Start(ctx)

	for offset := int64(0); offset < 10; offset++ {
		msg := gpsMessage(t, uint64(offset%3+1), 45.07, 7.69, offset)
		msg.Partition = 0
		assert.NoError(t, d.Dispatch(ctx, msg))
	}

	// Shards drain before Close returns, commits follow shortly after.
	d.Close()
	assert.Eventually(t, func() bool {
		last, ok := committer.last()
		return ok && last.Offset == 9
	}, 2*time.Second, 10*time.Millisecond)
}
