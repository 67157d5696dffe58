package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestDrainedToLiveEdge(t *testing.T) {
	parent := context.Background()

	assert.True(t, drainedToLiveEdge(parent, context.DeadlineExceeded),
		"a lone read deadline means the partition is drained")

	assert.False(t, drainedToLiveEdge(parent, kafka.BrokerNotAvailable),
		"broker failures must surface, not truncate the replay")
	assert.False(t, drainedToLiveEdge(parent, errors.New("connection reset")))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, drainedToLiveEdge(cancelled, context.DeadlineExceeded),
		"a dead parent context is a cancellation, not a drain")
}

func TestDrainedToLiveEdge_ExpiredParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-parent.Done()

	assert.False(t, drainedToLiveEdge(parent, context.DeadlineExceeded))
}

func TestIsOffsetOutOfRange(t *testing.T) {
	assert.True(t, isOffsetOutOfRange(kafka.OffsetOutOfRange))
	assert.False(t, isOffsetOutOfRange(kafka.BrokerNotAvailable))
	assert.False(t, isOffsetOutOfRange(errors.New("boom")))
}
