package pipeline

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Committer acknowledges processed messages back to the broker.
type Committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

const processRetries = 3

// Dispatcher fans messages out to a fixed set of shard queues keyed by
// user so each user's events are processed in arrival order. Commits
// are tracked per partition and only advance over contiguous offsets,
// keeping delivery at-least-once under parallel shards.
type Dispatcher struct {
	queues    []chan kafka.Message
	processor *Processor
	committer Committer
	logger    *zap.Logger

	commits  chan kafka.Message
	shardWg  sync.WaitGroup
	commitWg sync.WaitGroup

	// next holds the lowest uncommitted offset per partition. It is
	// pinned at dispatch time so a completion on a later offset can
	// never commit past a message still in flight on another shard.
	mu   sync.Mutex
	next map[int]int64
}

func NewDispatcher(shards, queueDepth int, processor *Processor, committer Committer, logger *zap.Logger) *Dispatcher {
	queues := make([]chan kafka.Message, shards)
	for i := range queues {
		queues[i] = make(chan kafka.Message, queueDepth)
	}

	return &Dispatcher{
		queues:    queues,
		processor: processor,
		committer: committer,
		logger:    logger,
		commits:   make(chan kafka.Message, shards*queueDepth),
		next:      make(map[int]int64),
	}
}

// Start launches the shard workers and the commit tracker.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, queue := range d.queues {
		d.shardWg.Add(1)
		go d.runShard(ctx, i, queue)
	}

	d.commitWg.Add(1)
	go d.runCommitter(ctx)
}

// Dispatch routes a message onto its user's shard queue. It blocks
// when the shard is saturated, applying backpressure to the consumer.
func (d *Dispatcher) Dispatch(ctx context.Context, msg kafka.Message) error {
	d.mu.Lock()
	if _, seen := d.next[msg.Partition]; !seen {
		d.next[msg.Partition] = msg.Offset
	}
	d.mu.Unlock()

	shard := d.shardFor(msg)
	select {
	case d.queues[shard] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queues, waits for in-flight work and flushes the
// final commits.
func (d *Dispatcher) Close() {
	for _, queue := range d.queues {
		close(queue)
	}
	d.shardWg.Wait()

	close(d.commits)
	d.commitWg.Wait()
}

// shardFor hashes the user identity. The message key is preferred;
// unkeyed messages fall back to the user_id field of the payload.
func (d *Dispatcher) shardFor(msg kafka.Message) int {
	key := msg.Key
	if len(key) == 0 {
		var partial struct {
			UserID uint64 `json:"user_id"`
		}
		if err := json.Unmarshal(msg.Value, &partial); err == nil {
			key = []byte(strconv.FormatUint(partial.UserID, 10))
		}
	}

	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) runShard(ctx context.Context, id int, queue <-chan kafka.Message) {
	defer d.shardWg.Done()

	for msg := range queue {
		d.processWithRetry(ctx, msg)
		d.commits <- msg
	}

	d.logger.Debug("shard drained", zap.Int("shard", id))
}

// processWithRetry retries transient failures with linear backoff and
// gives up after processRetries attempts so one bad message cannot
// stall its shard.
func (d *Dispatcher) processWithRetry(ctx context.Context, msg kafka.Message) {
	var err error
	for attempt := 1; attempt <= processRetries; attempt++ {
		if err = d.processor.Process(ctx, msg); err == nil {
			return
		}

		select {
		case <-time.After(time.Duration(attempt) * time.Second):
		case <-ctx.Done():
			return
		}
	}

	d.logger.Error("giving up on message after retries",
		zap.Int64("offset", msg.Offset),
		zap.Int("partition", msg.Partition),
		zap.Error(err))
}

// runCommitter advances the committed offset per partition only over
// contiguous completions, so a slow shard holds back the commit point
// instead of losing messages on restart.
func (d *Dispatcher) runCommitter(ctx context.Context) {
	defer d.commitWg.Done()

	done := make(map[int]map[int64]kafka.Message)

	for msg := range d.commits {
		if done[msg.Partition] == nil {
			done[msg.Partition] = make(map[int64]kafka.Message)
		}
		done[msg.Partition][msg.Offset] = msg

		d.flushPartition(ctx, msg.Partition, done[msg.Partition])
	}
}

func (d *Dispatcher) flushPartition(ctx context.Context, partition int, done map[int64]kafka.Message) {
	var last kafka.Message
	advanced := false

	d.mu.Lock()
	for {
		msg, ok := done[d.next[partition]]
		if !ok {
			break
		}
		delete(done, d.next[partition])
		d.next[partition]++
		last = msg
		advanced = true
	}
	d.mu.Unlock()

	if !advanced {
		return
	}

	if err := d.committer.CommitMessages(ctx, last); err != nil {
		d.logger.Error("offset commit failed",
			zap.Int("partition", partition),
			zap.Int64("offset", last.Offset),
			zap.Error(err))
	}
}
