package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/config"
)

// ReplayController re-reads a time window of the GPS topic outside the
// consumer group, so replays never disturb live offsets. Events are
// processed sequentially per partition in their stored order.
type ReplayController struct {
	cfg       *config.Config
	processor *Processor
	logger    *zap.Logger
}

func NewReplayController(cfg *config.Config, processor *Processor, logger *zap.Logger) *ReplayController {
	return &ReplayController{
		cfg:       cfg,
		processor: processor,
		logger:    logger,
	}
}

// Replay reprocesses all events with a broker timestamp inside
// [start, end]. A non-empty user allowlist restricts the replay to
// those users. Returns the number of events processed.
func (r *ReplayController) Replay(ctx context.Context, start, end time.Time, users []uint64) (int, error) {
	partitions, err := r.partitions(ctx)
	if err != nil {
		return 0, err
	}

	allow := make(map[uint64]bool, len(users))
	for _, u := range users {
		allow[u] = true
	}

	total := 0
	for _, partition := range partitions {
		n, err := r.replayPartition(ctx, partition, start, end, allow)
		total += n
		if err != nil {
			return total, err
		}
	}

	r.logger.Info("Replay finished",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("events", total))
	return total, nil
}

// ReplayLastHours is the common operator shortcut.
func (r *ReplayController) ReplayLastHours(ctx context.Context, hours int, users []uint64) (int, error) {
	end := time.Now()
	return r.Replay(ctx, end.Add(-time.Duration(hours)*time.Hour), end, users)
}

func (r *ReplayController) partitions(ctx context.Context) ([]int, error) {
	tlsConfig, err := newTLSConfig(r.cfg)
	if err != nil {
		return nil, err
	}
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, TLS: tlsConfig}

	conn, err := dialer.DialContext(ctx, "tcp", r.cfg.Kafka.Broker)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	parts, err := conn.ReadPartitions(r.cfg.Kafka.Topic)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *ReplayController) replayPartition(ctx context.Context, partition int, start, end time.Time, allow map[uint64]bool) (int, error) {
	tlsConfig, err := newTLSConfig(r.cfg)
	if err != nil {
		return 0, err
	}
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, TLS: tlsConfig}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{r.cfg.Kafka.Broker},
		Topic:     r.cfg.Kafka.Topic,
		Partition: partition,
		Dialer:    dialer,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, start); err != nil {
		// An empty partition has no offset at that time.
		if isOffsetOutOfRange(err) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for {
		readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return count, ctx.Err()
			}
			// The per-read deadline firing means the partition is
			// drained up to the live edge. Anything else is a real
			// broker failure and truncates the replay.
			if drainedToLiveEdge(ctx, err) {
				return count, nil
			}
			return count, err
		}

		if msg.Time.After(end) {
			return count, nil
		}
		if len(allow) > 0 && !r.allowed(msg, allow) {
			continue
		}

		if err := r.processor.Process(ctx, msg); err != nil {
			r.logger.Error("Replay processing failed",
				zap.Int("partition", partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}
		count++
	}
}

func (r *ReplayController) allowed(msg kafka.Message, allow map[uint64]bool) bool {
	if len(msg.Key) > 0 {
		if id, err := strconv.ParseUint(string(msg.Key), 10, 64); err == nil {
			return allow[id]
		}
	}

	var partial struct {
		UserID uint64 `json:"user_id"`
	}
	if err := json.Unmarshal(msg.Value, &partial); err != nil {
		return false
	}
	return allow[partial.UserID]
}

// drainedToLiveEdge reports whether a read failed only because the
// per-read deadline expired while the parent context is still alive.
func drainedToLiveEdge(parent context.Context, err error) bool {
	return parent.Err() == nil && errors.Is(err, context.DeadlineExceeded)
}

func isOffsetOutOfRange(err error) bool {
	var kafkaErr kafka.Error
	return errors.As(err, &kafkaErr) && kafkaErr == kafka.OffsetOutOfRange
}
