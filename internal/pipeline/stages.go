package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/domain/repository"
	"github.com/nearyou-pipeline/internal/pkg/metrics"
	"github.com/nearyou-pipeline/internal/pkg/utils"
)

// proximityThresholdM gates message generation: only users within this
// distance of the nearest shop get a personalised message.
const proximityThresholdM = 200.0

// Accepted event timestamp layouts, most common first.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
}

type memoKey struct {
	userID uint64
	shopID int
}

// Processor runs the enrichment stages for one broker message:
// decode, validate, nearest-shop lookup, proximity-gated generation,
// sink write. The memo suppresses repeat generator calls for a
// (user, shop) pair within the process lifetime.
type Processor struct {
	shops     repository.ShopRepository
	profiles  repository.ProfileRepository
	events    repository.EventRepository
	generator repository.GeneratorClient
	logger    *zap.Logger

	mu   sync.Mutex
	memo map[memoKey]string
}

func NewProcessor(
	shops repository.ShopRepository,
	profiles repository.ProfileRepository,
	events repository.EventRepository,
	generator repository.GeneratorClient,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		shops:     shops,
		profiles:  profiles,
		events:    events,
		generator: generator,
		logger:    logger,
		memo:      make(map[memoKey]string),
	}
}

// Process enriches and sinks one message. Malformed or unresolvable
// events are dropped with a nil return; only transient sink errors
// surface to the caller for retry.
func (p *Processor) Process(ctx context.Context, msg kafka.Message) error {
	var event domain.GPSEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		metrics.EventsDropped.WithLabelValues("decode").Inc()
		p.logger.Warn("dropping undecodable event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return nil
	}

	eventTime, ok := p.validate(&event)
	if !ok {
		metrics.EventsDropped.WithLabelValues("validate").Inc()
		p.logger.Warn("dropping invalid event",
			zap.Uint64("user_id", event.UserID),
			zap.Int64("offset", msg.Offset))
		return nil
	}

	shop, err := p.shops.FindNearest(ctx, event.Latitude, event.Longitude)
	if err != nil {
		return fmt.Errorf("nearest shop lookup failed: %w", err)
	}
	if shop == nil {
		metrics.EventsDropped.WithLabelValues("no_shop").Inc()
		p.logger.Warn("no shops available, dropping event",
			zap.Uint64("user_id", event.UserID))
		return nil
	}

	enriched := &domain.EnrichedEvent{
		EventID:   eventID(msg),
		EventTime: eventTime,
		UserID:    event.UserID,
		Latitude:  event.Latitude,
		Longitude: event.Longitude,
		POIRange:  shop.Distance,
		POIName:   shop.ShopName,
	}

	if shop.Distance <= proximityThresholdM {
		enriched.POIInfo = p.message(ctx, &event, shop)
	}

	if err := p.events.Insert(ctx, enriched); err != nil {
		metrics.SinkFailures.Inc()
		return fmt.Errorf("sink write failed: %w", err)
	}
	metrics.EventsProcessed.Inc()

	return nil
}

// validate checks identity, coordinates and timestamp. It returns the
// parsed event time truncated to UTC seconds.
func (p *Processor) validate(event *domain.GPSEvent) (time.Time, bool) {
	if event.UserID == 0 {
		return time.Time{}, false
	}
	if !utils.ValidateCoordinates(event.Latitude, event.Longitude) {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, event.Timestamp); err == nil {
			return ts.UTC().Truncate(time.Second), true
		}
	}
	return time.Time{}, false
}

// message resolves the profile and calls the generator, memoising per
// (user, shop). Missing profiles and generator failures leave the
// message empty without failing the event.
func (p *Processor) message(ctx context.Context, event *domain.GPSEvent, shop *domain.Shop) string {
	key := memoKey{userID: event.UserID, shopID: shop.ShopID}

	p.mu.Lock()
	if msg, ok := p.memo[key]; ok {
		p.mu.Unlock()
		metrics.GeneratorCalls.WithLabelValues("memoized").Inc()
		return msg
	}
	p.mu.Unlock()

	profile, err := p.profiles.GetByID(ctx, event.UserID)
	if err != nil || profile == nil {
		if err != nil {
			p.logger.Warn("profile lookup failed",
				zap.Uint64("user_id", event.UserID),
				zap.Error(err))
		}
		return ""
	}

	description := fmt.Sprintf("Negozio a %.0fm di distanza", shop.Distance)
	msg, err := p.generator.Generate(ctx, profile, shop, description)
	if err != nil {
		metrics.GeneratorCalls.WithLabelValues("error").Inc()
		p.logger.Warn("message generation failed",
			zap.Uint64("user_id", event.UserID),
			zap.String("shop", shop.ShopName),
			zap.Error(err))
		return ""
	}
	metrics.GeneratorCalls.WithLabelValues("ok").Inc()

	p.mu.Lock()
	p.memo[key] = msg
	p.mu.Unlock()

	return msg
}

// eventID is the broker offset, or zero when the event did not come
// from the broker (replays construct messages the same way).
func eventID(msg kafka.Message) uint64 {
	if msg.Offset < 0 {
		return 0
	}
	return uint64(msg.Offset)
}
