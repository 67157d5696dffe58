//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type gpsEvent struct {
	UserID    uint64  `json:"user_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

func main() {
	broker := flag.String("broker", "localhost:9093", "Kafka broker address")
	topic := flag.String("topic", "gps_stream", "Topic to publish to")
	users := flag.Int("users", 5, "Number of simulated users")
	count := flag.Int("count", 20, "Events per user")
	flag.Parse()

	writer := &kafka.Writer{
		Addr:     kafka.TCP(*broker),
		Topic:    *topic,
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	ctx := context.Background()

	// Positions scatter around the Milan city centre.
	for i := 0; i < *count; i++ {
		msgs := make([]kafka.Message, 0, *users)
		for u := 1; u <= *users; u++ {
			event := gpsEvent{
				UserID:    uint64(u),
				Latitude:  45.4642 + (rand.Float64()-0.5)*0.05,
				Longitude: 9.1900 + (rand.Float64()-0.5)*0.05,
				Timestamp: time.Now().UTC().Format("2006-01-02 15:04:05"),
			}
			value, err := json.Marshal(event)
			if err != nil {
				log.Fatalf("Failed to encode event: %v", err)
			}
			msgs = append(msgs, kafka.Message{
				Key:   []byte(strconv.Itoa(u)),
				Value: value,
			})
		}

		if err := writer.WriteMessages(ctx, msgs...); err != nil {
			log.Fatalf("Failed to publish: %v", err)
		}
		fmt.Printf("published batch %d/%d\n", i+1, *count)
		time.Sleep(500 * time.Millisecond)
	}
}
