package pipeline

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/config"
	"github.com/nearyou-pipeline/internal/worker"
)

// newTLSConfig loads the broker's mutual TLS material. All three files
// must be configured together; with none set the connection is plain.
func newTLSConfig(cfg *config.Config) (*tls.Config, error) {
	if cfg.Kafka.SSLCAFile == "" && cfg.Kafka.SSLCertFile == "" && cfg.Kafka.SSLKeyFile == "" {
		return nil, nil
	}

	caCert, err := os.ReadFile(cfg.Kafka.SSLCAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA file %s", cfg.Kafka.SSLCAFile)
	}

	cert, err := tls.LoadX509KeyPair(cfg.Kafka.SSLCertFile, cfg.Kafka.SSLKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// NewReader builds the consumer-group reader for the GPS topic.
func NewReader(cfg *config.Config) (*kafka.Reader, error) {
	tlsConfig, err := newTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		TLS:       tlsConfig,
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Kafka.Broker},
		GroupID:     cfg.Kafka.ConsumerGroup,
		Topic:       cfg.Kafka.Topic,
		Dialer:      dialer,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	}), nil
}

// ConsumerWorker reads the GPS topic and feeds the dispatcher. Offsets
// are committed by the dispatcher once processing completes.
type ConsumerWorker struct {
	*worker.BaseWorker
	reader     *kafka.Reader
	dispatcher *Dispatcher
}

func NewConsumerWorker(reader *kafka.Reader, dispatcher *Dispatcher, logger *zap.Logger) *ConsumerWorker {
	return &ConsumerWorker{
		BaseWorker: worker.NewBaseWorker("gps-consumer", logger),
		reader:     reader,
		dispatcher: dispatcher,
	}
}

func (w *ConsumerWorker) Start(ctx context.Context) error {
	w.Logger().Info("Consumer started",
		zap.String("topic", w.reader.Config().Topic),
		zap.String("group", w.reader.Config().GroupID))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-w.StopChan()
		cancel()
	}()

	w.dispatcher.Start(ctx)
	defer w.dispatcher.Close()
	defer w.reader.Close()

	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				w.Logger().Info("Consumer stopped")
				return nil
			}
			w.Logger().Error("Fetch failed", zap.Error(err))
			continue
		}

		if err := w.dispatcher.Dispatch(ctx, msg); err != nil {
			w.Logger().Info("Consumer stopped during dispatch")
			return nil
		}
	}
}
