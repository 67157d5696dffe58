package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	ClickHouse  ClickHouseConfig
	Redis       RedisConfig
	Cache       CacheConfig
	LLM         LLMConfig
	Generator   GeneratorConfig
	Query       QueryConfig
	Pipeline    PipelineConfig
	Aggregator  AggregatorConfig
	Log         LogConfig
}

type KafkaConfig struct {
	Broker        string
	Topic         string
	ConsumerGroup string
	SSLCAFile     string
	SSLCertFile   string
	SSLKeyFile    string
}

type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MinIdleConns    int
	ConnMaxLifetime time.Duration
}

type ClickHouseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type LLMConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// GeneratorConfig covers both sides of the message generator: the
// listen address of the service itself and the URL the pipeline calls.
type GeneratorConfig struct {
	Host string
	Port int
	URL  string
}

type QueryConfig struct {
	Host      string
	Port      int
	ResultTTL time.Duration
}

type PipelineConfig struct {
	Shards     int
	QueueDepth int
}

type AggregatorConfig struct {
	Interval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// A missing .env is fine, the environment alone is enough.
	if err := viper.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Environment: viper.GetString("ENVIRONMENT"),
		Kafka: KafkaConfig{
			Broker:        viper.GetString("KAFKA_BROKER"),
			Topic:         viper.GetString("KAFKA_TOPIC"),
			ConsumerGroup: viper.GetString("CONSUMER_GROUP"),
			SSLCAFile:     viper.GetString("SSL_CAFILE"),
			SSLCertFile:   viper.GetString("SSL_CERTFILE"),
			SSLKeyFile:    viper.GetString("SSL_KEYFILE"),
		},
		Postgres: PostgresConfig{
			Host:            viper.GetString("POSTGRES_HOST"),
			Port:            viper.GetInt("POSTGRES_PORT"),
			User:            viper.GetString("POSTGRES_USER"),
			Password:        viper.GetString("POSTGRES_PASSWORD"),
			DBName:          viper.GetString("POSTGRES_DB"),
			SSLMode:         viper.GetString("POSTGRES_SSLMODE"),
			MaxConns:        viper.GetInt("POSTGRES_MAX_CONNS"),
			MinIdleConns:    viper.GetInt("POSTGRES_MIN_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("POSTGRES_CONN_MAX_LIFETIME")) * time.Second,
		},
		ClickHouse: ClickHouseConfig{
			Host:     viper.GetString("CLICKHOUSE_HOST"),
			Port:     viper.GetInt("CLICKHOUSE_PORT"),
			User:     viper.GetString("CLICKHOUSE_USER"),
			Password: viper.GetString("CLICKHOUSE_PASSWORD"),
			Database: viper.GetString("CLICKHOUSE_DATABASE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			Enabled: viper.GetBool("CACHE_ENABLED"),
			TTL:     time.Duration(viper.GetInt("CACHE_TTL")) * time.Second,
		},
		LLM: LLMConfig{
			Provider: viper.GetString("LLM_PROVIDER"),
			APIKey:   viper.GetString("OPENAI_API_KEY"),
			BaseURL:  viper.GetString("OPENAI_API_BASE"),
		},
		Generator: GeneratorConfig{
			Host: viper.GetString("GENERATOR_HOST"),
			Port: viper.GetInt("GENERATOR_PORT"),
			URL:  viper.GetString("MESSAGE_GENERATOR_URL"),
		},
		Query: QueryConfig{
			Host:      viper.GetString("QUERY_HOST"),
			Port:      viper.GetInt("QUERY_PORT"),
			ResultTTL: time.Duration(viper.GetInt("QUERY_RESULT_TTL")) * time.Second,
		},
		Pipeline: PipelineConfig{
			Shards:     viper.GetInt("PIPELINE_SHARDS"),
			QueueDepth: viper.GetInt("PIPELINE_QUEUE_DEPTH"),
		},
		Aggregator: AggregatorConfig{
			Interval: time.Duration(viper.GetInt("AGGREGATOR_INTERVAL")) * time.Second,
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Kafka.Broker == "" {
		cfg.Kafka.Broker = "kafka:9093"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "gps_stream"
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "gps_consumers_group"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = 10
	}
	if cfg.Postgres.MinIdleConns == 0 {
		cfg.Postgres.MinIdleConns = 2
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.ClickHouse.Port == 0 {
		cfg.ClickHouse.Port = 9000
	}
	if cfg.ClickHouse.User == "" {
		cfg.ClickHouse.User = "default"
	}
	if cfg.ClickHouse.Database == "" {
		cfg.ClickHouse.Database = "nearyou"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 86400 * time.Second
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.Generator.Port == 0 {
		cfg.Generator.Port = 8001
	}
	if cfg.Generator.URL == "" {
		cfg.Generator.URL = "http://message-generator:8001/generate"
	}
	if cfg.Query.Port == 0 {
		cfg.Query.Port = 8002
	}
	if cfg.Query.ResultTTL == 0 {
		cfg.Query.ResultTTL = 300 * time.Second
	}
	if cfg.Pipeline.Shards == 0 {
		cfg.Pipeline.Shards = 8
	}
	if cfg.Pipeline.QueueDepth == 0 {
		cfg.Pipeline.QueueDepth = 64
	}
	if cfg.Aggregator.Interval == 0 {
		cfg.Aggregator.Interval = time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func (c *Config) GetPostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c *Config) GetClickHouseAddr() string {
	return fmt.Sprintf("%s:%d", c.ClickHouse.Host, c.ClickHouse.Port)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetGeneratorAddr() string {
	return fmt.Sprintf("%s:%d", c.Generator.Host, c.Generator.Port)
}

func (c *Config) GetQueryAddr() string {
	return fmt.Sprintf("%s:%d", c.Query.Host, c.Query.Port)
}
