package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains the news-index and upstream API parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string

	NaverClientID     string
	NaverClientSecret string
	NaverBaseURL      string

	DartAPIKey    string
	DartBaseURL   string
	DartRateLimit int

	UpstreamTimeout      time.Duration
	AggregateConcurrency int
}

// NaverEnabled reports whether Naver credentials are configured.
func (c Common) NaverEnabled() bool {
	return c.NaverClientID != "" && c.NaverClientSecret != ""
}

// IndexEnabled reports whether an Elasticsearch news index is configured.
func (c Common) IndexEnabled() bool {
	return c.ElasticsearchAddr != ""
}

// Worker holds configuration for the Kafka request worker.
type Worker struct {
	Common
	KafkaBrokers   []string
	RequestTopic   string
	ResultTopic    string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	QueueCapacity  int
	DLQMaxAttempts int
}

// DLQTopic is the dead-letter topic for undecodable or invalid requests.
func (w *Worker) DLQTopic() string {
	return w.RequestTopic + "_dlq"
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr       string
	DefaultPage    int
	MaxPage        int
	RequestTimeout time.Duration
}

func loadCommon() (Common, error) {
	c := Common{
		ElasticsearchAddr:    getEnv("ELASTICSEARCH_ADDR", ""),
		ElasticsearchIndex:   getEnv("ELASTICSEARCH_INDEX", "news"),
		NaverClientID:        getEnv("NAVER_CLIENT_ID", ""),
		NaverClientSecret:    getEnv("NAVER_CLIENT_SECRET", ""),
		NaverBaseURL:         getEnv("NAVER_BASE_URL", "https://openapi.naver.com/v1/search/news.json"),
		DartAPIKey:           getEnv("DART_API_KEY", ""),
		DartBaseURL:          getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
		DartRateLimit:        getInt("DART_RATE_LIMIT", 5),
		UpstreamTimeout:      getDuration("UPSTREAM_TIMEOUT", "10s"),
		AggregateConcurrency: getInt("AGGREGATE_CONCURRENCY", 4),
	}

	if c.DartAPIKey == "" {
		return c, fmt.Errorf("DART_API_KEY is required")
	}
	if c.DartRateLimit <= 0 {
		return c, fmt.Errorf("DART_RATE_LIMIT must be positive")
	}
	if c.AggregateConcurrency <= 0 {
		return c, fmt.Errorf("AGGREGATE_CONCURRENCY must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return c, fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if (c.NaverClientID == "") != (c.NaverClientSecret == "") {
		return c, fmt.Errorf("NAVER_CLIENT_ID and NAVER_CLIENT_SECRET must be set together")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:         common,
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		RequestTopic:   getEnv("KAFKA_REQUEST_TOPIC", "radar_requests"),
		ResultTopic:    getEnv("KAFKA_RESULT_TOPIC", "radar_results"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "radar-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		QueueCapacity:  getInt("WORKER_QUEUE_CAPACITY", 10),
		DLQMaxAttempts: getInt("WORKER_DLQ_MAX_ATTEMPTS", 5),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.RequestTopic == c.ResultTopic {
		return nil, fmt.Errorf("KAFKA_RESULT_TOPIC must differ from KAFKA_REQUEST_TOPIC")
	}
	if c.QueueCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_QUEUE_CAPACITY must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.DLQMaxAttempts <= 0 {
		return nil, fmt.Errorf("WORKER_DLQ_MAX_ATTEMPTS must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:         common,
		BindAddr:       getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:    getInt("API_PAGE_SIZE", 20),
		MaxPage:        getInt("API_MAX_PAGE_SIZE", 100),
		RequestTimeout: getDuration("API_REQUEST_TIMEOUT", "30s"),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.RequestTimeout <= 0 {
		return nil, fmt.Errorf("API_REQUEST_TIMEOUT must be positive")
	}
	if !c.NaverEnabled() && !c.IndexEnabled() {
		return nil, fmt.Errorf("either NAVER_CLIENT_ID/NAVER_CLIENT_SECRET or ELASTICSEARCH_ADDR must be set")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
