package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	AuthToken string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	EmbedServiceURL string

	PineconeHost      string
	PineconeAPIKey    string
	PineconeNamespace string

	RetrievalTopKInitial int
	RetrievalTopKFinal   int
	RetrievalAlpha       float64
	RerankEnabled        bool

	BatchMaxWorkers        int
	QuestionTimeoutSeconds int

	PostgresDSN string

	NATSURL           string
	NATSRunSubject    string
	NATSEventsSubject string

	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int

	DownloadDir string

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		AuthToken: mustEnv("API_AUTH_TOKEN", ""),

		OpenAIAPIKey:  mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: mustEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   mustEnv("OPENAI_MODEL", "gpt-4o-mini"),

		EmbedServiceURL: mustEnv("EMBED_SERVICE_URL", "http://localhost:8090"),

		PineconeHost:      mustEnv("PINECONE_HOST", ""),
		PineconeAPIKey:    mustEnv("PINECONE_API_KEY", ""),
		PineconeNamespace: mustEnv("PINECONE_NAMESPACE", ""),

		RetrievalTopKInitial: mustEnvInt("RETRIEVAL_TOP_K_INITIAL", 35),
		RetrievalTopKFinal:   mustEnvInt("RETRIEVAL_TOP_K_FINAL", 5),
		RetrievalAlpha:       mustEnvFloat("RETRIEVAL_ALPHA", 0.5),
		RerankEnabled:        mustEnvBool("RERANK_ENABLED", false),

		BatchMaxWorkers:        mustEnvInt("BATCH_MAX_WORKERS", 2),
		QuestionTimeoutSeconds: mustEnvInt("QUESTION_TIMEOUT_SECONDS", 30),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:           mustEnv("NATS_URL", ""),
		NATSRunSubject:    mustEnv("NATS_RUN_SUBJECT", "qa.runs.requested"),
		NATSEventsSubject: mustEnv("NATS_EVENTS_SUBJECT", "qa.runs.completed"),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 64),

		DownloadDir: mustEnv("DOWNLOAD_DIR", "./data/downloads"),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
