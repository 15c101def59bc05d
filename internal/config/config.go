package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Env               string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	JWTSecret         string
	GoogleAudience    string
	AllowOrigins      []string
	LogstashTCPAddr   string
	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOUseSSL       bool
	MinIOBucketMedia  string
	MinIOPublicURL    string
	SessionTTL        string
	PublicBaseURL     string
	DashboardURL      string
	OpenAIAPIKey      string
	OpenAIModel       string
	TossSecretKey     string
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	UploadMaxBytes    int64
	UploadMaxDim      int
	ClickFlushSeconds int
	StatsCacheTTL     string
	VisitorHashKey    string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	uploadMax := int64(10 * 1024 * 1024)
	if v, err := strconv.ParseInt(getenv("UPLOAD_MAX_BYTES", "10485760"), 10, 64); err == nil && v > 0 {
		uploadMax = v
	}

	uploadDim := 2560
	if v, err := strconv.Atoi(getenv("UPLOAD_MAX_DIMENSION", "2560")); err == nil && v > 0 {
		uploadDim = v
	}

	flushSecs := 30
	if v, err := strconv.Atoi(getenv("CLICK_FLUSH_SECONDS", "30")); err == nil && v > 0 {
		flushSecs = v
	}

	return Config{
		Port:              getenv("PORT", "8080"),
		Env:               getenv("APP_ENV", "development"),
		DatabaseURL:       must("DATABASE_URL"),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		JWTSecret:         must("JWT_SECRET"),
		GoogleAudience:    getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:      splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr:   getenv("LOGSTASH_TCP_ADDR", ""),
		MinIOEndpoint:     must("MINIO_ENDPOINT"),
		MinIOAccessKey:    must("MINIO_ACCESS_KEY"),
		MinIOSecretKey:    must("MINIO_SECRET_KEY"),
		MinIOUseSSL:       getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketMedia:  getenv("MINIO_BUCKET_MEDIA", "roomy-media"),
		MinIOPublicURL:    getenv("MINIO_PUBLIC_URL", ""),
		SessionTTL:        getenv("SESSION_TTL", "720h"),
		PublicBaseURL:     getenv("PUBLIC_BASE_URL", "http://localhost:8080"),
		DashboardURL:      getenv("DASHBOARD_URL", ""),
		OpenAIAPIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIModel:       getenv("OPENAI_MODEL", ""),
		TossSecretKey:     getenv("TOSS_SECRET_KEY", ""),
		SMTPHost:          getenv("SMTP_HOST", ""),
		SMTPPort:          getenv("SMTP_PORT", ""),
		SMTPUsername:      getenv("SMTP_USERNAME", ""),
		SMTPPassword:      getenv("SMTP_PASSWORD", ""),
		SMTPFrom:          getenv("SMTP_FROM", ""),
		UploadMaxBytes:    uploadMax,
		UploadMaxDim:      uploadDim,
		ClickFlushSeconds: flushSecs,
		StatsCacheTTL:     getenv("STATS_CACHE_TTL", "5m"),
		VisitorHashKey:    getenv("VISITOR_HASH_KEY", ""),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
