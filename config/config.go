package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SourceBaseURL string
	FetchTimeout  time.Duration

	StorageBackend string
	Bucket         string
	ShardPrefix    string
	RowGroupSize   int64

	AWSRegion     string
	S3Endpoint    string
	MinioEndpoint string
	MinioAccess   string
	MinioSecret   string
	MinioSSL      bool
	LocalDir      string

	CatalogEnabled   bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	AMQPURL    string
	ShardQueue string

	HTTPAddr string
	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		SourceBaseURL: strings.TrimRight(getEnv("SOURCE_BASE_URL", "https://d37ci6vzurychx.cloudfront.net"), "/"),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 0),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "gcs")),
		Bucket:         getEnv("BUCKET_NAME", "de2_gcs_ojas"),
		ShardPrefix:    getEnv("SHARD_PREFIX", "NewYork_Taxi"),
		RowGroupSize:   int64(getEnvInt("PARQUET_ROW_GROUP_SIZE", 128*1024)),

		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		MinioEndpoint: getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccess:   getEnv("MINIO_ACCESS_KEY", "admin"),
		MinioSecret:   getEnv("MINIO_SECRET_KEY", "admin123"),
		MinioSSL:      getEnvBool("MINIO_SSL", false),
		LocalDir:      getEnv("LOCAL_STORE_DIR", "./output"),

		CatalogEnabled:   getEnvBool("CATALOG_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "ingest"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "ingest123"),
		PostgresDB:       getEnv("POSTGRES_DB", "tlc_catalog"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		AMQPURL:    getEnv("AMQP_URL", ""),
		ShardQueue: getEnv("SHARD_QUEUE", "shards"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// DSN returns the PostgreSQL connection string for the shard catalog.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
