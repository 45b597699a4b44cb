package config

import (
	"os"
	"strconv"
	"time"

	"roundjudge/internal/platform/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	// RequestTimeout bounds one HTTP request. A synchronous submit needs about
	// ExecutionTimeout * ceil(cases / TestRunWorkers) to finish.
	RequestTimeout time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string
	DBURL      string // URL form, used by migrations

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Execution service (Judge0-compatible)
	ExecutionAPIURL         string
	ExecutionAPIHost        string
	ExecutionAPIKey         string
	ExecutionTimeout        time.Duration
	ExecutionPollInterval   time.Duration
	ExecutionMaxRetries     int
	ExecutionRetryBaseDelay time.Duration

	TestRunWorkers         int
	ProgressionMaxAttempts int
	ScorePolicy            string
	SubmissionGuardTTL     time.Duration
	SubmissionQueueName    string
	SubmissionWorkers      int
	SubmissionResultTTL    time.Duration
	MigrationsPath         string
}

var AppConfig *Config

func Load() {
	log := logger.NewNamedLogger("config")
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:    getEnv("API_PORT", "8080"),
		JWTKey:     []byte(getEnv("JWT_SECRET", "defaultsecret")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "roundjudge"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RequestTimeout: time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		ExecutionAPIURL:         getEnv("JUDGE0_API_URL", "http://localhost:2358"),
		ExecutionAPIHost:        getEnv("JUDGE0_API_HOST", ""),
		ExecutionAPIKey:         getEnv("JUDGE0_API_KEY", ""),
		ExecutionTimeout:        time.Duration(getEnvAsInt("EXECUTION_TIMEOUT_SECONDS", 20)) * time.Second,
		ExecutionPollInterval:   time.Duration(getEnvAsInt("EXECUTION_POLL_INTERVAL_MS", 500)) * time.Millisecond,
		ExecutionMaxRetries:     getEnvAsInt("EXECUTION_MAX_RETRIES", 3),
		ExecutionRetryBaseDelay: time.Duration(getEnvAsInt("EXECUTION_RETRY_BASE_DELAY_MS", 200)) * time.Millisecond,

		TestRunWorkers:         getEnvAsInt("TEST_RUN_WORKERS", 4),
		ProgressionMaxAttempts: getEnvAsInt("PROGRESSION_MAX_ATTEMPTS", 5),
		ScorePolicy:            getEnv("SCORE_POLICY", "latest"),
		SubmissionGuardTTL:     time.Duration(getEnvAsInt("SUBMISSION_GUARD_TTL_SECONDS", 120)) * time.Second,
		SubmissionQueueName:    getEnv("SUBMISSION_QUEUE_NAME", "submission_jobs_queue"),
		SubmissionWorkers:      getEnvAsInt("SUBMISSION_WORKERS", 2),
		SubmissionResultTTL:    time.Duration(getEnvAsInt("SUBMISSION_RESULT_TTL_SECONDS", 3600)) * time.Second,
		MigrationsPath:         getEnv("MIGRATIONS_PATH", "file://migrations"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode

	AppConfig.DBURL = "postgres://" + AppConfig.DBUser + ":" + AppConfig.DBPassword +
		"@" + AppConfig.DBHost + ":" + AppConfig.DBPort + "/" + AppConfig.DBName +
		"?sslmode=" + AppConfig.DBSslMode

	if AppConfig.RequestTimeout < AppConfig.ExecutionTimeout {
		log.Warnf("REQUEST_TIMEOUT_SECONDS (%s) is shorter than EXECUTION_TIMEOUT_SECONDS (%s), synchronous submits will be cut off",
			AppConfig.RequestTimeout, AppConfig.ExecutionTimeout)
	}

	if AppConfig.ExecutionAPIKey == "" {
		log.Warn("JUDGE0_API_KEY is not set, requests to the execution service are unauthenticated")
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
