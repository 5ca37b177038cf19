package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	HTTPServer HTTPServerConfig
	Loader     LoaderConfig
	Rollup     RollupConfig
	Cache      CacheConfig
	Ranking    RankingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers        []string
	TopicCompanies string
	TopicIncidents string
	TopicControl   string
	NumPartitions  int
}

type HTTPServerConfig struct {
	Port           int
	MaxSessions    int
	SessionTimeout time.Duration
}

type LoaderConfig struct {
	CompanyFile  string
	IncidentFile string
	BatchSize    int
}

type RollupConfig struct {
	Schedule string
}

type CacheConfig struct {
	TTL time.Duration
}

// RankingConfig holds the leadership scoring policy. The weights are a
// tunable policy, not fixed constants: base score plus points for giving,
// transparency, low impact, and few incidents, banded at three cutoffs.
type RankingConfig struct {
	BaseScore          float64
	GivingWeight       float64
	TransparencyWeight float64
	ImpactWeight       float64
	IncidentWeight     float64
	LaggardMax         float64
	BelowAverageMax    float64
	AboveAverageMax    float64
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "seed_user"),
			Password: getEnv("DB_PASSWORD", "seed_pass"),
			DBName:   getEnv("DB_NAME", "seed_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicCompanies: getEnv("KAFKA_TOPIC_COMPANIES", "seed.records.companies"),
			TopicIncidents: getEnv("KAFKA_TOPIC_INCIDENTS", "seed.records.incidents"),
			TopicControl:   getEnv("KAFKA_TOPIC_CONTROL", "seed.ingestion.control"),
			NumPartitions:  getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
		},
		HTTPServer: HTTPServerConfig{
			Port:           getEnvAsInt("HTTP_PORT", 8080),
			MaxSessions:    getEnvAsInt("HTTP_MAX_SESSIONS", 1000),
			SessionTimeout: getEnvAsDuration("HTTP_SESSION_TIMEOUT", 30*time.Minute),
		},
		Loader: LoaderConfig{
			CompanyFile:  getEnv("LOADER_COMPANY_FILE", "data/companies.csv"),
			IncidentFile: getEnv("LOADER_INCIDENT_FILE", "data/incidents.csv"),
			BatchSize:    getEnvAsInt("LOADER_BATCH_SIZE", 100),
		},
		Rollup: RollupConfig{
			Schedule: getEnv("ROLLUP_SCHEDULE", "5 * * * *"),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 15*time.Minute),
		},
		Ranking: RankingConfig{
			BaseScore:          getEnvAsFloat("RANKING_BASE_SCORE", 50),
			GivingWeight:       getEnvAsFloat("RANKING_GIVING_WEIGHT", 40),
			TransparencyWeight: getEnvAsFloat("RANKING_TRANSPARENCY_WEIGHT", 30),
			ImpactWeight:       getEnvAsFloat("RANKING_IMPACT_WEIGHT", 20),
			IncidentWeight:     getEnvAsFloat("RANKING_INCIDENT_WEIGHT", 10),
			LaggardMax:         getEnvAsFloat("RANKING_LAGGARD_MAX", 40),
			BelowAverageMax:    getEnvAsFloat("RANKING_BELOW_AVERAGE_MAX", 60),
			AboveAverageMax:    getEnvAsFloat("RANKING_ABOVE_AVERAGE_MAX", 80),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
