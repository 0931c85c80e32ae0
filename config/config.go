package config

import (
	"fmt"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	AppName     string `env:"APP_NAME" env-default:"nedl-etl"`
	Environment string `env:"ENVIRONMENT" env-default:"dev" validate:"oneof=dev prod"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs  bool   `env:"PRETTY_LOGS" env-default:"false"`

	// Cherre GraphQL API
	CherreAPIURL         string        `env:"CHERRE_API_URL" env-default:"https://graphql.cherre.com/graphql" validate:"url"`
	CherreAPIKey         string        `env:"CHERRE_API_KEY" env-default:""`
	CherreRequestTimeout time.Duration `env:"CHERRE_REQUEST_TIMEOUT" env-default:"60s"`
	CherreMaxRetries     int           `env:"CHERRE_MAX_RETRIES" env-default:"3" validate:"gte=0"`
	CherrePageSize       int           `env:"CHERRE_PAGE_SIZE" env-default:"500" validate:"gt=0"`

	// PostgreSQL (warehouse)
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"nedl"`
	DatabaseSSLMode             string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Load batching
	LoadBatchSize    int `env:"LOAD_BATCH_SIZE" env-default:"1000" validate:"gt=0"`
	ExtractBatchSize int `env:"EXTRACT_BATCH_SIZE" env-default:"500" validate:"gt=0"`

	// Kafka Producer (pipeline lifecycle events)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"nedl-pipeline-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Graph Database (ownership projection, optional)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Multifamily property use codes (allow-list for the property
	// extraction filter and the DQ business checks)
	MultifamilyUseCodes []string `env:"MULTIFAMILY_USE_CODES" env-default:"1104,1105,1106,1107,1108,1110,1112" validate:"min=1"`
}

// Load binds environment variables into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to bind config from environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
