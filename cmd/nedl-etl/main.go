package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nedl-data/nedl-etl/config"
	"github.com/nedl-data/nedl-etl/internal/repositories/warehouse"
	"github.com/nedl-data/nedl-etl/pkg/cherre"
	"github.com/nedl-data/nedl-etl/pkg/database"
	"github.com/nedl-data/nedl-etl/pkg/events"
	"github.com/nedl-data/nedl-etl/pkg/graph"
	"github.com/nedl-data/nedl-etl/pkg/kafka"
	"github.com/nedl-data/nedl-etl/pkg/pipeline"
	"github.com/nedl-data/nedl-etl/pkg/validation"
)

var cfg config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "nedl-etl",
		Short: "Batch ETL for multifamily real-estate ownership data",
		Long:  "Extracts recorder, assessor, and owner records from the Cherre GraphQL API, builds the dimensional ownership model, and loads the warehouse behind a data-quality gate.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		runCmd(),
		backfillCmd(),
		migrateCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch for a date range (defaults to yesterday)",
		RunE: func(cmd *cobra.Command, args []string) error {
			yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
			if startDate == "" {
				startDate = yesterday
			}
			if endDate == "" {
				endDate = startDate
			}
			if err := validateDate(startDate); err != nil {
				return err
			}
			if err := validateDate(endDate); err != nil {
				return err
			}

			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			result, err := app.pipeline.Run(cmd.Context(), startDate, endDate)
			if err != nil {
				return err
			}
			if result.LoadSkipped {
				app.logger.WithField("reason", result.SkipReason).Warn("Batch completed without loading")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "first transaction date to extract (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "last transaction date to extract (YYYY-MM-DD, defaults to --start)")
	return cmd
}

func backfillCmd() *cobra.Command {
	var startMonth, endMonth string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay the pipeline one calendar month at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if startMonth == "" || endMonth == "" {
				return fmt.Errorf("--start-month and --end-month are required (YYYY-MM)")
			}

			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			results, err := app.pipeline.Backfill(cmd.Context(), startMonth, endMonth)
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Result.LoadSkipped {
					app.logger.WithFields(map[string]any{
						"month":  r.Month.Key,
						"reason": r.Result.SkipReason,
					}).Warn("Month completed without loading")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startMonth, "start-month", "", "first month to backfill (YYYY-MM)")
	cmd.Flags().StringVar(&endMonth, "end-month", "", "last month to backfill (YYYY-MM)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending warehouse schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			db, err := database.Connect(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return migrationService(logger).MigrateDatabase(db, cfg.DatabaseName)
		},
	}
}

type app struct {
	logger   ectologger.Logger
	db       *database.DatabaseInstance
	producer *kafka.Producer
	graphDB  *graph.Client
	pipeline *pipeline.Pipeline
}

// buildApp connects every configured backend and wires the pipeline. Kafka
// and the graph database are optional; when disabled their slots stay nil
// and the pipeline degrades to warehouse-only operation.
func buildApp(ctx context.Context) (*app, error) {
	logger := newLogger()

	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := migrationService(logger).MigrateDatabase(db, cfg.DatabaseName); err != nil {
		db.Close()
		return nil, err
	}

	client := cherre.NewClient(cfg, logger)
	extractor := cherre.NewExtractor(client, cfg.ExtractBatchSize, cfg.MultifamilyUseCodes)
	repo := warehouse.New(db, logger, cfg.Environment, cfg.LoadBatchSize)

	a := &app{logger: logger, db: db}

	var publisher events.Publisher
	if cfg.KafkaEnabled {
		a.producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		publisher = a.producer
	}

	var projector pipeline.GraphProjector
	if cfg.GraphEnabled {
		graphDB, err := graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		if err := graphDB.VerifyConnectivity(ctx); err != nil {
			graphDB.Close(ctx)
			a.close()
			return nil, err
		}
		a.graphDB = graphDB
		projector = graph.NewProjector(graphDB, logger)
	}

	a.pipeline = pipeline.New(
		extractor,
		repo,
		validation.NewEngine(logger, cfg.MultifamilyUseCodes),
		events.NewEmitter(publisher, logger),
		projector,
		logger,
	)
	return a, nil
}

func (a *app) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
	if a.graphDB != nil {
		if err := a.graphDB.Close(context.Background()); err != nil {
			a.logger.WithError(err).Warn("Failed to close graph driver")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close database")
		}
	}
}

func migrationService(logger ectologger.Logger) *database.MigrationService {
	return database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
}

func newLogger() ectologger.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	zapLogger, err := zapCfg.Build()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func validateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return nil
}
