package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabase opens a pooled PostgreSQL connection, retrying while the server comes up
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.ConnectionString()

	gormLog := gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	var db *gorm.DB
	var err error
	attempts := cfg.ConnectRetries + 1
	for i := 1; i <= attempts; i++ {
		db, err = open(dsn, gormLog, cfg)
		if err == nil {
			break
		}
		if i == attempts {
			return nil, err
		}
		wait := time.Duration(i) * time.Second
		log.Warn("Database not ready, retrying",
			zap.Int("attempt", i),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		time.Sleep(wait)
	}

	log.Info("Connected to database",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)
	return db, nil
}

func open(dsn string, gormLog gormlogger.Interface, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLog,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// HealthCheck pings the database
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// HealthStats is the pool snapshot reported by /health/db
type HealthStats struct {
	Status          string `json:"status"`
	OpenConnections int    `json:"openConnections"`
	InUse           int    `json:"inUse"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"waitCount"`
	WaitDuration    string `json:"waitDuration"`
	Error           string `json:"error,omitempty"`
}

// HealthCheckWithStats pings the database and reports pool statistics
func HealthCheckWithStats(ctx context.Context, db *gorm.DB) HealthStats {
	sqlDB, err := db.DB()
	if err != nil {
		return HealthStats{Status: "unhealthy", Error: err.Error()}
	}
	stats := sqlDB.Stats()
	out := HealthStats{
		Status:          "healthy",
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration.String(),
	}
	if err := HealthCheck(ctx, db); err != nil {
		out.Status = "unhealthy"
		out.Error = err.Error()
	}
	return out
}

// AutoMigrate creates the schema from the gorm models. Used by tests and local development;
// deployed databases are migrated with cmd/migrate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.AllModels()...)
}
