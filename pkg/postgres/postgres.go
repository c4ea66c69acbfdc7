package postgres

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is optional: an empty DSN keeps the vector index in memory.
type Config struct {
	DSN          string        `envconfig:"PGVECTOR_DSN"`
	MaxIdleConns int           `envconfig:"PGVECTOR_MAX_IDLE_CONNS" default:"5"`
	MaxOpenConns int           `envconfig:"PGVECTOR_MAX_OPEN_CONNS" default:"20"`
	ConnLifetime time.Duration `envconfig:"PGVECTOR_CONN_LIFETIME" default:"1h"`
}

func (c *Config) Enabled() bool {
	return c.DSN != ""
}

func getLogger() logger.Interface {
	return logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
}

func (c *Config) New() (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(c.DSN), &gorm.Config{
		Logger: getLogger(),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(c.ConnLifetime)

	return db, nil
}
