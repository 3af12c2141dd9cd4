package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase establishes a connection to MySQL using configuration values and migrates the given models.
func OpenDatabase(cfg AppConfig, modelDefs ...interface{}) (*gorm.DB, error) {
	dsn, err := databaseDSN(cfg.Database)
	if err != nil {
		return nil, err
	}

	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(cfg.Log.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	// shorter than the usual server-side wait_timeout
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}

	for _, model := range modelDefs {
		if err := db.AutoMigrate(model); err != nil {
			return nil, fmt.Errorf("auto migration failed for %T: %w", model, err)
		}
	}
	return db, nil
}

// databaseDSN builds the driver DSN from DATABASE_URI or the host/user parts.
// Affected-row counts report matched rows, so an update that leaves a row unchanged still counts.
func databaseDSN(c DatabaseSection) (string, error) {
	dc := mysqldriver.NewConfig()
	if c.URI != "" {
		parsed, err := mysqldriver.ParseDSN(c.URI)
		if err != nil {
			return "", fmt.Errorf("parse DATABASE_URI: %w", err)
		}
		dc = parsed
	} else {
		dc.User = c.User
		dc.Passwd = c.Password
		dc.Net = "tcp"
		dc.Addr = net.JoinHostPort(c.Host, c.Port)
		dc.DBName = c.Name
		dc.Loc = time.Local
		dc.Params = map[string]string{"charset": "utf8mb4"}
	}
	dc.ParseTime = true
	dc.ClientFoundRows = true
	return dc.FormatDSN(), nil
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
