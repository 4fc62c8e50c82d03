package main

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// OpenDatabase opens the MySQL connection pool and verifies connectivity
func OpenDatabase(cfg DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	logger := GetLogger()
	logger.Info("Connecting to MySQL",
		zap.String("user", cfg.User),
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Name),
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionLifetime)

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Successfully connected to MySQL database")

	return db, nil
}

// ensureSchema creates the aggregate and reference tables if they do not
// exist. The listing_counts table is populated out of band by the listings
// ingestion pipeline; this service only reads it.
func ensureSchema(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS listing_counts (
			location VARCHAR(128) NOT NULL,
			property_types VARCHAR(255) NOT NULL,
			grouping_type VARCHAR(32) NOT NULL,
			listing_count INT NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL,
			PRIMARY KEY (location, property_types, grouping_type),
			INDEX idx_grouping (grouping_type, property_types, location)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS property_types (
			id INT NOT NULL PRIMARY KEY,
			name VARCHAR(128) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// monitorDatabaseConnections exports pool stats to the metrics collector
func monitorDatabaseConnections(db *sql.DB) {
	mc := GetMetricsCollector()
	if mc == nil || db == nil {
		return
	}
	mc.DatabaseConnectionsActive.Set(float64(db.Stats().InUse))
}
