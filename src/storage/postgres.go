package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"candle-stream/src/helpers"
	"candle-stream/src/logger"
	"candle-stream/src/models"

	_ "github.com/lib/pq"
)

var schemaUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

// PostgresDB keeps client state in a per-application schema.
type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	name := schemaUnsafe.ReplaceAllString(strings.ToLower(cfg.Name), "_")
	if name == "" {
		return nil, fmt.Errorf("cannot derive a schema name from application name %q", cfg.Name)
	}

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	// The database container may still be starting
	_, err = helpers.RetryWithBackoff(context.Background(), 5, 500*time.Millisecond, func() (struct{}, error) {
		return struct{}{}, db.Ping()
	})
	if err != nil {
		db.Close()
		return &helpers.DatabaseError{StreamError: helpers.StreamError{Message: "postgres unreachable", Cause: err}}
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."client_state" (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create client_state: %w", err)
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Get(key string) (string, bool, error) {
	var value string
	query := fmt.Sprintf(`SELECT value FROM "%s"."client_state" WHERE key = $1`, d.Schema)
	err := d.DB.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state %s: %w", key, err)
	}
	return value, true, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Set(key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."client_state" (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, d.Schema)
	if _, err := d.DB.Exec(query, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) All() (map[string]string, error) {
	rows, err := d.DB.Query(fmt.Sprintf(`SELECT key, value FROM "%s"."client_state"`, d.Schema))
	if err != nil {
		return nil, fmt.Errorf("failed to list state: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
