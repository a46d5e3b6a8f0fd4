package storage

import (
	"database/sql"
	"fmt"
	"time"

	"candle-stream/src/logger"
	"candle-stream/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// AsyncSQLiteDB keeps client state in a local SQLite file.
type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// One writer avoids SQLITE_BUSY between the control server and the stream reader
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS client_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create client_state: %w", err)
	}

	d.Logger.Info("SQLite state store ready at %s", d.Config.Storage.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Get(key string) (string, bool, error) {
	var value string
	err := d.DB.QueryRow("SELECT value FROM client_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state %s: %w", key, err)
	}
	return value, true, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Set(key, value string) error {
	query := `
		INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := d.DB.Exec(query, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) All() (map[string]string, error) {
	rows, err := d.DB.Query("SELECT key, value FROM client_state")
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

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
