package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

// ConnectionManager owns the single database handle of the process. The
// handle is opened on first use and capped at one connection, so at most one
// transaction is ever open on it.
type ConnectionManager struct {
	driver  string
	dsn     string
	dialect dialect

	mu sync.Mutex
	db *sql.DB
}

func NewConnectionManager(driver, dsn string) (*ConnectionManager, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, domain.Validation("connection", "%v", err)
	}
	if dsn == "" {
		return nil, domain.Validation("connection", "empty connection string")
	}
	return &ConnectionManager{driver: driver, dsn: dsn, dialect: d}, nil
}

func (m *ConnectionManager) Driver() string { return m.driver }

// Acquire returns the open handle, opening it first if needed. Repeated calls
// return the same handle while it answers a ping; a handle that was closed
// underneath or fails its ping is replaced. Failures are reported as
// connection errors and are not retried.
func (m *ConnectionManager) Acquire(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		err := m.db.PingContext(ctx)
		if err == nil {
			return m.db, nil
		}
		if ctx.Err() != nil {
			return nil, domain.Connection("ping", err)
		}
		m.db.Close()
		m.db = nil
	}

	db, err := m.open()
	if err != nil {
		return nil, domain.Connection("open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.Connection("ping", err)
	}

	m.db = db
	return db, nil
}

func (m *ConnectionManager) open() (*sql.DB, error) {
	if m.driver != DriverMySQL {
		return sql.Open(m.driver, m.dsn)
	}

	cfg, err := mysql.ParseDSN(m.dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	// Timestamps are scanned into time.Time and stored in UTC.
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// Ping checks the handle without opening one.
func (m *ConnectionManager) Ping(ctx context.Context) error {
	m.mu.Lock()
	db := m.db
	m.mu.Unlock()
	if db == nil {
		return domain.Connection("ping", fmt.Errorf("not connected"))
	}
	if err := db.PingContext(ctx); err != nil {
		return domain.Connection("ping", err)
	}
	return nil
}

// Close releases the handle; the next Acquire reopens it.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
