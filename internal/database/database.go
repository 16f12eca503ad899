package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"salonbook/internal/domain"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	ErrSlotTaken      = errors.New("time slot already booked")
	ErrNoDSN          = errors.New("database url is empty")
	ErrUnsupportedDSN = errors.New("unsupported database url")
)

// Options tune how a store is opened.
type Options struct {
	AutoMigrate  bool
	MaxOpenConns int
	Logger       *zerolog.Logger
}

type DB struct {
	*sql.DB
	driver string
	logger *zerolog.Logger
}

// ParseDSN maps a DATABASE_URL to a database/sql driver name and DSN.
func ParseDSN(url string) (driver, dsn string, err error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return "", "", ErrNoDSN
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, sqliteDSN(strings.TrimPrefix(url, "sqlite://")), nil
	case strings.HasPrefix(url, "sqlite3://"):
		return DriverSQLite, sqliteDSN(strings.TrimPrefix(url, "sqlite3://")), nil
	case strings.HasPrefix(url, "file:"), url == ":memory:":
		return DriverSQLite, sqliteDSN(url), nil
	case strings.Contains(url, "="):
		// libpq key=value form: "host=... dbname=..."
		return DriverPostgres, url, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, url)
}

// Immediate transactions take the write lock at BEGIN so the slot check
// and the insert are serialized between connections.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000&_txlock=immediate"
}

func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Open connects to the store behind url and verifies the connection.
func Open(ctx context.Context, url string, opts Options) (*DB, error) {
	driver, dsn, err := ParseDSN(url)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite && !isMemoryDSN(dsn) {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch {
	case driver == DriverSQLite && isMemoryDSN(dsn):
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	db := &DB{DB: sqlDB, driver: driver, logger: logger}
	if opts.AutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	logger.Debug().Str("driver", driver).Msg("database connected")
	return db, nil
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// Driver reports the database/sql driver in use.
func (db *DB) Driver() string {
	return db.driver
}

// EnsureSchema creates the bookings table and the slot uniqueness index.
func (db *DB) EnsureSchema(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		idColumn = "id SERIAL PRIMARY KEY"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            ` + idColumn + `,
            client_name TEXT NOT NULL DEFAULT '',
            client_phone TEXT NOT NULL DEFAULT '',
            services TEXT NOT NULL DEFAULT '',
            booking_date DATE,
            booking_time TEXT,
            payment_method TEXT NOT NULL DEFAULT 'cash',
            wishes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(booking_date, booking_time)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// Connector opens a fresh store for every invocation.
type Connector struct {
	opts Options
}

func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts}
}

func (c *Connector) Open(ctx context.Context, dsn string) (domain.BookingStore, error) {
	db, err := Open(ctx, dsn, c.opts)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Pool keeps one connection pool for the process lifetime. Stores it
// hands out ignore Close; call Pool.Close on shutdown.
type Pool struct {
	opts Options

	mu  sync.Mutex
	db  *DB
	dsn string
}

func NewPool(opts Options) *Pool {
	return &Pool{opts: opts}
}

func (p *Pool) Open(ctx context.Context, dsn string) (domain.BookingStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil && p.dsn == dsn {
		return sharedStore{p.db}, nil
	}
	if p.db != nil {
		_ = p.db.Close()
		p.db = nil
	}

	db, err := Open(ctx, dsn, p.opts)
	if err != nil {
		return nil, err
	}
	p.db, p.dsn = db, dsn
	return sharedStore{db}, nil
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

type sharedStore struct {
	*DB
}

func (sharedStore) Close() error { return nil }
