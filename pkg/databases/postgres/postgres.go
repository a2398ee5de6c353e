package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

var ErrInvalidDSN = errors.New("invalid postgres dsn")

type PgDB struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresDB(ctx context.Context, log logger.Logger, dsn string) (*PgDB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pgDB := &PgDB{
		db:  db,
		log: log,
	}

	if err = pgDB.pingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return pgDB, nil
}

func (pg *PgDB) GetDB() *sqlx.DB {
	return pg.db
}

func (pg *PgDB) Close() error {
	return pg.db.Close()
}

func (pg *PgDB) pingContext(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := "up"
	if err := pg.db.PingContext(ctx); err != nil {
		status = "down"
		pg.log.Error("database status", logger.String("status", status), logger.Err(err))
		return err
	}
	pg.log.Info("database status", logger.String("status", status))

	return nil
}

// ValidateDSN accepts both the URL form (postgres://...) and the key=value
// form understood by lib/pq.
func ValidateDSN(dsn string) error {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDSN)
	}

	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDSN, err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidDSN, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("%w: empty host", ErrInvalidDSN)
		}
		if _, err = pq.ParseURL(dsn); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDSN, err)
		}
		return nil
	}

	if _, err := pq.NewConnector(dsn); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDSN, err)
	}
	if !strings.Contains(dsn, "host=") {
		return fmt.Errorf("%w: no host", ErrInvalidDSN)
	}

	return nil
}

// Lazy opens the database on the first DB call and applies the migrations of
// schema once. A failed attempt is not remembered, the next call retries.
type Lazy struct {
	log    logger.Logger
	dsn    string
	schema fs.FS

	mu   sync.Mutex
	pgDB *PgDB
}

func NewLazy(log logger.Logger, dsn string, schema fs.FS) *Lazy {
	return &Lazy{
		log:    log,
		dsn:    dsn,
		schema: schema,
	}
}

func (l *Lazy) DB(ctx context.Context) (*sqlx.DB, error) {
	const op = "databases.postgres.Lazy.DB"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pgDB != nil {
		return l.pgDB.GetDB(), nil
	}

	if err := ValidateDSN(l.dsn); err != nil {
		return nil, err
	}

	if l.schema != nil {
		if err := Migrate(l.dsn, l.schema); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	pgDB, err := NewPostgresDB(ctx, l.log, l.dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	l.pgDB = pgDB

	return pgDB.GetDB(), nil
}

func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pgDB == nil {
		return nil
	}

	err := l.pgDB.Close()
	l.pgDB = nil

	return err
}
