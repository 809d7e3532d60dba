package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Config struct {
	DSN            string
	MaxConns       int
	Timeout        time.Duration
	TimeZone       string
	ClientEncoding string
}

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = pq.ErrorCode("23505")

// Connect opens a postgres pool, verifies connectivity with a ping and wraps it with sqlx.
func Connect(cfg Config) (*sqlx.DB, error) {
	dsn, err := sessionDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return sqlx.NewDb(db, "postgres"), nil
}

// IsUniqueViolation reports whether err is a postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// sessionDSN folds the session settings into the connection string so the
// server applies them to every connection the pool opens.
func sessionDSN(cfg Config) (string, error) {
	var params []string
	if cfg.TimeZone != "" {
		params = append(params, "timezone="+quoteValue(cfg.TimeZone))
	}
	if cfg.ClientEncoding != "" {
		params = append(params, "client_encoding="+quoteValue(cfg.ClientEncoding))
	}
	if len(params) == 0 {
		return cfg.DSN, nil
	}
	dsn := cfg.DSN
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		kv, err := pq.ParseURL(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		dsn = kv
	}
	// later keys win, so these override any already in the dsn
	return strings.TrimSpace(dsn + " " + strings.Join(params, " ")), nil
}

// quoteValue quotes s for a keyword/value connection string.
func quoteValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
