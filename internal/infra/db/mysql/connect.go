package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/enginesound/internal/infra/db/sqlcodec"
)

//go:embed schema.sql
var schemaSQL string

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range sqlcodec.Statements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql schema: %w", err)
		}
	}
	return nil
}
