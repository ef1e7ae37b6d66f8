package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrationStatus is the state of the schema as seen by goose.
type MigrationStatus struct {
	Current int64
	Latest  int64
	Pending int
}

// Migrator applies the embedded SQL migrations with goose.
type Migrator struct {
	dsn string
	fs  fs.FS
}

// NewMigrator creates a Migrator reading *.sql files from the root of fsys.
func NewMigrator(dsn string, fsys fs.FS) *Migrator {
	return &Migrator{dsn: dsn, fs: fsys}
}

func (m *Migrator) open() (*sql.DB, error) {
	conn, err := sql.Open("pgx", m.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	goose.SetBaseFS(m.fs)
	if err := goose.SetDialect("postgres"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return conn, nil
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	conn, err := m.open()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Status reports the applied version against the newest embedded migration.
func (m *Migrator) Status(ctx context.Context) (*MigrationStatus, error) {
	conn, err := m.open()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	current, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	all, err := goose.CollectMigrations(".", 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}

	st := &MigrationStatus{Current: current}
	for _, mig := range all {
		if mig.Version > st.Latest {
			st.Latest = mig.Version
		}
		if mig.Version > current {
			st.Pending++
		}
	}
	return st, nil
}
