package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// insertUploadQuery expects a table of the form:
//
//	CREATE TABLE completed_uploads (
//	    upload_id    TEXT PRIMARY KEY,
//	    object_key   TEXT NOT NULL,
//	    bucket       TEXT NOT NULL,
//	    etag         TEXT NOT NULL,
//	    location     TEXT,
//	    part_count   INTEGER NOT NULL,
//	    completed_at TIMESTAMPTZ NOT NULL
//	);
const insertUploadQuery = `INSERT INTO completed_uploads (upload_id, object_key, bucket, etag, location, part_count, completed_at) ` +
	`VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (upload_id) DO NOTHING;`

// PgConnection is the subset of a pgx pool used by Postgres.
type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Postgres records completed uploads in PostgreSQL.
type Postgres struct {
	conn  PgConnection
	close func()
}

// NewPostgres connects to the database at dsn and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN cannot be empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Postgres{conn: pool, close: pool.Close}, nil
}

// NewPostgresWithConn creates a Postgres store over an existing connection.
func NewPostgresWithConn(conn PgConnection) *Postgres {
	return &Postgres{conn: conn}
}

// RecordUpload inserts the record. An upload that is already recorded is left unchanged.
func (p *Postgres) RecordUpload(ctx context.Context, record *uploadtypes.UploadRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	_, err := p.conn.Exec(ctx, insertUploadQuery,
		record.UploadID,
		record.Key,
		record.Bucket,
		record.ETag,
		record.Location,
		record.PartCount,
		record.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record upload %s: %w", record.UploadID, err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.conn.Ping(ctx)
}

// Close releases the connection pool, if the store owns one.
func (p *Postgres) Close() {
	if p.close != nil {
		p.close()
	}
}
