package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/layr8/hyperate-go"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS heartbeats (
	id          BIGSERIAL PRIMARY KEY,
	device_id   TEXT        NOT NULL,
	bpm         INTEGER     NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS clips (
	id          BIGSERIAL PRIMARY KEY,
	device_id   TEXT        NOT NULL,
	slug        TEXT        NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const sinkWriteTimeout = 5 * time.Second

// execer is the part of *sql.DB the sink writes through.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// postgresSink stores every heartbeat and clip in PostgreSQL.
type postgresSink struct {
	db execer
}

func openPostgresSink(ctx context.Context, databaseURL string) (*postgresSink, func() error, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, errors.Wrap(err, "ping database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, nil, errors.Wrap(err, "create tables")
	}
	return &postgresSink{db: db}, db.Close, nil
}

func (s *postgresSink) heartbeat(hb hyperate.Heartbeat) error {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO heartbeats (device_id, bpm) VALUES ($1, $2)`, hb.DeviceID, hb.BPM)
	return errors.Wrap(err, "insert heartbeat")
}

func (s *postgresSink) clip(c hyperate.Clip) error {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clips (device_id, slug) VALUES ($1, $2)`, c.DeviceID, c.Slug)
	return errors.Wrap(err, "insert clip")
}
