// internal/ledger/ledger.go

// Package ledger is the durable, append-only history of purchase and
// return events. Events are never updated or deleted; the ledger assigns
// each one a monotonic sequence id and a timestamp at append time. The two
// logical streams (purchases, returns) live in one table tagged by kind so
// the sequence id orders them globally.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Kind tags an event as a purchase or a return.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindReturn   Kind = "return"
)

// Event is one committed ledger entry. SequenceID is its identity and
// sort key.
type Event struct {
	SequenceID int64     `json:"sequence_id"`
	Kind       Kind      `json:"kind"`
	SchoolID   string    `json:"school_id"`
	Barcode    string    `json:"barcode"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger appends to and queries the event log. Each append commits
// synchronously before the call returns.
type Ledger struct {
	db     *sql.DB
	tracer trace.Tracer
}

// Open acquires the ledger store at the given path and bootstraps the
// schema. The handle is meant to be acquired once at startup and closed
// deterministically at shutdown; failure to open it is the one condition
// the caller may treat as fatal.
func Open(path string) (*Ledger, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// SQLite admits one writer; a single pooled connection keeps appends
	// from tripping over each other's locks.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	l := &Ledger{
		db:     db,
		tracer: otel.Tracer("shelfmark/ledger"),
	}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return l, nil
}

// Close releases the underlying store handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL CHECK (kind IN ('purchase', 'return')),
		school_id TEXT NOT NULL,
		book_barcode TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_events_pair
		ON ledger_events(school_id, book_barcode, id);
	`
	_, err := l.db.Exec(schema)
	return err
}

// RecordPurchase appends a purchase event and makes it durable before
// returning.
func (l *Ledger) RecordPurchase(ctx context.Context, schoolID, barcode string) (Event, error) {
	return l.append(ctx, KindPurchase, schoolID, barcode)
}

// RecordReturn appends a return event and makes it durable before
// returning.
func (l *Ledger) RecordReturn(ctx context.Context, schoolID, barcode string) (Event, error) {
	return l.append(ctx, KindReturn, schoolID, barcode)
}

func (l *Ledger) append(ctx context.Context, kind Kind, schoolID, barcode string) (Event, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.append",
		trace.WithAttributes(
			attribute.String("event.kind", string(kind)),
			attribute.String("student.school_id", schoolID),
			attribute.String("book.barcode", barcode),
		),
	)
	defer span.End()

	now := time.Now().UTC()
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO ledger_events (kind, school_id, book_barcode, created_at)
		VALUES (?, ?, ?, ?)
	`, string(kind), schoolID, barcode, now.Format(time.RFC3339Nano))
	if err != nil {
		return Event{}, fmt.Errorf("append %s event: %w", kind, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return Event{}, fmt.Errorf("append %s event: sequence id: %w", kind, err)
	}

	span.SetAttributes(attribute.Int64("event.sequence_id", seq))
	return Event{
		SequenceID: seq,
		Kind:       kind,
		SchoolID:   schoolID,
		Barcode:    barcode,
		CreatedAt:  now,
	}, nil
}

// HasOpenPurchase reports whether the latest event for the
// (school_id, barcode) pair is a purchase with no later return. The
// original system authorized a return whenever any purchase had ever
// existed for the pair, which let a copy be returned twice; the strict
// latest-event rule is what keeps availability equal to the net ledger
// effect.
func (l *Ledger) HasOpenPurchase(ctx context.Context, schoolID, barcode string) (bool, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.has_open_purchase",
		trace.WithAttributes(
			attribute.String("student.school_id", schoolID),
			attribute.String("book.barcode", barcode),
		),
	)
	defer span.End()

	var kind string
	err := l.db.QueryRowContext(ctx, `
		SELECT kind
		FROM ledger_events
		WHERE school_id = ? AND book_barcode = ?
		ORDER BY id DESC
		LIMIT 1
	`, schoolID, barcode).Scan(&kind)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query open purchase: %w", err)
	}

	open := Kind(kind) == KindPurchase
	span.SetAttributes(attribute.Bool("purchase.open", open))
	return open, nil
}

// EventsFor returns every event for the pair in sequence order.
func (l *Ledger) EventsFor(ctx context.Context, schoolID, barcode string) ([]Event, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.events_for",
		trace.WithAttributes(
			attribute.String("student.school_id", schoolID),
			attribute.String("book.barcode", barcode),
		),
	)
	defer span.End()

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, kind, school_id, book_barcode, created_at
		FROM ledger_events
		WHERE school_id = ? AND book_barcode = ?
		ORDER BY id ASC
	`, schoolID, barcode)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev        Event
			kind      string
			createdAt string
		)
		if err := rows.Scan(&ev.SequenceID, &kind, &ev.SchoolID, &ev.Barcode, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = Kind(kind)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			ev.CreatedAt = ts
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	span.SetAttributes(attribute.Int("events.count", len(events)))
	return events, nil
}
