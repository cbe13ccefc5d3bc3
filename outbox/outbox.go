// Package outbox persists detected changes as notifications so delivery
// consumers can outlive the monitoring process.
//
// Rows are claimed with a visibility window: a claim hides its rows from
// other consumers until claimed_until, and an unacked claim expires and
// becomes claimable again. Acked rows stay in the table for the
// recent-notifications API.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/escale/dbopen"
	"github.com/hazyhaar/escale/monitor"
)

// Schema holds the notification queue. claimed_until and acked_at are
// milliseconds since epoch, zero meaning unclaimed respectively unacked.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    TEXT NOT NULL,
    source        TEXT NOT NULL,
    kind          TEXT NOT NULL,
    severity      TEXT NOT NULL,
    message       TEXT NOT NULL,
    payload       TEXT,
    created_at    INTEGER NOT NULL,
    claimed_by    TEXT NOT NULL DEFAULT '',
    claimed_until INTEGER NOT NULL DEFAULT 0,
    acked_at      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_notifications_claim ON notifications (acked_at, claimed_until, id);
CREATE INDEX IF NOT EXISTS idx_notifications_session ON notifications (session_id, id);
`

// ApplySchema creates the notification table and indexes.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// Notification is a stored change plus its delivery bookkeeping.
type Notification struct {
	ID           int64              `json:"id"`
	SessionID    string             `json:"session_id"`
	Source       monitor.SourceID   `json:"source"`
	Kind         monitor.ChangeKind `json:"kind"`
	Severity     monitor.Severity   `json:"severity"`
	Message      string             `json:"message"`
	Payload      json.RawMessage    `json:"payload,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	ClaimedBy    string             `json:"claimed_by,omitempty"`
	ClaimedUntil time.Time          `json:"claimed_until,omitzero"`
	AckedAt      time.Time          `json:"acked_at,omitzero"`
}

// Options configures the outbox.
type Options struct {
	// Visibility is how long a claim hides its rows when Claim is called
	// with no explicit window. Default: 5m.
	Visibility time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Visibility <= 0 {
		o.Visibility = 5 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Outbox is the queue handle over an already-opened database.
type Outbox struct {
	db   *sql.DB
	opts Options
}

// New creates an outbox handle. Call ApplySchema once at startup.
func New(db *sql.DB, opts Options) *Outbox {
	opts.defaults()
	return &Outbox{db: db, opts: opts}
}

// Publish appends the change as a notification for the session. The change
// payload is stored as JSON when present.
func (o *Outbox) Publish(ctx context.Context, session string, c monitor.Change) error {
	var payload []byte
	if c.Payload != nil {
		var err error
		payload, err = json.Marshal(c.Payload)
		if err != nil {
			return fmt.Errorf("outbox: marshal payload: %w", err)
		}
	}
	created := c.At
	if created.IsZero() {
		created = time.Now()
	}
	// Publish runs on the monitor's completion path while delivery
	// workers write acks to the same file, so writes retry on busy.
	_, err := dbopen.Exec(ctx, o.db, `
		INSERT INTO notifications (session_id, source, kind, severity, message, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session, string(c.Source), string(c.Kind), string(c.Severity), c.Message, payload, created.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("outbox: publish: %w", err)
	}
	return nil
}

// Subscriber returns a bus listener that persists every change for the
// session, logging failures instead of dropping them silently.
func (o *Outbox) Subscriber(session string) monitor.Listener {
	return func(c monitor.Change) {
		if err := o.Publish(context.Background(), session, c); err != nil {
			o.opts.Logger.Warn("outbox: publish failed",
				"session", session, "source", c.Source, "kind", c.Kind, "error", err)
		}
	}
}

// Claim atomically claims up to n unacked notifications whose previous claim
// (if any) has expired, oldest first, hiding them from other consumers until
// the visibility window lapses. A non-positive visibility uses the
// configured default. Returns an empty slice when nothing is claimable.
func (o *Outbox) Claim(ctx context.Context, consumer string, n int, visibility time.Duration) ([]Notification, error) {
	if n <= 0 {
		n = 1
	}
	if visibility <= 0 {
		visibility = o.opts.Visibility
	}
	now := time.Now()

	rows, err := o.db.QueryContext(ctx, `
		UPDATE notifications
		SET claimed_by = ?, claimed_until = ?
		WHERE id IN (
			SELECT id FROM notifications
			WHERE acked_at = 0 AND claimed_until <= ?
			ORDER BY id ASC
			LIMIT ?
		)
		RETURNING id, session_id, source, kind, severity, message, payload, created_at, claimed_by, claimed_until, acked_at`,
		consumer, now.Add(visibility).UnixMilli(), now.UnixMilli(), n,
	)
	if err != nil {
		return nil, fmt.Errorf("outbox: claim: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Ack marks notifications as delivered. Acked rows are never re-claimed but
// stay visible to Recent. Unknown ids are ignored.
func (o *Outbox) Ack(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UnixMilli())
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	_, err := dbopen.Exec(ctx, o.db,
		`UPDATE notifications SET acked_at = ? WHERE id IN (`+placeholders+`) AND acked_at = 0`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("outbox: ack: %w", err)
	}
	return nil
}

// Pending counts the session's undelivered notifications, claimed or not.
func (o *Outbox) Pending(ctx context.Context, session string) (int, error) {
	var n int
	err := o.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE session_id = ? AND acked_at = 0`,
		session,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("outbox: pending: %w", err)
	}
	return n, nil
}

// Recent returns the session's latest notifications, newest first, delivered
// or not. A non-positive limit defaults to 20.
func (o *Outbox) Recent(ctx context.Context, session string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, session_id, source, kind, severity, message, payload, created_at, claimed_by, claimed_until, acked_at
		FROM notifications
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		session, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("outbox: recent: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]Notification, error) {
	out := []Notification{}
	for rows.Next() {
		var n Notification
		var source, kind, severity string
		var payload []byte
		var createdMs, claimMs, ackMs int64
		if err := rows.Scan(&n.ID, &n.SessionID, &source, &kind, &severity, &n.Message, &payload, &createdMs, &n.ClaimedBy, &claimMs, &ackMs); err != nil {
			return nil, fmt.Errorf("outbox: scan: %w", err)
		}
		n.Source = monitor.SourceID(source)
		n.Kind = monitor.ChangeKind(kind)
		n.Severity = monitor.Severity(severity)
		if len(payload) > 0 {
			n.Payload = json.RawMessage(payload)
		}
		n.CreatedAt = time.UnixMilli(createdMs)
		if claimMs > 0 {
			n.ClaimedUntil = time.UnixMilli(claimMs)
		}
		if ackMs > 0 {
			n.AckedAt = time.UnixMilli(ackMs)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: scan: %w", err)
	}
	return out, nil
}
