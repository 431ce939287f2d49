package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
)

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"siteId"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"createdAt"`
}

// EventRepo is the append-only change log behind every document write.
// It implements docstore.Journal.
type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Record appends a document change as "<collection>.<op>" keyed by path.
func (r *EventRepo) Record(ctx context.Context, c docstore.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.Append(ctx, Event{
		Type:     string(c.Collection) + "." + string(c.Op),
		Key:      c.Ref().Path(),
		DataJSON: string(data),
	})
}

// Since returns events after seq in append order, at most limit of them.
func (r *EventRepo) Since(ctx context.Context, seq int64, limit int) ([]Event, error) {
	return r.query(ctx, `WHERE seq > $1 ORDER BY seq ASC LIMIT $2`, seq, limit)
}

// SinceUnder is Since restricted to keys starting with prefix, e.g. one
// user's "users/<id>/".
func (r *EventRepo) SinceUnder(ctx context.Context, prefix string, seq int64, limit int) ([]Event, error) {
	return r.query(ctx, `WHERE seq > $1 AND substr(key, 1, $3) = $4 ORDER BY seq ASC LIMIT $2`,
		seq, limit, len(prefix), prefix)
}

func (r *EventRepo) query(ctx context.Context, where string, seq int64, limit int, args ...any) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log `+where,
		append([]any{seq, limit}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Latest is the highest sequence number written so far, 0 when empty.
func (r *EventRepo) Latest(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM event_log`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq.Int64, nil
}
