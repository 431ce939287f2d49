package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mind-engage/mindengage-rubrics/internal/logger"
)

// SQLStore keeps documents in the documents table (see internal/db).
type SQLStore struct {
	db       *sql.DB
	driver   string // "sqlite" or "postgres"
	notifier Notifier
	journal  Journal
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
	tracer   trace.Tracer
}

type Option func(*SQLStore)

func WithJournal(j Journal) Option { return func(s *SQLStore) { s.journal = j } }
func WithLogger(l *logger.Logger) Option { return func(s *SQLStore) { s.log = l } }
func WithClock(now func() time.Time) Option { return func(s *SQLStore) { s.now = now } }
func WithIDFunc(fn func() string) Option { return func(s *SQLStore) { s.newID = fn } }
func WithNotifier(n Notifier) Option { return func(s *SQLStore) { s.notifier = n } }

func NewSQLStore(db *sql.DB, driver string, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:     db,
		driver: driver,
		log:    logger.Nop(),
		now:    time.Now,
		newID:  uuid.NewString,
		tracer: otel.Tracer("github.com/mind-engage/mindengage-rubrics/internal/docstore"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.notifier == nil {
		s.notifier = NewHub()
	}
	return s
}

func (s *SQLStore) Notifier() Notifier { return s.notifier }

func (s *SQLStore) span(ctx context.Context, op string, ref Ref) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "docstore."+op, trace.WithAttributes(
		attribute.String("docstore.collection", string(ref.Collection)),
		attribute.String("docstore.id", ref.ID),
	))
}

func end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *SQLStore) Add(ctx context.Context, q Query, data any) (string, error) {
	ref := q.Ref(s.newID())
	if err := s.put(ctx, ref, data, OpCreate); err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *SQLStore) Set(ctx context.Context, ref Ref, data any) error {
	return s.put(ctx, ref, data, OpSet)
}

func (s *SQLStore) put(ctx context.Context, ref Ref, data any, op Op) (err error) {
	ctx, span := s.span(ctx, string(op), ref)
	defer func() { end(span, err) }()

	if err := ref.validate(); err != nil {
		return err
	}
	body, err := marshalObject(data)
	if err != nil {
		return err
	}
	ts := s.now().UnixNano()
	_, err = s.db.ExecContext(ctx, `INSERT INTO documents (user_id, collection, id, data, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		ref.UserID, string(ref.Collection), ref.ID, string(body), ts, ts)
	if err != nil {
		return err
	}
	s.changed(ctx, Change{UserID: ref.UserID, Collection: ref.Collection, ID: ref.ID, Op: op})
	return nil
}

func (s *SQLStore) Update(ctx context.Context, ref Ref, fields map[string]any) error {
	return s.merge(ctx, ref, fields, false)
}

func (s *SQLStore) Merge(ctx context.Context, ref Ref, fields map[string]any) error {
	return s.merge(ctx, ref, fields, true)
}

func (s *SQLStore) merge(ctx context.Context, ref Ref, fields map[string]any, create bool) (err error) {
	ctx, span := s.span(ctx, "update", ref)
	defer func() { end(span, err) }()

	if err := ref.validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := `SELECT data FROM documents WHERE user_id=$1 AND collection=$2 AND id=$3`
	if s.driver == "postgres" {
		q += ` FOR UPDATE`
	}
	var raw string
	obj := map[string]json.RawMessage{}
	err = tx.QueryRowContext(ctx, q, ref.UserID, string(ref.Collection), ref.ID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !create {
			return ErrNotFound
		}
	case err != nil:
		return err
	default:
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return fmt.Errorf("docstore: corrupt document %s: %w", ref.Path(), err)
		}
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		obj[k] = b
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	ts := s.now().UnixNano()
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents (user_id, collection, id, data, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		ref.UserID, string(ref.Collection), ref.ID, string(body), ts, ts); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.changed(ctx, Change{UserID: ref.UserID, Collection: ref.Collection, ID: ref.ID, Op: OpUpdate})
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, ref Ref) (err error) {
	ctx, span := s.span(ctx, "delete", ref)
	defer func() { end(span, err) }()

	if err := ref.validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE user_id=$1 AND collection=$2 AND id=$3`,
		ref.UserID, string(ref.Collection), ref.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	s.changed(ctx, Change{UserID: ref.UserID, Collection: ref.Collection, ID: ref.ID, Op: OpDelete})
	return nil
}

func (s *SQLStore) Get(ctx context.Context, ref Ref) (d Doc, err error) {
	ctx, span := s.span(ctx, "get", ref)
	defer func() { end(span, err) }()

	if err := ref.validate(); err != nil {
		return Doc{}, err
	}
	var raw string
	var created, updated int64
	err = s.db.QueryRowContext(ctx, `SELECT id, data, created_at, updated_at FROM documents
		WHERE user_id=$1 AND collection=$2 AND id=$3`, ref.UserID, string(ref.Collection), ref.ID).
		Scan(&d.ID, &raw, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Doc{}, ErrNotFound
	}
	if err != nil {
		return Doc{}, err
	}
	d.Data = json.RawMessage(raw)
	d.CreatedAt, d.UpdatedAt = time.Unix(0, created), time.Unix(0, updated)
	return d, nil
}

func (s *SQLStore) List(ctx context.Context, q Query) (docs []Doc, err error) {
	ctx, span := s.span(ctx, "list", q.Ref(""))
	defer func() { end(span, err) }()

	if q.UserID == "" {
		return nil, ErrNoUser
	}
	order := "created_at ASC, id ASC"
	if q.Newest {
		order = "created_at DESC, id DESC"
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, data, created_at, updated_at FROM documents
		WHERE user_id=$1 AND collection=$2 ORDER BY `+order, q.UserID, string(q.Collection))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs = []Doc{}
	for rows.Next() {
		var d Doc
		var raw string
		var created, updated int64
		if err := rows.Scan(&d.ID, &raw, &created, &updated); err != nil {
			return nil, err
		}
		d.Data = json.RawMessage(raw)
		d.CreatedAt, d.UpdatedAt = time.Unix(0, created), time.Unix(0, updated)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// changed journals and publishes a committed write. Failures here do not
// fail the write; subscribers catch up on the next change.
func (s *SQLStore) changed(ctx context.Context, c Change) {
	if s.journal != nil {
		if err := s.journal.Record(ctx, c); err != nil {
			s.log.Warn("journal append failed", "path", c.Ref().Path(), "error", err)
		}
	}
	if err := s.notifier.Publish(ctx, c); err != nil {
		s.log.Warn("change publish failed", "path", c.Ref().Path(), "error", err)
	}
}

func (s *SQLStore) SubscribeCollection(ctx context.Context, q Query, fn func([]Doc)) (Unsubscribe, error) {
	match := func(c Change) bool { return c.UserID == q.UserID && c.Collection == q.Collection }
	read := func(ctx context.Context) error {
		docs, err := s.List(ctx, q)
		if err != nil {
			return err
		}
		fn(docs)
		return nil
	}
	return s.subscribe(ctx, q.Ref(""), match, read)
}

func (s *SQLStore) SubscribeDocument(ctx context.Context, ref Ref, fn func(Doc, bool)) (Unsubscribe, error) {
	match := func(c Change) bool { return c.Ref() == ref }
	read := func(ctx context.Context) error {
		d, err := s.Get(ctx, ref)
		switch {
		case errors.Is(err, ErrNotFound):
			fn(Doc{ID: ref.ID}, false)
			return nil
		case err != nil:
			return err
		}
		fn(d, true)
		return nil
	}
	return s.subscribe(ctx, ref, match, read)
}

// subscribe delivers the first snapshot synchronously, then re-reads on
// every matching change until the subscription is cancelled.
func (s *SQLStore) subscribe(ctx context.Context, ref Ref, match func(Change) bool, read func(context.Context) error) (Unsubscribe, error) {
	signals, stopWatch := s.notifier.Watch(match)
	if err := read(ctx); err != nil {
		stopWatch()
		return nil, err
	}
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		defer stopWatch()
		for {
			select {
			case <-sctx.Done():
				return
			case <-signals:
				if sctx.Err() != nil {
					return
				}
				if err := read(sctx); err != nil && sctx.Err() == nil {
					s.log.Warn("subscription refresh failed", "collection", string(ref.Collection), "id", ref.ID, "error", err)
				}
			}
		}
	}()
	return Unsubscribe(cancel), nil
}

func marshalObject(data any) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("docstore: document body must be a JSON object")
	}
	return b, nil
}
