package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/scenarioflow/control-plane/domain/session"
	"github.com/scenarioflow/control-plane/internal/apperrors"
	"github.com/scenarioflow/control-plane/internal/repository"
)

type sessionRepo struct {
	db *sqlx.DB
}

type sessionRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	URL       string    `db:"url"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func sessionFromRow(r sessionRow) session.Session {
	return session.Session{
		ID:        r.ID,
		Name:      r.Name,
		URL:       r.URL,
		Status:    session.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *sessionRepo) Create(ctx context.Context, s session.Session) (session.Session, error) {
	if s.ID == "" {
		s.ID = newID("session")
	}
	if s.Status == "" {
		s.Status = session.StatusRecording
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, url, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.Name, s.URL, string(s.Status), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return session.Session{}, apperrors.Internal("insert session", err)
	}
	return s, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (session.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, apperrors.NotFound("session", id)
	}
	if err != nil {
		return session.Session{}, apperrors.Internal("select session", err)
	}
	return sessionFromRow(row), nil
}

func (r *sessionRepo) GetWithEvents(ctx context.Context, id string) (session.Session, []session.RawEvent, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return session.Session{}, nil, err
	}
	events, err := r.GetEvents(ctx, id)
	if err != nil {
		return session.Session{}, nil, err
	}
	return s, events, nil
}

func (r *sessionRepo) List(ctx context.Context, p repository.Page) ([]session.Session, error) {
	limit, offset := pageBounds(p)
	var rows []sessionRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM sessions ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("list sessions", err)
	}
	out := make([]session.Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, sessionFromRow(row))
	}
	return out, nil
}

func (r *sessionRepo) Update(ctx context.Context, id string, patch session.Session) (session.Session, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return session.Session{}, err
	}
	patch.ID = existing.ID
	patch.CreatedAt = existing.CreatedAt
	patch.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		UPDATE sessions SET name=$1, url=$2, status=$3, updated_at=$4 WHERE id=$5
	`, patch.Name, patch.URL, string(patch.Status), patch.UpdatedAt, id)
	if err != nil {
		return session.Session{}, apperrors.Internal("update session", err)
	}
	return patch, nil
}

func (r *sessionRepo) Stop(ctx context.Context, id string) (session.Session, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return session.Session{}, err
	}
	existing.Status = session.StatusStopped
	return r.Update(ctx, id, existing)
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("delete session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("session", id)
	}
	return nil
}

type rawEventRow struct {
	ID          string         `db:"id"`
	SessionID   string         `db:"session_id"`
	Type        string         `db:"type"`
	TimestampMs int64          `db:"timestamp_ms"`
	URL         sql.NullString `db:"url"`
	Target      sql.NullString `db:"target"`
	Value       sql.NullString `db:"value"`
	Key         sql.NullString `db:"key"`
	IsSensitive bool           `db:"is_sensitive"`
}

func eventFromRow(r rawEventRow) session.RawEvent {
	e := session.RawEvent{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Type:        session.EventKind(r.Type),
		TimestampMs: r.TimestampMs,
		URL:         r.URL.String,
		Value:       r.Value.String,
		Key:         r.Key.String,
		IsSensitive: r.IsSensitive,
	}
	if r.Target.Valid {
		var t session.Target
		if jsonUnmarshalOK(r.Target.String, &t) {
			e.Target = &t
		}
	}
	return e
}

// AddEvent inserts e, silently ignoring a duplicate id (idempotent insert,
// spec.md §6 "AddEvent* must be idempotent on the event id").
func (r *sessionRepo) AddEvent(ctx context.Context, e session.RawEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_events (id, session_id, type, timestamp_ms, url, target, value, key, is_sensitive)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.SessionID, string(e.Type), e.TimestampMs, e.URL, marshalJSON(e.Target), e.Value, e.Key, e.IsSensitive)
	if err != nil {
		return apperrors.Internal("insert session event", err)
	}
	return nil
}

// AddEvents inserts a batch of events, each idempotent on id as AddEvent.
func (r *sessionRepo) AddEvents(ctx context.Context, events []session.RawEvent) error {
	for _, e := range events {
		if err := r.AddEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *sessionRepo) GetEvents(ctx context.Context, sessionID string) ([]session.RawEvent, error) {
	var rows []rawEventRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM session_events WHERE session_id = $1 ORDER BY timestamp_ms ASC
	`, sessionID)
	if err != nil {
		return nil, apperrors.Internal("select session events", err)
	}
	out := make([]session.RawEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, eventFromRow(row))
	}
	return out, nil
}

func (r *sessionRepo) ClearEvents(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_events WHERE session_id = $1`, sessionID)
	if err != nil {
		return apperrors.Internal("clear session events", err)
	}
	return nil
}
