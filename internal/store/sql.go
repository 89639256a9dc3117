package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/shared"
)

// Dialect selects placeholder style and write behaviour.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// defaultListLimit caps ListSessions when no limit is given.
const defaultListLimit = 50

// sessionColumns lists columns returned by session SELECT queries.
var sessionColumns = []string{
	"id", "teacher_id", "class_id", "start_time", "end_time",
	"status", "people_count", "avg_attention",
}

var metricColumns = []string{
	"session_id", "person_id", "recorded_at", "emotion", "confidence", "attention",
}

var summaryColumns = []string{
	"session_id", "person_id", "presence_seconds", "avg_attention", "dominant_emotion",
}

// SQLStore implements Repository on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	sb      sq.StatementBuilderType
	dialect Dialect
	retry   shared.RetryPolicy

	// writeMu serialises SQLite writers to keep SQLITE_BUSY rare.
	writeMu sync.Mutex
}

// NewSQLStore wraps an open database. It does not run migrations.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	s := &SQLStore{db: db, dialect: dialect}
	switch dialect {
	case DialectPostgres:
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
		s.retry = shared.RetryPolicy{Attempts: 1}
	default:
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Question)
		s.retry = shared.DefaultSQLiteRetry
	}
	return s
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect returns the store dialect.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// StartSession closes active sessions and inserts the new one atomically.
func (s *SQLStore) StartSession(ctx context.Context, sess *domain.Session) (int64, error) {
	closeQ, closeArgs, err := s.closeActive(sess.StartTime).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build close sessions query: %w", err)
	}
	insQ, insArgs, err := s.sb.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			sess.ID, sess.TeacherID, sess.ClassID, toMillis(sess.StartTime), nullMillis(sess.EndTime),
			string(sess.Status), sess.PeopleCount, sess.AvgAttention,
		).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert session query: %w", err)
	}

	var closed int64
	err = s.withTx(ctx, "start session", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, closeQ, closeArgs...)
		if err != nil {
			return fmt.Errorf("close active sessions: %w", err)
		}
		if closed, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insQ, insArgs...); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return closed, nil
}

// FinishSession marks the session completed and inserts its summaries.
func (s *SQLStore) FinishSession(ctx context.Context, f Finish) error {
	updQ, updArgs, err := s.sb.Update("sessions").
		Set("status", string(domain.SessionCompleted)).
		Set("end_time", toMillis(f.EndTime)).
		Set("people_count", f.PeopleCount).
		Set("avg_attention", f.AvgAttention).
		Where(sq.Eq{"id": f.SessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build finish session query: %w", err)
	}

	var insQ string
	var insArgs []any
	if len(f.Summaries) > 0 {
		ins := s.sb.Insert("person_summaries").Columns(summaryColumns...)
		for _, p := range f.Summaries {
			ins = ins.Values(f.SessionID, p.PersonID, p.PresenceSeconds, p.AvgAttention, string(p.DominantEmotion))
		}
		if insQ, insArgs, err = ins.ToSql(); err != nil {
			return fmt.Errorf("build insert summaries query: %w", err)
		}
	}

	return s.withTx(ctx, "finish session", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updQ, updArgs...)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("finish session %s: %w", f.SessionID, domain.ErrSessionNotFound)
		}
		if insQ == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx, insQ, insArgs...); err != nil {
			return fmt.Errorf("insert summaries: %w", err)
		}
		return nil
	})
}

// AppendMetrics inserts metric rows and updates the running people count.
func (s *SQLStore) AppendMetrics(ctx context.Context, sessionID string, rows []domain.PersonMetric, peopleCount int) error {
	if len(rows) == 0 {
		return nil
	}
	ins := s.sb.Insert("person_metrics").Columns(metricColumns...)
	for _, r := range rows {
		ins = ins.Values(sessionID, r.PersonID, toMillis(r.Timestamp), string(r.Emotion), r.Confidence, r.Attention)
	}
	insQ, insArgs, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert metrics query: %w", err)
	}
	updQ, updArgs, err := s.sb.Update("sessions").
		Set("people_count", peopleCount).
		Where(sq.Eq{"id": sessionID, "status": string(domain.SessionActive)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update people count query: %w", err)
	}

	return s.withTx(ctx, "append metrics", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insQ, insArgs...); err != nil {
			return fmt.Errorf("insert metrics: %w", err)
		}
		if _, err := tx.ExecContext(ctx, updQ, updArgs...); err != nil {
			return fmt.Errorf("update people count: %w", err)
		}
		return nil
	})
}

// GetSession retrieves a session by ID.
func (s *SQLStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	q, args, err := s.sb.Select(sessionColumns...).From("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get session query: %w", err)
	}

	sess, err := scanSession(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return sess, nil
}

// ListSessions returns up to limit sessions, newest first.
func (s *SQLStore) ListSessions(ctx context.Context, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q, args, err := s.sb.Select(sessionColumns...).From("sessions").
		OrderBy("start_time DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer closeRows(rows, "sessions")

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// CloseActiveSessions completes every active session.
func (s *SQLStore) CloseActiveSessions(ctx context.Context, end time.Time) (int64, error) {
	q, args, err := s.closeActive(end).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build close sessions query: %w", err)
	}

	var closed int64
	err = s.withTx(ctx, "close active sessions", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("close active sessions: %w", err)
		}
		closed, err = res.RowsAffected()
		return err
	})
	return closed, err
}

// ListPersonMetrics returns the metric rows of a session.
func (s *SQLStore) ListPersonMetrics(ctx context.Context, sessionID string) ([]domain.PersonMetric, error) {
	q, args, err := s.sb.Select(metricColumns...).From("person_metrics").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("recorded_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list metrics query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer closeRows(rows, "metrics")

	var out []domain.PersonMetric
	for rows.Next() {
		var m domain.PersonMetric
		var ts int64
		var emotion string
		if err := rows.Scan(&m.SessionID, &m.PersonID, &ts, &emotion, &m.Confidence, &m.Attention); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		m.Timestamp = fromMillis(ts)
		m.Emotion = domain.Emotion(emotion)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return out, nil
}

// ListPersonSummaries returns the summary rows of a session.
func (s *SQLStore) ListPersonSummaries(ctx context.Context, sessionID string) ([]domain.PersonSummary, error) {
	q, args, err := s.sb.Select(summaryColumns...).From("person_summaries").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list summaries query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer closeRows(rows, "summaries")

	var out []domain.PersonSummary
	for rows.Next() {
		var p domain.PersonSummary
		var emotion string
		if err := rows.Scan(&p.SessionID, &p.PersonID, &p.PresenceSeconds, &p.AvgAttention, &emotion); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		p.DominantEmotion = domain.Emotion(emotion)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

func (s *SQLStore) closeActive(end time.Time) sq.UpdateBuilder {
	return s.sb.Update("sessions").
		Set("status", string(domain.SessionCompleted)).
		Set("end_time", toMillis(end)).
		Where(sq.Eq{"status": string(domain.SessionActive)})
}

// withTx runs fn in a transaction, retrying SQLite write conflicts.
func (s *SQLStore) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	if s.dialect == DialectSQLite {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}
	return shared.Retry(ctx, s.retry, op, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("Transaction rollback failed", "op", op, "error", rbErr)
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var sess domain.Session
	var start int64
	var end sql.NullInt64
	var status string
	if err := row.Scan(
		&sess.ID, &sess.TeacherID, &sess.ClassID, &start, &end,
		&status, &sess.PeopleCount, &sess.AvgAttention,
	); err != nil {
		return nil, err
	}
	sess.StartTime = fromMillis(start)
	if end.Valid {
		t := fromMillis(end.Int64)
		sess.EndTime = &t
	}
	sess.Status = domain.SessionStatus(status)
	return &sess, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("Failed to close rows", "rows", what, "error", err)
	}
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
