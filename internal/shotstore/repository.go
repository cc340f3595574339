package shotstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/skylink-core/internal/monitor"
)

// Classification log page sizes.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ClassificationEntry is one row of the classification log.
type ClassificationEntry struct {
	ID         int64                  `json:"id"`
	Mode       monitor.ShotMode       `json:"mode"`
	Confidence monitor.ConfidenceMode `json:"confidence_mode"`
	Score      float64                `json:"score"`
	Accepted   bool                   `json:"accepted"`
	Reason     string                 `json:"reason,omitempty"`
	BallSpeed  float64                `json:"ball_speed"`
	CapturedAt time.Time              `json:"captured_at"`
}

// SQLiteRepository implements monitor.ShotStore and
// monitor.ClassificationRecorder on SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// SaveLastShot replaces the stored last shot.
func (r *SQLiteRepository) SaveLastShot(ctx context.Context, shot monitor.ShotRecord) error {
	data, err := json.Marshal(shot)
	if err != nil {
		return fmt.Errorf("encoding shot: %w", err)
	}

	const query = `INSERT INTO last_shot (id, ball_position, shot, captured_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			ball_position = excluded.ball_position,
			shot = excluded.shot,
			captured_at = excluded.captured_at,
			updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query,
		string(shot.BallPosition),
		string(data),
		shot.CapturedAt.UTC().Format(time.RFC3339Nano),
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving last shot: %w", err)
	}
	return nil
}

// LoadLastShot returns the stored last shot. ok is false when none has been
// saved.
func (r *SQLiteRepository) LoadLastShot(ctx context.Context) (shot monitor.ShotRecord, ok bool, err error) {
	var data string
	err = r.db.QueryRowContext(ctx, `SELECT shot FROM last_shot WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return monitor.ShotRecord{}, false, nil
	}
	if err != nil {
		return monitor.ShotRecord{}, false, fmt.Errorf("loading last shot: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &shot); err != nil {
		return monitor.ShotRecord{}, false, fmt.Errorf("decoding last shot: %w", err)
	}
	return shot, true, nil
}

// ClearLastShot removes the stored last shot.
func (r *SQLiteRepository) ClearLastShot(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM last_shot`); err != nil {
		return fmt.Errorf("clearing last shot: %w", err)
	}
	return nil
}

// RecordClassification appends c to the classification log.
func (r *SQLiteRepository) RecordClassification(ctx context.Context, shot monitor.ShotRecord, c monitor.Classification) error {
	captured := shot.CapturedAt
	if captured.IsZero() {
		captured = r.now()
	}

	const query = `INSERT INTO shot_classifications
		(mode, confidence, score, accepted, reason, ball_speed, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		string(c.Mode), string(c.Confidence), c.Score, boolToInt(c.Accepted),
		c.Reason, shot.Launch.TotalSpeed, captured.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording classification: %w", err)
	}
	return nil
}

// ListClassifications returns the newest log entries first. limit is
// clamped to [1, MaxListLimit]; zero or less means DefaultListLimit.
func (r *SQLiteRepository) ListClassifications(ctx context.Context, limit int) ([]ClassificationEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	const query = `SELECT id, mode, confidence, score, accepted, reason, ball_speed, captured_at
		FROM shot_classifications ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing classifications: %w", err)
	}
	defer rows.Close()

	entries := make([]ClassificationEntry, 0, limit)
	for rows.Next() {
		var (
			e        ClassificationEntry
			accepted int
			captured string
		)
		if err := rows.Scan(&e.ID, &e.Mode, &e.Confidence, &e.Score, &accepted,
			&e.Reason, &e.BallSpeed, &captured); err != nil {
			return nil, fmt.Errorf("scanning classification: %w", err)
		}
		e.Accepted = accepted != 0
		e.CapturedAt, err = time.Parse(time.RFC3339Nano, captured)
		if err != nil {
			return nil, fmt.Errorf("parsing captured_at %q: %w", captured, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating classifications: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
