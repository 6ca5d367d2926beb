package store

import (
	"database/sql"
	"time"
)

// Rep is a single completed repetition within a session.
type Rep struct {
	ID        int64
	SessionID string
	Number    int
	Frame     int
	Angle     float64
	CreatedAt time.Time
}

// RepRepository stores the repetitions of each session.
type RepRepository struct {
	db *sql.DB
}

// Reps returns the rep repository for this store.
func (s *Store) Reps() *RepRepository {
	return &RepRepository{db: s.db}
}

// Add records a repetition. CreatedAt defaults to now.
func (r *RepRepository) Add(rep *Rep) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO reps (session_id, number, frame, angle, created_at) VALUES (?, ?, ?, ?, ?)`,
		rep.SessionID, rep.Number, rep.Frame, rep.Angle, rep.CreatedAt,
	)
	if err != nil {
		return err
	}

	rep.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns the reps of a session in order.
func (r *RepRepository) ListBySession(sessionID string) ([]Rep, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, number, frame, angle, created_at
		 FROM reps
		 WHERE session_id = ?
		 ORDER BY number`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reps []Rep
	for rows.Next() {
		var rep Rep
		if err := rows.Scan(&rep.ID, &rep.SessionID, &rep.Number, &rep.Frame, &rep.Angle, &rep.CreatedAt); err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reps, nil
}
