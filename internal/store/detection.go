package store

import (
	"database/sql"
	"time"
)

// Detection is one logged pipeline pass.
type Detection struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Seq        uint64    `json:"seq"`
	CapturedAt time.Time `json:"captured_at"`
	Outcome    string    `json:"outcome"`
	Circles    int       `json:"circles"`
	Lines      int       `json:"lines"`
	RawX       int       `json:"raw_x"`
	RawY       int       `json:"raw_y"`
	RawR       int       `json:"raw_r"`
	SignalX    int       `json:"signal_x"`
	SignalY    int       `json:"signal_y"`
	SignalR    int       `json:"signal_r"`
	Emitted    bool      `json:"emitted"`
	Reset      bool      `json:"reset"`
	Threshold  float64   `json:"threshold"`
}

// DetectionRepository provides access to the detection log.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

const insertDetection = `INSERT INTO detections
	(session_id, seq, captured_at, outcome, circles, lines, raw_x, raw_y, raw_r,
	 signal_x, signal_y, signal_r, emitted, reset, threshold)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Create appends a single detection to the log.
func (r *DetectionRepository) Create(d *Detection) error {
	result, err := r.db.Exec(insertDetection, detectionArgs(d)...)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// CreateBatch appends several detections in a single transaction.
func (r *DetectionRepository) CreateBatch(ds []*Detection) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertDetection)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range ds {
		result, err := stmt.Exec(detectionArgs(d)...)
		if err != nil {
			return err
		}
		if d.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func detectionArgs(d *Detection) []any {
	return []any{
		d.SessionID, int64(d.Seq), d.CapturedAt, d.Outcome, d.Circles, d.Lines,
		d.RawX, d.RawY, d.RawR, d.SignalX, d.SignalY, d.SignalR,
		d.Emitted, d.Reset, d.Threshold,
	}
}

// ListBySession retrieves the detections of a session in frame order.
// A limit of 0 or less returns all of them.
func (r *DetectionRepository) ListBySession(sessionID string, limit int) ([]Detection, error) {
	query := `SELECT id, session_id, seq, captured_at, outcome, circles, lines,
		 raw_x, raw_y, raw_r, signal_x, signal_y, signal_r, emitted, reset, threshold
		 FROM detections
		 WHERE session_id = ?
		 ORDER BY seq`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []Detection
	for rows.Next() {
		var d Detection
		var seq int64
		if err := rows.Scan(&d.ID, &d.SessionID, &seq, &d.CapturedAt, &d.Outcome,
			&d.Circles, &d.Lines, &d.RawX, &d.RawY, &d.RawR,
			&d.SignalX, &d.SignalY, &d.SignalR, &d.Emitted, &d.Reset, &d.Threshold); err != nil {
			return nil, err
		}
		d.Seq = uint64(seq)
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return detections, nil
}

// CountBySession returns the number of logged frames of a session.
func (r *DetectionRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM detections WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// DeleteBySession removes all detections for a session.
func (r *DetectionRepository) DeleteBySession(sessionID string) error {
	_, err := r.db.Exec(`DELETE FROM detections WHERE session_id = ?`, sessionID)
	return err
}
