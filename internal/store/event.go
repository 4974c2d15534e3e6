package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Event is a stored gesture announcement.
type Event struct {
	ID        string    `json:"id"`
	StreamID  string    `json:"stream_id"`
	Label     string    `json:"label"`
	Display   string    `json:"display"`
	Repeat    bool      `json:"repeat"`
	CreatedAt time.Time `json:"created_at"`
}

// FromGesture converts a debouncer event into its stored form.
func FromGesture(ev gesture.Event) *Event {
	return &Event{
		ID:        ev.ID.String(),
		StreamID:  ev.StreamID,
		Label:     ev.Label.String(),
		Display:   ev.Display,
		Repeat:    ev.Repeat,
		CreatedAt: ev.Timestamp,
	}
}

// LabelCount is the number of events recorded for one label.
type LabelCount struct {
	Label   string `json:"label"`
	Display string `json:"display"`
	Count   int    `json:"count"`
}

// EventRepository records and queries gesture events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts an event. A zero CreatedAt is set to now.
func (r *EventRepository) Create(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO gesture_events (id, stream_id, label, display, repeat, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.StreamID, e.Label, e.Display, boolToInt(e.Repeat), e.CreatedAt.UnixMilli(),
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	row := r.db.QueryRow(
		`SELECT id, stream_id, label, display, repeat, created_at
		 FROM gesture_events WHERE id = ?`,
		id,
	)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns up to limit events, newest first. A limit <= 0 returns all.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	query := `SELECT id, stream_id, label, display, repeat, created_at
		 FROM gesture_events ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountByLabel returns per-label event counts, most frequent first.
func (r *EventRepository) CountByLabel() ([]LabelCount, error) {
	rows, err := r.db.Query(
		`SELECT label, MAX(display), COUNT(*) AS n
		 FROM gesture_events GROUP BY label ORDER BY n DESC, label ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []LabelCount
	for rows.Next() {
		var c LabelCount
		if err := rows.Scan(&c.Label, &c.Display, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// DeleteBefore removes events older than t and returns how many were removed.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM gesture_events WHERE created_at < ?`, t.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	e := &Event{}
	var repeat int
	var createdAt int64

	if err := s.Scan(&e.ID, &e.StreamID, &e.Label, &e.Display, &repeat, &createdAt); err != nil {
		return nil, err
	}

	e.Repeat = repeat != 0
	e.CreatedAt = time.UnixMilli(createdAt)
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
