package repository

import (
	"context"
	"database/sql"

	"github.com/appletondrawingclub/registration-api/internal/model"
)

// EventRepo reads the events/locations reference relations. These tables
// are owned by the content pipeline; this service never writes them. The
// joined projection is scanned into an explicit EventDetail DTO rather
// than generic rows so the boundary stays typed.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// GetDetail returns an event with its location joined in, or
// ErrEventNotFound when the id does not exist.
func (r *EventRepo) GetDetail(ctx context.Context, id string) (*model.EventDetail, error) {
	const q = `SELECT e.id, e.title, e.date, e.time, e.price, e.capacity, e.special_notes,
	                  l.id, l.name, l.address
	           FROM events e
	           JOIN locations l ON l.id = e.location_id
	           WHERE e.id = ?`
	var det model.EventDetail
	var notes sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&det.ID, &det.Title, &det.Date, &det.Time, &det.Price, &det.Capacity, &notes,
		&det.Location.ID, &det.Location.Name, &det.Location.Address,
	)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		det.SpecialNotes = &notes.String
	}
	return &det, nil
}
