package model

// Location is read-only reference data describing where an event is held.
type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// EventDetail is the typed projection of the events/locations join used to
// compute totals and render confirmation email content. The events relation
// is owned by the content pipeline; this service only reads it.
type EventDetail struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Price        float64  `json:"price"`
	Capacity     int      `json:"capacity"`
	SpecialNotes *string  `json:"special_notes,omitempty"`
	Location     Location `json:"location"`
}
