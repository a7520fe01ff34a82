package domain

// Rental represents the backend's record of a single ride.
// The gateway never mutates it; it is fetched to render state and to compute duration.
type Rental struct {
	ID        string
	UserID    string
	ScooterID string
	Active    bool
	StartTime string // Server wall-clock timestamp, e.g. 2025-03-31T11:25:29
	EndTime   string
	Price     float64
}

// HasTimestamps reports whether both ride timestamps are present.
func (r *Rental) HasTimestamps() bool {
	return r != nil && r.StartTime != "" && r.EndTime != ""
}

// ElapsedDuration is a ride duration split into zero-padded two-digit fields.
type ElapsedDuration struct {
	Hours   string `json:"hours"`
	Minutes string `json:"minutes"`
	Seconds string `json:"seconds"`
}

// String renders the duration as HH:MM:SS.
func (d ElapsedDuration) String() string {
	return d.Hours + ":" + d.Minutes + ":" + d.Seconds
}

// RideSummary is the billed summary shown after a ride ends or is aborted for weather.
type RideSummary struct {
	RentalID string           `json:"rental_id"`
	Duration *ElapsedDuration `json:"duration,omitempty"`
	Price    float64          `json:"price"`
	Balance  float64          `json:"balance"`
}
