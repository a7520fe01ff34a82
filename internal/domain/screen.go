package domain

import "net/url"

// ScreenName identifies a page the rider should be shown next.
type ScreenName string

const (
	ScreenRent     ScreenName = "rent"
	ScreenActive   ScreenName = "active"
	ScreenInactive ScreenName = "inactive"
	ScreenAbort    ScreenName = "abort"
	ScreenError    ScreenName = "error"
)

// Screen is a navigation decision. It carries enough context for a fresh page
// load to resume purely from the URL plus the session store.
type Screen struct {
	Name      ScreenName `json:"name"`
	ScooterID string     `json:"scooter_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	RentalID  string     `json:"rental_id,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
}

// Path returns the frontend route for the screen.
func (s Screen) Path() string {
	switch s.Name {
	case ScreenActive:
		return "/scooter/" + url.PathEscape(s.ScooterID) + "/active"
	case ScreenInactive:
		return "/scooter/" + url.PathEscape(s.ScooterID) + "/inactive"
	case ScreenAbort:
		return "/abort/" + url.PathEscape(s.Reason) + "/" + url.PathEscape(s.RentalID) + "/" + url.PathEscape(s.UserID)
	case ScreenError:
		return "/error/" + url.PathEscape(s.Reason)
	default:
		return "/scooter/" + url.PathEscape(s.ScooterID)
	}
}

// ErrorDescription is the content of an error page for a backend reason code.
type ErrorDescription struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Image   string `json:"image"`
}
