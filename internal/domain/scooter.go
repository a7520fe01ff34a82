package domain

import (
	"fmt"
	"net/url"
)

// Scooter represents a rentable e-scooter and its last reported position.
type Scooter struct {
	ID        string
	Latitude  float64
	Longitude float64
	Status    int
}

// MapEmbedURL returns an embeddable map URL centred on the scooter.
func (s *Scooter) MapEmbedURL() string {
	return fmt.Sprintf(
		"https://maps.google.com/maps?q=%s,%s&z=15&output=embed",
		url.QueryEscape(fmt.Sprint(s.Latitude)),
		url.QueryEscape(fmt.Sprint(s.Longitude)),
	)
}
