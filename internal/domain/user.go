package domain

import "strings"

// User represents a rider as known to the backend.
type User struct {
	ID      string
	Name    string
	Balance float64
}

// FirstName returns the first word of the rider's name for greetings.
func (u *User) FirstName() string {
	if u == nil {
		return ""
	}
	fields := strings.Fields(u.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
