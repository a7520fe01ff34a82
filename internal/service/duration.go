package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scooter/internal/domain"
)

// ErrMalformedTimestamp is returned when a ride timestamp has no T separator
// or fewer than three colon-delimited time fields.
var ErrMalformedTimestamp = errors.New("malformed ride timestamp")

// DurationCalculator computes ride durations from backend wall-clock timestamps.
// Only the time of day is used; the end timestamp is shifted by a fixed correction.
type DurationCalculator struct {
	endCorrection int64 // seconds
}

// NewDurationCalculator creates a new DurationCalculator applying endCorrection
// to the end timestamp only.
func NewDurationCalculator(endCorrection time.Duration) *DurationCalculator {
	return &DurationCalculator{endCorrection: int64(endCorrection / time.Second)}
}

// Elapsed returns the absolute difference between start and end as zero-padded fields.
func (c *DurationCalculator) Elapsed(start, end string) (domain.ElapsedDuration, error) {
	startSeconds, err := secondsOfDay(start)
	if err != nil {
		return domain.ElapsedDuration{}, err
	}
	endSeconds, err := secondsOfDay(end)
	if err != nil {
		return domain.ElapsedDuration{}, err
	}

	elapsed := endSeconds + c.endCorrection - startSeconds
	if elapsed < 0 {
		elapsed = -elapsed
	}
	return splitSeconds(elapsed), nil
}

// FormatClock renders a live ride counter as HH:MM:SS.
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return splitSeconds(seconds).String()
}

func splitSeconds(total int64) domain.ElapsedDuration {
	return domain.ElapsedDuration{
		Hours:   fmt.Sprintf("%02d", total/3600),
		Minutes: fmt.Sprintf("%02d", (total%3600)/60),
		Seconds: fmt.Sprintf("%02d", total%60),
	}
}

// secondsOfDay parses the HH:MM:SS portion after the T separator. Anything
// following the seconds digits (fractions, zone suffixes) is ignored.
func secondsOfDay(timestamp string) (int64, error) {
	_, clock, found := strings.Cut(timestamp, "T")
	if !found {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, timestamp)
	}

	fields := strings.SplitN(clock, ":", 3)
	if len(fields) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, timestamp)
	}

	hours, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, timestamp)
	}
	minutes, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, timestamp)
	}
	seconds, err := strconv.Atoi(leadingDigits(fields[2]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, timestamp)
	}

	return int64(hours)*3600 + int64(minutes)*60 + int64(seconds), nil
}

func leadingDigits(s string) string {
	for i, r := range s {
		if r < '0' || r > '9' {
			return s[:i]
		}
	}
	return s
}
