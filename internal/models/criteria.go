// Package models defines the domain models used across the application.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for every travel date.
const DateLayout = "2006-01-02"

// SearchCriteria is the fixed itinerary searched on every run.
// It is read once at startup and never mutated afterwards.
type SearchCriteria struct {
	// Origin is the departure airport IATA code (e.g., "IAD").
	Origin string `json:"origin"`

	// Destination is the arrival airport IATA code (e.g., "IDR").
	Destination string `json:"destination"`

	// DepartureStart and DepartureEnd bound the outbound date window (inclusive).
	DepartureStart string `json:"departure_start"`
	DepartureEnd   string `json:"departure_end"`

	// ReturnStart and ReturnEnd bound the inbound date window (inclusive).
	ReturnStart string `json:"return_start"`
	ReturnEnd   string `json:"return_end"`

	// Passengers is the number of adult travellers.
	Passengers int `json:"passengers"`

	// TravelClass is the cabin: "economy", "business", ...
	TravelClass string `json:"travel_class"`
}

// RouteKey identifies a price series: one route over one date window.
type RouteKey string

// RouteKey derives the series key for the criteria.
// Example: "IAD-IDR:2026-06-13..2026-06-17:2026-06-30..2026-07-05"
func (c SearchCriteria) RouteKey() RouteKey {
	return RouteKey(fmt.Sprintf("%s-%s:%s..%s:%s..%s",
		strings.ToUpper(c.Origin),
		strings.ToUpper(c.Destination),
		c.DepartureStart, c.DepartureEnd,
		c.ReturnStart, c.ReturnEnd,
	))
}

// Slug turns the key into something usable as a directory name.
func (k RouteKey) Slug() string {
	r := strings.NewReplacer(":", "_", "..", "~", "/", "_")
	return r.Replace(string(k))
}

// DepartureDates enumerates every date of the outbound window.
func (c SearchCriteria) DepartureDates() ([]string, error) {
	return dateRange(c.DepartureStart, c.DepartureEnd)
}

// MidReturnDate is the middle of the return window. Sources that accept a
// single return date are queried with it.
func (c SearchCriteria) MidReturnDate() (string, error) {
	start, err := time.Parse(DateLayout, c.ReturnStart)
	if err != nil {
		return "", err
	}
	end, err := time.Parse(DateLayout, c.ReturnEnd)
	if err != nil {
		return "", err
	}
	mid := start.Add(end.Sub(start) / 2)
	return mid.Format(DateLayout), nil
}

func dateRange(from, to string) ([]string, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", from, err)
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s", to, from)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}
