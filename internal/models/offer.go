package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Money is an amount in a given ISO currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

// Offer is one quoted itinerary as seen by one source during one run.
// Offers are written once, as part of their SearchRun, and never edited.
type Offer struct {
	// Source is the adapter name (e.g., "google_flights", "expedia").
	Source string `json:"source"`

	// Price is the total quoted price.
	Price Money `json:"price"`

	// DepartureDate and ReturnDate are calendar dates (YYYY-MM-DD).
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`

	// Carrier is the normalized airline name.
	Carrier string `json:"carrier"`

	// Duration is the trip duration as quoted by the source.
	Duration string `json:"duration"`

	// Stops is the number of stops, -1 when the source did not say.
	Stops int `json:"stops"`

	// RetrievedAt is when the adapter produced the offer.
	RetrievedAt time.Time `json:"retrieved_at"`

	// SnapshotRef points at the raw snapshot the offer was parsed from.
	SnapshotRef string `json:"snapshot_ref,omitempty"`

	// Raw is the raw text the offer was parsed from. It is stored separately
	// through the snapshot store and never serialized with the run.
	Raw string `json:"-"`
}

// OfferKey is the composite identity used to deduplicate offers within a run.
type OfferKey struct {
	Source        string
	Carrier       string
	DepartureDate string
	ReturnDate    string
	Price         string
}

// Key returns the dedup key. Prices are compared on their canonical decimal
// string so 300 and 300.00 collapse into one offer.
func (o Offer) Key() OfferKey {
	return OfferKey{
		Source:        o.Source,
		Carrier:       o.Carrier,
		DepartureDate: o.DepartureDate,
		ReturnDate:    o.ReturnDate,
		Price:         o.Price.Amount.String() + " " + o.Price.Currency,
	}
}

// Validate reports why an offer cannot be recorded, or nil.
func (o Offer) Validate() error {
	switch {
	case o.Source == "":
		return fmt.Errorf("missing source")
	case !o.Price.Amount.IsPositive():
		return fmt.Errorf("invalid price: %s", o.Price.Amount)
	case o.Price.Currency == "":
		return fmt.Errorf("missing currency")
	case o.DepartureDate == "":
		return fmt.Errorf("missing departure date")
	}
	if _, err := time.Parse(DateLayout, o.DepartureDate); err != nil {
		return fmt.Errorf("invalid departure date %q", o.DepartureDate)
	}
	if o.ReturnDate != "" {
		if _, err := time.Parse(DateLayout, o.ReturnDate); err != nil {
			return fmt.Errorf("invalid return date %q", o.ReturnDate)
		}
	}
	return nil
}
