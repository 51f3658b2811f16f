// Package scraper defines the contract every fare source implements and the
// HTTP and normalization plumbing shared by the drivers.
package scraper

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/navid-fn/fareradar/internal/models"
)

// Source is the interface all fare sources must implement.
// Fetch must honour the context deadline; it is the per-call timeout.
type Source interface {
	Name() string
	Fetch(ctx context.Context, criteria models.SearchCriteria) ([]models.Offer, error)
}

// FetchErrorKind classifies why a source produced no usable offers.
type FetchErrorKind string

const (
	KindTimeout     FetchErrorKind = "timeout"
	KindTransport   FetchErrorKind = "transport"
	KindMalformed   FetchErrorKind = "malformed"
	KindEmpty       FetchErrorKind = "empty"
	KindCircuitOpen FetchErrorKind = "circuit_open"
	KindPanic       FetchErrorKind = "panic"
)

// FetchError is the failure of one source for one run. It never aborts a run.
type FetchError struct {
	Source string
	Kind   FetchErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source %s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err for source, keeping an existing FetchError's kind.
func NewFetchError(source string, kind FetchErrorKind, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return &FetchError{Source: source, Kind: fe.Kind, Err: fe.Err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &FetchError{Source: source, Kind: kind, Err: err}
}

// ErrNoOffers is returned by drivers whose page or response held nothing priced.
var ErrNoOffers = errors.New("no priced offers found")

// GenerateOfferID creates a stable id for an offer based on its identity.
func GenerateOfferID(o models.Offer) string {
	k := o.Key()
	unique := fmt.Sprintf("%s-%s-%s-%s-%s", k.Source, k.Carrier, k.DepartureDate, k.ReturnDate, k.Price)
	hash := sha1.Sum([]byte(unique))
	return hex.EncodeToString(hash[:])
}
