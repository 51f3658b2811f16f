package models

import (
	"sort"
	"time"
)

// RunIDLayout produces lexically sortable run ids.
const RunIDLayout = "20060102T150405.000000000Z"

// NewRunID derives a run id from the run start time.
func NewRunID(startedAt time.Time) string {
	return startedAt.UTC().Format(RunIDLayout)
}

// SearchRun is one execution of the pipeline and the offers it found.
// A run with no offers is still a valid, recorded run.
type SearchRun struct {
	// ID is derived from StartedAt; sorting ids sorts runs chronologically.
	ID string `json:"id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Criteria is a snapshot of the itinerary searched.
	Criteria SearchCriteria `json:"criteria"`

	// Offers in discovery order. Order carries no meaning.
	Offers []Offer `json:"offers"`

	// FailedSources is the sorted set of sources that failed this run.
	FailedSources []string `json:"failed_sources"`

	// SourceErrors maps a failed source to its error message.
	SourceErrors map[string]string `json:"source_errors,omitempty"`
}

// NewSearchRun opens a run at startedAt.
func NewSearchRun(criteria SearchCriteria, startedAt time.Time) *SearchRun {
	return &SearchRun{
		ID:            NewRunID(startedAt),
		StartedAt:     startedAt.UTC(),
		Criteria:      criteria,
		Offers:        []Offer{},
		FailedSources: []string{},
	}
}

// RouteKey of the criteria the run searched.
func (r *SearchRun) RouteKey() RouteKey {
	return r.Criteria.RouteKey()
}

// Seal fixes the finish time and normalizes the failed-source set.
// Nothing mutates a run after it has been sealed and persisted.
func (r *SearchRun) Seal(finishedAt time.Time) {
	r.FinishedAt = finishedAt.UTC()
	if r.Offers == nil {
		r.Offers = []Offer{}
	}
	seen := make(map[string]struct{}, len(r.FailedSources))
	failed := make([]string, 0, len(r.FailedSources))
	for _, s := range r.FailedSources {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		failed = append(failed, s)
	}
	sort.Strings(failed)
	r.FailedSources = failed
}
