package analysis

import (
	"fmt"
	"strings"

	"github.com/navid-fn/fareradar/internal/models"
)

const systemPrompt = "You are a helpful AI assistant specializing in flight search and travel optimization. " +
	"Provide clear, actionable recommendations based on the data provided."

// maxPromptOffers caps the offers listed in a prompt, cheapest first.
const maxPromptOffers = 40

// Payload is what the analysis service is asked.
type Payload struct {
	RunID  string
	System string
	Prompt string
}

// BuildPayload describes the run's offers and the route's price history.
func BuildPayload(run *models.SearchRun, series models.PriceSeries) Payload {
	c := run.Criteria
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following flight options from %s to %s.\n", c.Origin, c.Destination)
	fmt.Fprintf(&b, "Departure window: %s to %s. Return window: %s to %s. Passengers: %d. Class: %s.\n\n",
		c.DepartureStart, c.DepartureEnd, c.ReturnStart, c.ReturnEnd, c.Passengers, c.TravelClass)

	fmt.Fprintf(&b, "Current flight options (%d found", len(run.Offers))
	if len(run.FailedSources) > 0 {
		fmt.Fprintf(&b, ", sources unavailable: %s", strings.Join(run.FailedSources, ", "))
	}
	b.WriteString("):\n")

	for i, o := range run.Offers {
		if i == maxPromptOffers {
			fmt.Fprintf(&b, "... and %d more\n", len(run.Offers)-maxPromptOffers)
			break
		}
		stops := "unknown stops"
		if o.Stops >= 0 {
			stops = fmt.Sprintf("%d stops", o.Stops)
		}
		fmt.Fprintf(&b, "- %s: %s, depart %s, return %s, %s, %s, duration %s\n",
			o.Source, o.Price, o.DepartureDate, o.ReturnDate, o.Carrier, stops, orUnknown(o.Duration))
	}

	b.WriteString("\nHistorical price data:\n")
	fmt.Fprintf(&b, "Trend: %s", series.Trend)
	if series.Min != nil && series.PreviousMin != nil {
		fmt.Fprintf(&b, " (lowest %s %s, previous run %s %s)", series.Min.StringFixed(2), series.Currency,
			series.PreviousMin.StringFixed(2), series.Currency)
	}
	b.WriteString("\n")
	if series.WindowMin != nil && series.WindowMax != nil {
		fmt.Fprintf(&b, "Range over the last %d runs: %s to %s %s\n", series.Runs,
			series.WindowMin.StringFixed(2), series.WindowMax.StringFixed(2), series.Currency)
	}
	for _, agg := range series.History {
		if agg.Min == nil {
			fmt.Fprintf(&b, "- %s: no prices\n", agg.At.Format(models.DateLayout))
			continue
		}
		fmt.Fprintf(&b, "- %s: min %s, avg %s, max %s (%d offers)\n", agg.At.Format(models.DateLayout),
			agg.Min.StringFixed(2), agg.Avg.StringFixed(2), agg.Max.StringFixed(2), agg.OfferCount)
	}

	b.WriteString(`
Please analyze:
1. Which flight offers the best value for money?
2. Are prices trending up or down?
3. What is the best departure date considering price and convenience?
4. Should we book now or wait for better prices?

Provide a structured recommendation with reasoning.
`)

	return Payload{RunID: run.ID, System: systemPrompt, Prompt: b.String()}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
