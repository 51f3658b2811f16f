package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/navid-fn/fareradar/internal/models"
)

type offerView struct {
	Source, Price, Dates, Carrier, Stops, Duration string
}

type reportView struct {
	Origin, Destination string
	Departure, Return   string
	Passengers          int
	Class               string
	OfferCount          int
	FailedSources       string
	Trend               string
	Low, High, Average  string
	Recommendation      string
	Offers              []offerView
	More                int
	Generated           string
}

func newReportView(r Report, now time.Time) reportView {
	c := r.Run.Criteria
	v := reportView{
		Origin:        c.Origin,
		Destination:   c.Destination,
		Departure:     c.DepartureStart + " to " + c.DepartureEnd,
		Return:        c.ReturnStart + " to " + c.ReturnEnd,
		Passengers:    c.Passengers,
		Class:         c.TravelClass,
		OfferCount:    len(r.Run.Offers),
		FailedSources: strings.Join(r.Run.FailedSources, ", "),
		Trend:         string(r.Series.Trend),
		Low:           "n/a",
		High:          "n/a",
		Average:       "n/a",
		Generated:     now.Format("2006-01-02 15:04:05"),
	}
	if v.Trend == "" {
		v.Trend = string(models.TrendUnknown)
	}
	if r.Series.Min != nil {
		v.Low = r.Series.Min.StringFixed(2) + " " + r.Series.Currency
		v.High = r.Series.Max.StringFixed(2) + " " + r.Series.Currency
		v.Average = r.Series.Avg.StringFixed(2) + " " + r.Series.Currency
	}

	if r.Analysis.Absent() {
		v.Recommendation = "No analysis available"
		if r.Analysis.Reason != "" {
			v.Recommendation += " (" + r.Analysis.Reason + ")"
		}
		v.Recommendation += "."
	} else {
		v.Recommendation = r.Analysis.Recommendation
	}

	for i, o := range r.Run.Offers {
		if i == maxListedOffers {
			v.More = len(r.Run.Offers) - maxListedOffers
			break
		}
		stops := "n/a"
		if o.Stops >= 0 {
			stops = fmt.Sprint(o.Stops)
		}
		v.Offers = append(v.Offers, offerView{
			Source:   o.Source,
			Price:    o.Price.String(),
			Dates:    o.DepartureDate + " / " + o.ReturnDate,
			Carrier:  o.Carrier,
			Stops:    stops,
			Duration: o.Duration,
		})
	}
	return v
}

func textBody(v reportView) string {
	var b strings.Builder
	b.WriteString("Flight Search Results\n======================\n\n")
	b.WriteString("Search Parameters:\n")
	fmt.Fprintf(&b, "- Route: %s → %s\n", v.Origin, v.Destination)
	fmt.Fprintf(&b, "- Departure: %s\n- Return: %s\n", v.Departure, v.Return)
	fmt.Fprintf(&b, "- Passengers: %d\n- Class: %s\n\n", v.Passengers, v.Class)

	fmt.Fprintf(&b, "Found %d flight options.\n", v.OfferCount)
	if v.FailedSources != "" {
		fmt.Fprintf(&b, "Unavailable sources: %s\n", v.FailedSources)
	}
	fmt.Fprintf(&b, "\nPrice trend: %s\nLowest: %s\nAverage: %s\nHighest: %s\n\n", v.Trend, v.Low, v.Average, v.High)

	b.WriteString("AI Analysis:\n")
	b.WriteString(v.Recommendation)
	b.WriteString("\n\nFlight Details:\n")
	if len(v.Offers) == 0 {
		b.WriteString("No flights found.\n")
	}
	for i, o := range v.Offers {
		fmt.Fprintf(&b, "\n%d. %s\n   Dates: %s\n   Price: %s\n   Carrier: %s, stops: %s\n", i+1, o.Source, o.Dates, o.Price, o.Carrier, o.Stops)
	}
	if v.More > 0 {
		fmt.Fprintf(&b, "\n... and %d more flights\n", v.More)
	}
	fmt.Fprintf(&b, "\n---\nGenerated on %s\n", v.Generated)
	return b.String()
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 800px; margin: 0 auto; padding: 20px; }
h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
.params { background: #ecf0f1; padding: 15px; border-radius: 5px; margin: 20px 0; }
.analysis { background: #e8f5e9; padding: 15px; border-left: 4px solid #4caf50; margin: 20px 0; }
.flight { border: 1px solid #ddd; padding: 10px; margin: 10px 0; border-radius: 5px; }
.price { color: #27ae60; font-weight: bold; }
.footer { margin-top: 30px; color: #7f8c8d; font-size: 0.9em; }
</style>
</head>
<body>
<div class="container">
<h1>Flight Search Results</h1>
<div class="params">
<div><strong>Route:</strong> {{.Origin}} → {{.Destination}}</div>
<div><strong>Departure:</strong> {{.Departure}}</div>
<div><strong>Return:</strong> {{.Return}}</div>
<div><strong>Passengers:</strong> {{.Passengers}}</div>
<div><strong>Class:</strong> {{.Class}}</div>
</div>
<h2>Found {{.OfferCount}} Flight Options</h2>
{{if .FailedSources}}<p>Unavailable sources: {{.FailedSources}}</p>{{end}}
<p>Price trend: <strong>{{.Trend}}</strong>. Lowest {{.Low}}, average {{.Average}}, highest {{.High}}.</p>
<div class="analysis">
<h2>AI Analysis</h2>
<p>{{range $i, $l := lines .Recommendation}}{{if $i}}<br>{{end}}{{$l}}{{end}}</p>
</div>
<h2>Flight Details</h2>
{{range .Offers}}<div class="flight"><strong>{{.Source}}</strong> <span class="price">{{.Price}}</span><br>{{.Dates}} · {{.Carrier}} · stops: {{.Stops}}{{if .Duration}} · {{.Duration}}{{end}}</div>
{{else}}<p>No flights found.</p>
{{end}}{{if .More}}<p>... and {{.More}} more flights</p>{{end}}
<div class="footer">Generated on {{.Generated}}</div>
</div>
</body>
</html>
`))
