package webpage

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/models"
)

const (
	GoogleFlightsName = "google_flights"
	ExpediaName       = "expedia"
)

func GoogleFlightsRules() Rules {
	return Rules{
		Name:    GoogleFlightsName,
		BaseURL: "https://www.google.com",
		BuildURL: func(c models.SearchCriteria, dep, ret string) string {
			return fmt.Sprintf(
				"/travel/flights?q=flights%%20from%%20%s%%20to%%20%s%%20on%%20%s%%20return%%20%s%%20%d%%20passenger",
				c.Origin, c.Destination, dep, ret, c.Passengers,
			)
		},
		ItemSelector:     "[role='listitem']",
		CarrierSelector:  ".sSHqwe",
		DurationSelector: ".gvkrdb",
		StopsSelector:    ".EfT7Ae",
		MaxResults:       DefaultMaxResults,
		DefaultCurrency:  "USD",
	}
}

func ExpediaRules() Rules {
	return Rules{
		Name:    ExpediaName,
		BaseURL: "https://www.expedia.com",
		BuildURL: func(c models.SearchCriteria, dep, ret string) string {
			return fmt.Sprintf(
				"/Flights-Search?trip=roundtrip&leg1=from:%s,to:%s,departure:%s&leg2=from:%s,to:%s,departure:%s&passengers=adults:%d",
				c.Origin, c.Destination, expediaDate(dep),
				c.Destination, c.Origin, expediaDate(ret),
				c.Passengers,
			)
		},
		ItemSelector:     "[data-test-id*='offer']",
		PriceSelector:    "[data-test-id='listing-price-dollars']",
		CarrierSelector:  "[data-test-id='flight-operated']",
		DurationSelector: "[data-test-id='journey-duration']",
		StopsSelector:    "[data-test-id='journey-stops']",
		MaxResults:       DefaultMaxResults,
		DefaultCurrency:  "USD",
	}
}

func GoogleFlights(logger *logrus.Logger) *PageSource {
	return NewPageSource(GoogleFlightsRules(), logger)
}

func Expedia(logger *logrus.Logger) *PageSource {
	return NewPageSource(ExpediaRules(), logger)
}

// expediaDate converts 2006-01-02 to the 01/02/2006 form Expedia expects.
func expediaDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("01/02/2006")
}
