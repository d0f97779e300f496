package server

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateOnlyLayout = "2006-01-02"

// parseOptionalTime accepts RFC 3339 timestamps or bare dates. Bare dates
// resolve to the start of the day, or the end of it when endOfDay is set so
// range filters include the whole day.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}

	day, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return nil, err
	}

	day = day.UTC()
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

func parseOptionalDecimal(value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
