package services

import (
	"net/url"
	"strings"

	"tlc-ingest/models"
)

// ResolveParams extracts year, month and type from request query values.
// Absent keys take their defaults; a key that is present keeps its value,
// even when empty. The taxi type is lower-cased and otherwise unchecked.
func ResolveParams(q url.Values) models.Params {
	return models.Params{
		Year:     valueOr(q, "year", models.DefaultYear),
		Month:    valueOr(q, "month", models.DefaultMonth),
		TaxiType: strings.ToLower(valueOr(q, "type", models.DefaultTaxiType)),
	}
}

func valueOr(q url.Values, key, fallback string) string {
	if !q.Has(key) {
		return fallback
	}
	return q.Get(key)
}
