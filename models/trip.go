package models

import (
	"fmt"
	"time"
)

// Canonical column names every normalized trip table exposes.
const (
	PickupColumn   = "pickup_datetime"
	DropoffColumn  = "dropoff_datetime"
	TaxiTypeColumn = "taxi_type"

	// AirportFeeColumn is dropped from shards when present.
	AirportFeeColumn = "Airport_fee"
)

// Request defaults applied when a query parameter is absent.
const (
	DefaultYear     = "2024"
	DefaultMonth    = "01"
	DefaultTaxiType = "yellow"
)

// Params identifies one monthly source file. It lives for a single invocation.
type Params struct {
	Year     string
	Month    string
	TaxiType string
}

// Period returns "YYYY-MM" as it appears in source file names and responses.
func (p Params) Period() string {
	return p.Year + "-" + p.Month
}

// VariantKind enumerates the two source naming conventions.
type VariantKind int

const (
	VariantYellow VariantKind = iota
	VariantGreen
)

func (k VariantKind) String() string {
	switch k {
	case VariantYellow:
		return "yellow"
	case VariantGreen:
		return "green"
	default:
		return fmt.Sprintf("variant(%d)", int(k))
	}
}

// Variant is the schema mapping of one dataset flavor: which source columns
// become pickup_datetime and dropoff_datetime.
type Variant struct {
	Kind          VariantKind
	PickupSource  string
	DropoffSource string
}

var (
	YellowVariant = Variant{
		Kind:          VariantYellow,
		PickupSource:  "tpep_pickup_datetime",
		DropoffSource: "tpep_dropoff_datetime",
	}
	GreenVariant = Variant{
		Kind:          VariantGreen,
		PickupSource:  "lpep_pickup_datetime",
		DropoffSource: "lpep_dropoff_datetime",
	}
)

// VariantFor selects the mapping for a lower-cased taxi type.
// Only "yellow" selects the yellow mapping; every other value, including
// unknown ones, falls back to the green mapping.
func VariantFor(taxiType string) Variant {
	if taxiType == DefaultTaxiType {
		return YellowVariant
	}
	return GreenVariant
}

// Renames returns the source → canonical column mapping.
func (v Variant) Renames() map[string]string {
	return map[string]string{
		v.PickupSource:  PickupColumn,
		v.DropoffSource: DropoffColumn,
	}
}

// Shard describes one uploaded weekly parquet object.
type Shard struct {
	RunID      string    `json:"run_id"`
	TaxiType   string    `json:"taxi_type"`
	Period     string    `json:"period"`
	Ordinal    int       `json:"ordinal"`
	WeekStart  time.Time `json:"week_start"`
	WeekEnd    time.Time `json:"week_end"`
	Rows       int64     `json:"rows"`
	Bytes      int64     `json:"bytes"`
	Bucket     string    `json:"bucket"`
	Key        string    `json:"key"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ShardFilename builds "{taxi_type}_W{ordinal}_{YYYY-MM-DD}.parquet".
func ShardFilename(taxiType string, ordinal int, weekStart time.Time) string {
	return fmt.Sprintf("%s_W%d_%s.parquet", taxiType, ordinal, weekStart.Format("2006-01-02"))
}

// IngestReport summarizes one invocation.
type IngestReport struct {
	RunID       string
	Params      Params
	SourceURL   string
	SourceBytes int64
	TotalRows   int64
	NullPickups int64
	Weeks       int
	EmptyWeeks  int
	Shards      []*Shard
	BusiestWeek *Shard
	StartedAt   time.Time
	Duration    time.Duration
}

// ShardedRows sums the rows written across all shards.
func (r *IngestReport) ShardedRows() int64 {
	var n int64
	for _, s := range r.Shards {
		n += s.Rows
	}
	return n
}
