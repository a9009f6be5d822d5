package services

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"tlc-ingest/columnar"
	"tlc-ingest/models"
	"tlc-ingest/utils"
)

// Normalizer turns a raw parquet payload into a table with the canonical
// trip schema.
type Normalizer struct {
	logger *utils.Logger
	mem    memory.Allocator
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger, mem memory.Allocator) *Normalizer {
	return &Normalizer{logger: logger, mem: mem}
}

// Decode deserializes the payload. Failures here are deserialization errors.
func (n *Normalizer) Decode(ctx context.Context, payload []byte) (arrow.Table, error) {
	tbl, err := columnar.ReadParquet(ctx, payload, n.mem)
	if err != nil {
		return nil, err
	}
	n.logger.Info("[normalizer] Decoded %d rows × %d columns", tbl.NumRows(), tbl.NumCols())
	return tbl, nil
}

// Normalize renames the variant's timestamp pair to pickup_datetime and
// dropoff_datetime, tags every row with taxiType and makes both timestamp
// columns temporal. The caller keeps ownership of tbl.
func (n *Normalizer) Normalize(tbl arrow.Table, taxiType string) (arrow.Table, error) {
	variant := models.VariantFor(taxiType)
	if variant.Kind != models.VariantYellow && taxiType != variant.Kind.String() {
		n.logger.Warn("[normalizer] Unrecognised taxi type %q, using %s column names", taxiType, variant.Kind)
	}

	renamed, err := columnar.RenameColumns(tbl, variant.Renames())
	if err != nil {
		return nil, fmt.Errorf("%s schema: %w", variant.Kind, err)
	}
	defer renamed.Release()

	tagged := columnar.SetConstantString(renamed, models.TaxiTypeColumn, taxiType, n.mem)
	defer tagged.Release()

	withPickup, err := columnar.EnsureTimestamp(tagged, models.PickupColumn, n.mem)
	if err != nil {
		return nil, err
	}
	defer withPickup.Release()

	out, err := columnar.EnsureTimestamp(withPickup, models.DropoffColumn, n.mem)
	if err != nil {
		return nil, err
	}

	n.logger.Debug("[normalizer] %s mapping applied: %s → %s, %s → %s", variant.Kind,
		variant.PickupSource, models.PickupColumn, variant.DropoffSource, models.DropoffColumn)
	return out, nil
}
