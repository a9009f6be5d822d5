package services

import (
	"fmt"
	"io"
	"strings"

	"tlc-ingest/models"
	"tlc-ingest/utils"
)

// ReportService fills in the derived fields of an IngestReport and renders it.
type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Summarize derives week counts and the busiest week from a partition and the
// shards that were written for it.
func (s *ReportService) Summarize(r *models.IngestReport, part *Partition, shards []*models.Shard) {
	r.Shards = shards
	r.BusiestWeek = nil
	if part != nil {
		r.TotalRows = part.TotalRows
		r.NullPickups = part.NullPickups
		r.Weeks = len(part.Buckets)
		r.EmptyWeeks = 0
		for _, b := range part.Buckets {
			if b.Empty() {
				r.EmptyWeeks++
			}
		}
	}

	for _, sh := range shards {
		if r.BusiestWeek == nil || sh.Rows > r.BusiestWeek.Rows {
			r.BusiestWeek = sh
		}
	}
}

// Log writes a one-line summary through the logger.
func (s *ReportService) Log(r *models.IngestReport) {
	s.logger.Info("[report] run=%s %s %s: %d rows, %d weeks (%d empty), %d shards in %s",
		r.RunID, r.Params.TaxiType, r.Params.Period(), r.TotalRows, r.Weeks, r.EmptyWeeks,
		len(r.Shards), r.Duration.Round(1e6))
}

// Print renders the report as a table for terminal use.
func (s *ReportService) Print(w io.Writer, r *models.IngestReport) {
	sep := strings.Repeat("═", 62)
	thin := strings.Repeat("─", 62)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  TLC INGEST — %s %s\033[0m\n", r.Params.TaxiType, r.Params.Period())
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Run id            : %s\n", r.RunID)
	fmt.Fprintf(w, "  Source            : %s\n", r.SourceURL)
	fmt.Fprintf(w, "  Source size       : %d bytes\n", r.SourceBytes)
	fmt.Fprintf(w, "  Rows decoded      : \033[1m%d\033[0m\n", r.TotalRows)
	if r.NullPickups > 0 {
		fmt.Fprintf(w, "  Rows without pickup: %d\n", r.NullPickups)
	}
	fmt.Fprintf(w, "  Weeks spanned     : %d (%d empty)\n", r.Weeks, r.EmptyWeeks)
	fmt.Fprintf(w, "  Duration          : %s\n", r.Duration.Round(1e6))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Shards\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Shards) == 0 {
		fmt.Fprintf(w, "  No shards written\n")
	}
	for _, sh := range r.Shards {
		marker := " "
		if sh == r.BusiestWeek {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %-44s %9d rows %11d B\n", marker, truncate(sh.Key, 44), sh.Rows, sh.Bytes)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
