package services

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"tlc-ingest/metrics"
	"tlc-ingest/models"
	"tlc-ingest/utils"
)

// Pipeline runs fetch → normalize → partition → upload for one month of data.
// Stages run strictly one after another; nothing is shared between runs.
type Pipeline struct {
	fetcher     *Fetcher
	normalizer  *Normalizer
	partitioner *Partitioner
	writer      *ShardWriter
	reporter    *ReportService
	logger      *utils.Logger
}

// NewPipeline wires the stages together. The object store and its optional
// catalog and notifier arrive already attached to writer.
func NewPipeline(fetcher *Fetcher, writer *ShardWriter, logger *utils.Logger, mem memory.Allocator) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		normalizer:  NewNormalizer(logger, mem),
		partitioner: NewPartitioner(logger, mem),
		writer:      writer,
		reporter:    NewReportService(logger),
		logger:      logger,
	}
}

// Reporter exposes the report renderer used by Run.
func (p *Pipeline) Reporter() *ReportService {
	return p.reporter
}

// Run processes one (year, month, type) triple. Any returned error is a
// *PipelineError. The report is non-nil even on failure and lists the shards
// that made it to the store before the error.
func (p *Pipeline) Run(ctx context.Context, params models.Params) (*models.IngestReport, error) {
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	report := &models.IngestReport{
		RunID:     uuid.NewString(),
		Params:    params,
		SourceURL: p.fetcher.SourceURL(params),
		StartedAt: time.Now(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	p.logger.Info("[pipeline] run=%s starting %s %s", report.RunID, params.TaxiType, params.Period())

	done := stageTimer("fetch")
	payload, err := p.fetcher.Fetch(ctx, params)
	done()
	if err != nil {
		return report, wrapKind(FetchFailed, err)
	}
	report.SourceBytes = int64(len(payload))

	done = stageTimer("deserialize")
	raw, err := p.normalizer.Decode(ctx, payload)
	done()
	if err != nil {
		return report, wrapKind(DeserializeFailed, err)
	}
	metrics.RowsIngestedTotal.WithLabelValues(params.TaxiType).Add(float64(raw.NumRows()))

	done = stageTimer("normalize")
	table, err := p.normalizer.Normalize(raw, params.TaxiType)
	raw.Release()
	if err != nil {
		done()
		return report, wrapKind(NormalizeFailed, err)
	}
	part, err := p.partitioner.Partition(ctx, table)
	table.Release()
	done()
	if err != nil {
		return report, wrapKind(NormalizeFailed, err)
	}
	defer part.Release()

	done = stageTimer("upload")
	shards, err := p.writer.WriteAll(ctx, report.RunID, params, part.Buckets)
	done()
	p.reporter.Summarize(report, part, shards)
	if err != nil {
		return report, wrapKind(UploadFailed, err)
	}

	report.Duration = time.Since(report.StartedAt)
	p.reporter.Log(report)
	return report, nil
}

func stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		metrics.StageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
