package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/checkstock/internal/analytics"
	"github.com/andresuchdata/checkstock/internal/cache"
	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/export"
	"github.com/andresuchdata/checkstock/internal/forecast"
	"github.com/andresuchdata/checkstock/internal/grid"
	"github.com/andresuchdata/checkstock/internal/pipeline"
	"github.com/andresuchdata/checkstock/internal/pipeline/checkstock"
	"github.com/andresuchdata/checkstock/internal/repository"
	"github.com/andresuchdata/checkstock/internal/storage"
)

// ManualSheet is the source sheet recorded on manual transactions.
const ManualSheet = "manual"

// Options configure a LedgerService. Zero values fall back to defaults.
type Options struct {
	Pipeline       pipeline.Pipeline
	PipelineConfig pipeline.PipelineConfig
	Tracker        pipeline.RunTracker
	Cache          cache.LedgerCache
	// Archive keeps the raw bytes of uploaded workbooks when set.
	Archive       storage.ObjectStorage
	ArchivePrefix string
	Defaults      forecast.Request
	Now           func() time.Time
}

type LedgerService struct {
	ledger   repository.Ledger
	cache    cache.LedgerCache
	pipeline pipeline.Pipeline
	cfg      pipeline.PipelineConfig
	tracker  pipeline.RunTracker
	archive  storage.ObjectStorage
	prefix   string
	defaults forecast.Request
	now      func() time.Time
}

func NewLedgerService(ledger repository.Ledger, opts Options) *LedgerService {
	if opts.Cache == nil {
		opts.Cache = cache.NewNoopLedgerCache()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Pipeline == nil {
		copts := checkstock.DefaultOptions()
		copts.Now = opts.Now
		opts.Pipeline = checkstock.NewCheckStockPipeline(copts)
	}
	if opts.PipelineConfig.Name == "" {
		opts.PipelineConfig = pipeline.DefaultPipelineConfig(opts.Pipeline.Name())
	}
	if opts.Tracker == nil {
		opts.Tracker = pipeline.NopTracker{}
	}
	if opts.Defaults.LeadTimeDays <= 0 {
		opts.Defaults.LeadTimeDays = 7
	}
	if opts.Defaults.HorizonDays <= 0 {
		opts.Defaults.HorizonDays = 30
	}

	return &LedgerService{
		ledger:   ledger,
		cache:    opts.Cache,
		pipeline: opts.Pipeline,
		cfg:      opts.PipelineConfig,
		tracker:  opts.Tracker,
		archive:  opts.Archive,
		prefix:   opts.ArchivePrefix,
		defaults: opts.Defaults,
		now:      opts.Now,
	}
}

// ForecastDefaults returns the lead time and horizon used when a request
// leaves them unset.
func (s *LedgerService) ForecastDefaults() forecast.Request {
	return s.defaults
}

func (s *LedgerService) worker() *pipeline.Worker {
	w := pipeline.NewWorker(s.pipeline, s.cfg, s.tracker, s.ledger)
	w.SetClock(s.now)
	return w
}

// IngestWorkbook parses every sheet of wb and appends the entries to the
// ledger. A workbook whose sheets were all rejected returns the report
// together with domain.ErrWorkbookRejected.
func (s *LedgerService) IngestWorkbook(ctx context.Context, wb *grid.Workbook) (domain.IngestReport, error) {
	report, _, err := s.worker().ProcessWorkbook(ctx, wb)
	if err != nil {
		return report, err
	}
	if report.Entries > 0 {
		s.invalidate(ctx)
	}
	if report.Rejected() {
		return report, fmt.Errorf("%s: %w", wb.Name, domain.ErrWorkbookRejected)
	}
	return report, nil
}

// IngestUpload decodes an uploaded workbook, archives it when storage is
// configured, and ingests it. A file that cannot be decoded counts as a
// rejected workbook.
func (s *LedgerService) IngestUpload(ctx context.Context, name string, r io.Reader) (domain.IngestReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.IngestReport{Workbook: name}, fmt.Errorf("failed to read upload %s: %w", name, err)
	}

	wb, err := grid.Read(bytes.NewReader(data), name)
	if err != nil {
		return domain.IngestReport{Workbook: name}, fmt.Errorf("%w: %v", domain.ErrWorkbookRejected, err)
	}

	report, err := s.IngestWorkbook(ctx, wb)
	if s.archive != nil && report.BatchID != uuid.Nil {
		key, aerr := storage.Archive(ctx, s.archive, s.prefix, report.BatchID.String(), name, data, s.now())
		if aerr != nil {
			log.Warn().Err(aerr).Str("workbook", name).Msg("ledger: archive upload failed")
		} else {
			log.Debug().Str("key", key).Msg("ledger: archived upload")
		}
	}
	return report, err
}

// IngestFiles ingests local workbook files oldest snapshot first.
func (s *LedgerService) IngestFiles(ctx context.Context, paths []string) ([]domain.IngestReport, error) {
	orchestrator := pipeline.NewOrchestrator(s.cfg, s.tracker, s.ledger)
	reports, err := orchestrator.Run(ctx, s.pipeline, paths)
	for _, r := range reports {
		if r.Entries > 0 {
			s.invalidate(ctx)
			break
		}
	}
	return reports, err
}

// RecordTransaction appends a manual inbound or outbound movement.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx domain.Transaction) (domain.LedgerEntry, error) {
	entry, err := s.transactionEntry(tx)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("failed to record transaction: %w", err)
	}
	s.invalidate(ctx)

	log.Info().
		Str("kind", string(entry.Kind)).
		Str("material", entry.Material).
		Str("lot", entry.Lot).
		Float64("weight_kg", entry.WeightKg).
		Msg("ledger: transaction recorded")

	return entry, nil
}

func (s *LedgerService) transactionEntry(tx domain.Transaction) (domain.LedgerEntry, error) {
	// 1. Validate
	if tx.Kind != domain.EntryInbound && tx.Kind != domain.EntryOutbound {
		return domain.LedgerEntry{}, fmt.Errorf("%w: kind must be inbound or outbound, got %q", domain.ErrInvalidTransaction, tx.Kind)
	}
	material := domain.NormalizeMaterial(tx.Material)
	if material == "" {
		return domain.LedgerEntry{}, fmt.Errorf("%w: material is required", domain.ErrInvalidTransaction)
	}
	bags := math.Abs(tx.Bags)
	weight := math.Abs(tx.WeightKg)
	if weight == 0 && bags == 0 {
		return domain.LedgerEntry{}, fmt.Errorf("%w: bags or weight_kg is required", domain.ErrInvalidTransaction)
	}

	// 2. Resolve date
	now := s.now()
	date := tx.Date
	if date.IsZero() {
		date = now
	}
	observed := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	// 3. Build entry
	id := uuid.New()
	entry := domain.LedgerEntry{
		ID:           id,
		BatchID:      id,
		Kind:         tx.Kind,
		Material:     material,
		MaterialRaw:  strings.TrimSpace(tx.Material),
		Lot:          domain.NormalizeCode(tx.Lot),
		Location:     strings.TrimSpace(tx.Location),
		BagCount:     bags,
		WeightKg:     weight,
		Supplier:     strings.TrimSpace(tx.Supplier),
		ObservedDate: &observed,
		SourceSheet:  ManualSheet,
		CreatedAt:    now,
	}
	if bags > 0 && weight > 0 {
		avg := weight / bags
		entry.AvgKgPerBag = &avg
	}
	if tx.Kind == domain.EntryInbound {
		entry.InboundBags, entry.InboundKg = bags, weight
	} else {
		entry.OutboundBags, entry.OutboundKg = bags, weight
	}
	entry.AgeDays = analytics.AgeDays(entry.ObservedDate, now)

	return entry, nil
}

// ListEntries returns the filtered ledger with ages computed for today.
func (s *LedgerService) ListEntries(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	entries, err := s.ledger.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return analytics.WithAge(entries, s.now()), nil
}

func (s *LedgerService) Snapshot(ctx context.Context, filter domain.LedgerFilter) ([]domain.InventorySnapshot, error) {
	if snaps, ok, err := s.cache.GetSnapshot(ctx, filter); err == nil && ok {
		return snaps, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("ledger: cache get snapshot failed")
	}

	entries, err := s.ledger.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	snaps := analytics.BuildSnapshots(entries)

	if err := s.cache.SetSnapshot(ctx, filter, snaps); err != nil {
		log.Warn().Err(err).Msg("ledger: cache set snapshot failed")
	}

	return snaps, nil
}

func (s *LedgerService) Totals(ctx context.Context, filter domain.LedgerFilter) (domain.LedgerTotals, error) {
	entries, err := s.ledger.ListEntries(ctx, filter)
	if err != nil {
		return domain.LedgerTotals{}, err
	}
	return analytics.Totals(entries), nil
}

// Forecast returns reorder recommendations ordered by urgency. Unset lead
// time or horizon take the configured defaults; negative values are
// rejected with a *domain.ForecastParamError.
func (s *LedgerService) Forecast(ctx context.Context, req forecast.Request) ([]domain.ReorderRecommendation, error) {
	if req.LeadTimeDays == 0 {
		req.LeadTimeDays = s.defaults.LeadTimeDays
	}
	if req.HorizonDays == 0 {
		req.HorizonDays = s.defaults.HorizonDays
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if recs, ok, err := s.cache.GetForecast(ctx, req); err == nil && ok {
		return recs, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("ledger: cache get forecast failed")
	}

	entries, err := s.ledger.ListEntries(ctx, domain.LedgerFilter{Materials: req.Materials})
	if err != nil {
		return nil, err
	}

	recs, err := forecast.Forecast(entries, req)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetForecast(ctx, req, recs); err != nil {
		log.Warn().Err(err).Msg("ledger: cache set forecast failed")
	}

	return recs, nil
}

// Export renders the filtered ledger with r.
func (s *LedgerService) Export(ctx context.Context, w io.Writer, r export.Renderer, filter domain.LedgerFilter) error {
	entries, err := s.ledger.ListEntries(ctx, filter)
	if err != nil {
		return err
	}
	return r.Render(w, export.Records(entries, s.now()))
}

// LotCard renders the management card of a lot.
func (s *LedgerService) LotCard(ctx context.Context, w io.Writer, lot string) error {
	code := domain.NormalizeCode(lot)
	if code == "" {
		return fmt.Errorf("lot code is required: %w", domain.ErrNotFound)
	}
	entries, err := s.ledger.ListEntries(ctx, domain.LedgerFilter{Lot: code})
	if err != nil {
		return err
	}
	return export.LotCard(w, code, export.Records(entries, s.now()))
}

// Materials lists the distinct materials present in the ledger.
func (s *LedgerService) Materials(ctx context.Context) ([]string, error) {
	entries, err := s.ledger.ListEntries(ctx, domain.LedgerFilter{})
	if err != nil {
		return nil, err
	}
	return analytics.Materials(entries), nil
}

func (s *LedgerService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("ledger: cache invalidate failed")
	}
}

// IsClientError reports whether err was caused by the request rather than
// the service.
func IsClientError(err error) bool {
	var paramErr *domain.ForecastParamError
	return errors.As(err, &paramErr) ||
		errors.Is(err, domain.ErrInvalidTransaction) ||
		errors.Is(err, domain.ErrWorkbookRejected)
}
