package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/export"
	"github.com/andresuchdata/checkstock/internal/forecast"
	"github.com/andresuchdata/checkstock/internal/service"
)

var queryDateLayouts = []string{"2006-01-02", "02/01/2006"}

type LedgerHandler struct {
	service *service.LedgerService
}

func NewLedgerHandler(service *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// queryList accepts both ?material=A&material=B and ?material=A,B.
func queryList(c *gin.Context, keys ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, key := range keys {
		for _, raw := range c.QueryArray(key) {
			for _, part := range strings.Split(raw, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if _, ok := seen[part]; ok {
					continue
				}
				seen[part] = struct{}{}
				out = append(out, part)
			}
		}
	}
	return out
}

func parseQueryDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range queryDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q, expected yyyy-mm-dd or dd/mm/yyyy", value)
}

func (h *LedgerHandler) parseFilter(c *gin.Context) (domain.LedgerFilter, error) {
	filter := domain.LedgerFilter{
		Materials:   queryList(c, "material", "materials"),
		Lot:         strings.TrimSpace(c.Query("lot")),
		SourceSheet: strings.TrimSpace(c.Query("sheet")),
	}

	for _, raw := range queryList(c, "kind") {
		kind, ok := domain.ParseEntryKind(raw)
		if !ok {
			return filter, fmt.Errorf("invalid kind %q", raw)
		}
		filter.Kinds = append(filter.Kinds, kind)
	}

	var err error
	if filter.From, err = parseQueryDate(c.Query("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseQueryDate(c.Query("to")); err != nil {
		return filter, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, fmt.Errorf("to must not be before from")
	}

	return filter, nil
}

func respondError(c *gin.Context, err error, message string) {
	var paramErr *domain.ForecastParamError
	switch {
	case errors.As(err, &paramErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "param": paramErr.Param})
	case errors.Is(err, domain.ErrInvalidTransaction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrWorkbookRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}

// Ingest parses the uploaded workbooks synchronously. The response is 422
// when no uploaded workbook yielded a readable sheet.
func (h *LedgerHandler) Ingest(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	reports := make([]domain.IngestReport, 0, len(files))
	accepted := 0
	for _, file := range files {
		f, err := file.Open()
		if err != nil {
			log.Error().Err(err).Str("filename", file.Filename).Msg("failed to open uploaded file")
			reports = append(reports, domain.IngestReport{Workbook: file.Filename, Error: err.Error()})
			continue
		}

		report, err := h.service.IngestUpload(c.Request.Context(), file.Filename, f)
		f.Close()
		if report.Workbook == "" {
			report.Workbook = file.Filename
		}
		if err != nil && !errors.Is(err, domain.ErrWorkbookRejected) {
			respondError(c, err, "failed to ingest workbook")
			return
		}
		if err != nil {
			report.Error = err.Error()
		} else {
			accepted++
		}
		reports = append(reports, report)
	}

	status := http.StatusOK
	if accepted == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"reports": reports, "accepted": accepted})
}

func (h *LedgerHandler) ListEntries(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.service.ListEntries(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to fetch ledger entries")
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"items": entries,
		"total": len(entries),
	})
}

func (h *LedgerHandler) GetMaterials(c *gin.Context) {
	materials, err := h.service.Materials(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to fetch materials")
		return
	}
	if materials == nil {
		materials = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"materials": materials})
}

func (h *LedgerHandler) GetSnapshot(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snaps, err := h.service.Snapshot(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to fetch snapshot")
		return
	}
	if snaps == nil {
		snaps = []domain.InventorySnapshot{}
	}
	c.JSON(http.StatusOK, snaps)
}

func (h *LedgerHandler) GetTotals(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	totals, err := h.service.Totals(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to fetch totals")
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (h *LedgerHandler) GetForecast(c *gin.Context) {
	req := forecast.Request{Materials: queryList(c, "material", "materials")}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"lead_time_days", &req.LeadTimeDays},
		{"horizon_days", &req.HorizonDays},
	} {
		param := p.name
		raw := strings.TrimSpace(c.Query(param))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be an integer", param), "param": param})
			return
		}
		if v == 0 {
			respondError(c, &domain.ForecastParamError{Param: param, Value: v}, "invalid forecast parameter")
			return
		}
		*p.dst = v
	}

	recs, err := h.service.Forecast(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to compute forecast")
		return
	}
	if recs == nil {
		recs = []domain.ReorderRecommendation{}
	}

	defaults := h.service.ForecastDefaults()
	if req.LeadTimeDays == 0 {
		req.LeadTimeDays = defaults.LeadTimeDays
	}
	if req.HorizonDays == 0 {
		req.HorizonDays = defaults.HorizonDays
	}
	c.JSON(http.StatusOK, gin.H{
		"lead_time_days":  req.LeadTimeDays,
		"horizon_days":    req.HorizonDays,
		"recommendations": recs,
	})
}

type transactionRequest struct {
	Kind     string  `json:"kind" binding:"required"`
	Material string  `json:"material" binding:"required"`
	Lot      string  `json:"lot"`
	Location string  `json:"location"`
	Bags     float64 `json:"bags"`
	WeightKg float64 `json:"weight_kg"`
	Supplier string  `json:"supplier"`
	Date     string  `json:"date"`
}

func (h *LedgerHandler) RecordTransaction(c *gin.Context) {
	var body transactionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	kind, ok := domain.ParseEntryKind(body.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid kind %q", body.Kind)})
		return
	}
	date, err := parseQueryDate(body.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx := domain.Transaction{
		Kind:     kind,
		Material: body.Material,
		Lot:      body.Lot,
		Location: body.Location,
		Bags:     body.Bags,
		WeightKg: body.WeightKg,
		Supplier: body.Supplier,
	}
	if date != nil {
		tx.Date = *date
	}

	entry, err := h.service.RecordTransaction(c.Request.Context(), tx)
	if err != nil {
		respondError(c, err, "failed to record transaction")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *LedgerHandler) ExportXLSX(c *gin.Context) {
	h.export(c, export.XLSXRenderer{})
}

func (h *LedgerHandler) ExportPDF(c *gin.Context) {
	h.export(c, export.PDFRenderer{Title: c.DefaultQuery("title", "Bao cao ton kho")})
}

func (h *LedgerHandler) export(c *gin.Context, r export.Renderer) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf, r, filter); err != nil {
		respondError(c, err, "failed to export report")
		return
	}

	name := "bao-cao-" + time.Now().Format("20060102") + r.Extension()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, r.ContentType(), buf.Bytes())
}

func (h *LedgerHandler) GetLotCard(c *gin.Context) {
	lot := strings.TrimSpace(c.Param("lot"))
	if lot == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lot code is required"})
		return
	}

	var buf bytes.Buffer
	if err := h.service.LotCard(c.Request.Context(), &buf, lot); err != nil {
		respondError(c, err, "failed to render lot card")
		return
	}

	name := "phieu-lo-" + strings.ReplaceAll(domain.NormalizeCode(lot), " ", "_") + ".pdf"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
