package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"margin-service/internal/config"
	"margin-service/internal/fileio"
	"margin-service/internal/margin/export"
	"margin-service/internal/margin/model"
	"margin-service/internal/margin/service"
	"margin-service/internal/middleware"
	"margin-service/internal/storage"
	"margin-service/internal/utils"
)

// Handler — HTTP-обвязка калькулятора: разбор, слияние, пересчёт и выгрузки
// поверх внешнего хранилища.
type Handler struct {
	cfg   config.Config
	log   zerolog.Logger
	store storage.Backend
	now   func() time.Time
	locks sync.Map // owner -> *sync.Mutex
}

func New(cfg config.Config, logger zerolog.Logger, store storage.Backend) *Handler {
	return &Handler{cfg: cfg, log: logger, store: store, now: time.Now}
}

// WithClock подменяет часы (история маржи зависит от времени).
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// Mount регистрирует маршруты калькулятора.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/records", h.List)
	r.Post("/records", h.Create)
	r.Put("/records/{id}", h.Update)
	r.Delete("/records/{id}", h.Delete)
	r.Delete("/records", h.ClearAll)
	r.Post("/preview", h.Preview)

	r.Post("/import", h.Import)
	r.Post("/import/errors.csv", h.ErrorsCSV)
	r.Get("/template.csv", h.Template)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/export.xlsx", h.ExportXLSX)

	r.Get("/history", h.History)
	r.Delete("/history", h.ResetHistory)
}

// lock сериализует изменения одного владельца: list -> merge -> Sync
// должны видеть результат предыдущей записи.
func (h *Handler) lock(owner string) func() {
	v, _ := h.locks.LoadOrStore(owner, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (h *Handler) logger(r *http.Request) zerolog.Logger {
	return h.log.With().Str("req_id", middleware.GetRequestID(r)).Str("user", ownerOf(r)).Logger()
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	log := h.logger(r)
	log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal")
}

// observe применяет правила истории к свежим итогам и сохраняет ряд,
// если он изменился. Ошибки истории не ломают основной ответ.
func (h *Handler) observe(ctx context.Context, r *http.Request, owner string, b model.Bundle) model.HistoryState {
	log := h.logger(r)
	prev, err := h.store.LoadHistory(ctx, owner)
	if err != nil {
		log.Warn().Err(err).Msg("load history")
		return model.HistoryState{Version: h.cfg.HistoryVersion}
	}
	next := service.ReconcileHistoryVersion(prev, h.cfg.HistoryVersion)
	next = service.ObserveTotals(next, b.Totals, len(b.Rows), h.now())
	if historyChanged(prev, next) {
		if err := h.store.SaveHistory(ctx, owner, next); err != nil {
			log.Warn().Err(err).Msg("save history")
		}
	}
	return next
}

// load перечитывает коллекцию и пересчитывает её вместе с историей.
func (h *Handler) load(ctx context.Context, r *http.Request, owner string) (bundleResponse, error) {
	records, err := h.store.List(ctx, owner)
	if err != nil {
		return bundleResponse{}, fmt.Errorf("list records: %w", err)
	}
	b := service.BundleOf(records)
	hist := h.observe(ctx, r, owner, b)
	points := hist.Points
	if points == nil {
		points = []model.HistoryPoint{}
	}
	return bundleResponse{Rows: b.Rows, Totals: b.Totals, Count: len(b.Rows), History: points}, nil
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int) {
	ctx := r.Context()
	resp, err := h.load(ctx, r, ownerOf(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = writeJSON(w, status, resp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK)
}

// formRecord — строгий разбор полей формы с той же политикой, что и импорт.
func formRecord(in formInput, defaultSKU string) (model.Record, service.Problem) {
	sku := in.SKU
	if service.CleanSKU(sku) == "" {
		sku = defaultSKU
	}
	return service.Check(sku,
		utils.ParseNumber(string(in.Price), true),
		utils.ParseNumber(string(in.Cost), true),
		utils.ParseNumber(string(in.FeePct), true),
		utils.ParseNumber(string(in.Logistics), true),
	)
}

func decodeForm(w http.ResponseWriter, r *http.Request) (formInput, bool) {
	var in formInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return in, false
	}
	return in, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, owner := r.Context(), ownerOf(r)
	in, ok := decodeForm(w, r)
	if !ok {
		return
	}
	defer h.lock(owner)()
	existing, err := h.store.List(ctx, owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rec, problem := formRecord(in, fmt.Sprintf("SKU-%d", len(existing)+1))
	if problem != service.ProblemNone {
		writeError(w, http.StatusUnprocessableEntity, problem.Message())
		return
	}
	rec.ID = uuid.NewString()

	replace := h.cfg.ReplaceBySKU
	if in.ReplaceBySKU != nil {
		replace = *in.ReplaceBySKU
	}
	merged := service.MergeOne(existing, rec, replace)
	if err := storage.Sync(ctx, h.store, owner, existing, merged); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, owner := r.Context(), ownerOf(r)
	id := chi.URLParam(r, "id")
	in, ok := decodeForm(w, r)
	if !ok {
		return
	}
	defer h.lock(owner)()
	existing, err := h.store.List(ctx, owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	idx := slices.IndexFunc(existing, func(x model.Record) bool { return x.ID == id })
	if idx < 0 {
		h.fail(w, r, storage.ErrNotFound)
		return
	}

	rec, problem := formRecord(in, existing[idx].SKU)
	if problem != service.ProblemNone {
		writeError(w, http.StatusUnprocessableEntity, problem.Message())
		return
	}
	rec.ID, rec.Origin = existing[idx].ID, existing[idx].Origin

	after := slices.Clone(existing)
	after[idx] = rec
	if err := storage.Sync(ctx, h.store, owner, existing, after); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := ownerOf(r)
	defer h.lock(owner)()
	if err := h.store.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK)
}

// ClearAll удаляет все записи владельца и сбрасывает историю маржи.
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	ctx, owner := r.Context(), ownerOf(r)
	defer h.lock(owner)()
	if err := h.store.ClearAll(ctx, owner); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.SaveHistory(ctx, owner, model.HistoryState{Version: h.cfg.HistoryVersion}); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK)
}

// Preview — живой расчёт формы без сохранения: нестрогий разбор (мусор → 0),
// ошибка валидации возвращается рядом с расчётом.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeForm(w, r)
	if !ok {
		return
	}
	row := service.Compute(model.Record{
		SKU:       service.CleanSKU(in.SKU),
		Price:     utils.ParseNumber(string(in.Price), false),
		Cost:      utils.ParseNumber(string(in.Cost), false),
		FeePct:    utils.ParseNumber(string(in.FeePct), false),
		Logistics: utils.ParseNumber(string(in.Logistics), false),
	}, 0)
	resp := previewResponse{Row: row}
	if _, problem := formRecord(in, "preview"); problem != service.ProblemNone {
		resp.Error = problem.Message()
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	ctx, owner := r.Context(), ownerOf(r)
	log := h.logger(r)

	if err := r.ParseMultipartForm(int64(h.cfg.MaxUploadMB) << 20); err != nil {
		writeError(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file: "+err.Error())
		return
	}
	defer file.Close()

	tbl, err := fileio.ReadAny(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file: "+err.Error())
		return
	}

	var res model.ParseResult
	if tbl.Sheet {
		res = service.ParseRows(tbl.Rows)
	} else {
		res = service.Parse(tbl.Text)
	}
	rep := service.BuildReport(res)

	replace := toBool(r.FormValue("replace_by_sku"), h.cfg.ReplaceBySKU)
	defer h.lock(owner)()
	if rep.Imported > 0 {
		existing, err := h.store.List(ctx, owner)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		merged := service.Merge(existing, res.Records, replace)
		if err := storage.Sync(ctx, h.store, owner, existing, merged); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	resp, err := h.load(ctx, r, owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if rep.Kind == model.ReportError {
		status = http.StatusUnprocessableEntity
	}
	_ = writeJSON(w, status, importResponse{Report: rep, bundleResponse: resp})

	log.Info().
		Str("file", header.Filename).
		Bool("sheet", tbl.Sheet).
		Bool("header", res.HasHeader).
		Bool("replace", replace).
		Str("kind", string(rep.Kind)).
		Int("imported", rep.Imported).
		Int("skipped", len(rep.Errors)).
		Dur("elapsed", h.now().Sub(start)).
		Msg("import done")
}

func (h *Handler) ErrorsCSV(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Errors []model.ImportError `json:"errors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	attachment(w, "text/csv; charset=utf-8", "import-errors.csv", []byte(export.ErrorReportCSV(body.Errors)))
}

func (h *Handler) Template(w http.ResponseWriter, _ *http.Request) {
	attachment(w, "text/csv; charset=utf-8", "sku-template.csv", []byte(export.TemplateCSV()))
}

func (h *Handler) computed(r *http.Request) ([]model.ComputedRecord, error) {
	records, err := h.store.List(r.Context(), ownerOf(r))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return service.ComputeAll(records, 0), nil
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.computed(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	units := toBool(r.URL.Query().Get("units"), false)
	attachment(w, "text/csv; charset=utf-8", export.Filename(h.now(), "csv"), []byte(export.ToCSV(rows, units)))
}

func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	rows, err := h.computed(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	data, err := export.ToSheet(rows, export.SheetOptions{
		WithUnits:  toBool(q.Get("units"), false),
		WithStatus: toBool(q.Get("status"), false),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		export.Filename(h.now(), "xlsx"), data)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx, owner := r.Context(), ownerOf(r)
	prev, err := h.store.LoadHistory(ctx, owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	next := service.ReconcileHistoryVersion(prev, h.cfg.HistoryVersion)
	if historyChanged(prev, next) {
		if err := h.store.SaveHistory(ctx, owner, next); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if next.Points == nil {
		next.Points = []model.HistoryPoint{}
	}
	_ = writeJSON(w, http.StatusOK, next)
}

func (h *Handler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	state := model.HistoryState{Version: h.cfg.HistoryVersion, Points: []model.HistoryPoint{}}
	if err := h.store.SaveHistory(r.Context(), ownerOf(r), state); err != nil {
		h.fail(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, state)
}
