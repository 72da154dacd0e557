/*
handlers.go - HTTP API handlers for the commission engine

PURPOSE:
  Exposes the commission engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Uploads:
    POST   /api/uploads/{class}            Ingest one monthly batch

  Payees:
    GET    /api/payees                     List payee configs (paged)
    POST   /api/payees                     Create payee config
    GET    /api/payees/{email}             Get payee config
    PUT    /api/payees/{email}             Update payee config
    GET    /api/payees/{email}/year/{year} Twelve-month series
    GET    /api/payees/{email}/months/{m}  Month drill-down

  Payouts:
    GET    /api/payouts?month=YYYY-MM      Cross-payee disbursements

  Admin:
    POST   /api/admin/purge                Delete data from a month on
    POST   /api/admin/recalculate          Re-run pipeline for a class

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, rejected batches, invalid input
  - 404: Unknown payee
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - commission/upload.go: Batch processing entry point
*/
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

const defaultPageLimit = 50

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  commission.TxRecordStore
	Engine *commission.Engine
	Logger *slog.Logger
}

// NewHandler creates a new handler over the given store.
func NewHandler(store commission.TxRecordStore, logger *slog.Logger) *Handler {
	return &Handler{
		Store:  store,
		Engine: commission.NewEngine(store, logger),
		Logger: logger,
	}
}

// =============================================================================
// UPLOAD HANDLERS
// =============================================================================

// ProcessUpload ingests one monthly batch for the class in the URL.
// POST /api/uploads/{class}
func (h *Handler) ProcessUpload(w http.ResponseWriter, r *http.Request) {
	class := commission.PayeeClass(chi.URLParam(r, "class"))

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	batch := commission.UploadBatch{Class: class}
	for _, row := range req.Invoices {
		month, err := commission.ParseMonth(row.Month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid invoice month", err)
			return
		}
		batch.Invoices = append(batch.Invoices, commission.InvoiceUpload{
			DealID:         row.DealID,
			DealName:       row.DealName,
			DealLink:       row.DealLink,
			PayeeEmail:     row.PayeeEmail,
			PayeeName:      row.PayeeName,
			AmountInvoiced: row.AmountInvoiced,
			Month:          month,
			DealOwner:      row.DealOwner,
		})
	}
	for _, row := range req.Collections {
		month, err := commission.ParseMonth(row.Month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid collection month", err)
			return
		}
		batch.Collections = append(batch.Collections, commission.CollectionUpload{
			DealID:     row.DealID,
			PayeeEmail: row.PayeeEmail,
			PayeeName:  row.PayeeName,
			AmountPaid: row.AmountPaid,
			Month:      month,
		})
	}

	result, err := h.Engine.ProcessUpload(r.Context(), batch)
	if err != nil {
		status := http.StatusInternalServerError
		if commission.IsClientError(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, UploadResponseDTO{Success: false, Message: result.Message})
		return
	}

	writeJSON(w, http.StatusOK, UploadResponseDTO{Success: result.Success, Message: result.Message})
}

// =============================================================================
// PAYEE HANDLERS
// =============================================================================

// ListPayees returns payee configs, optionally filtered by class.
// GET /api/payees?class=recruiter&page=1&limit=50
func (h *Handler) ListPayees(w http.ResponseWriter, r *http.Request) {
	class := commission.PayeeClass(r.URL.Query().Get("class"))
	if class != "" && !class.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown payee class", nil)
		return
	}

	payees, err := h.Store.ListPayees(r.Context(), class)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payees", err)
		return
	}

	page, limit := pageParams(r)
	start := (page - 1) * limit
	if start > len(payees) {
		start = len(payees)
	}
	end := start + limit
	if end > len(payees) {
		end = len(payees)
	}

	dtos := make([]PayeeDTO, 0, end-start)
	for _, cfg := range payees[start:end] {
		dtos = append(dtos, toPayeeDTO(cfg))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayee returns a single payee config.
// GET /api/payees/{email}
func (h *Handler) GetPayee(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	cfg, err := h.Store.GetPayee(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payee", err)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, "Payee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPayeeDTO(*cfg))
}

// CreatePayee creates a payee config. Rates arrive as percentages.
// POST /api/payees
func (h *Handler) CreatePayee(w http.ResponseWriter, r *http.Request) {
	var req SavePayeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg := req.toConfig()
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee config", err)
		return
	}
	if err := h.Store.SavePayee(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayeeDTO(cfg))
}

// UpdatePayee replaces the config for the payee in the URL.
// PUT /api/payees/{email}
func (h *Handler) UpdatePayee(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	existing, err := h.Store.GetPayee(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payee", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Payee not found", nil)
		return
	}

	var req SavePayeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.Email = email

	cfg := req.toConfig()
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee config", err)
		return
	}
	if err := h.Store.SavePayee(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payee", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayeeDTO(cfg))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetYearSeries returns twelve zero-filled rows for the payee's year.
// GET /api/payees/{email}/year/{year}
func (h *Handler) GetYearSeries(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	reporter := &commission.Reporter{Store: h.Store}
	rows, err := reporter.YearSeries(r.Context(), email, year)
	if err != nil {
		h.writeDomainError(w, "Failed to build year series", err)
		return
	}

	dtos := make([]YearRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = YearRowDTO{
			Month:            row.Month.String(),
			TotalInvoiced:    row.TotalInvoiced,
			TotalCollections: row.TotalCollections,
			TotalPayout:      row.TotalPayout,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMonthDetails returns the payee's month drill-down.
// GET /api/payees/{email}/months/{month}
func (h *Handler) GetMonthDetails(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	month, err := commission.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	reporter := &commission.Reporter{Store: h.Store}
	details, err := reporter.MonthDetails(r.Context(), email, month)
	if err != nil {
		h.writeDomainError(w, "Failed to build month details", err)
		return
	}

	dto := MonthDetailsDTO{
		Month:            details.Month.String(),
		TotalInvoiced:    details.Summary.TotalInvoiced,
		TotalCollections: details.Summary.TotalCollections,
		TotalPayout:      details.TotalPayout,
		Invoices:         make([]InvoiceDTO, 0, len(details.Invoices)),
		Collections:      make([]CollectionDTO, 0, len(details.Collections)),
		Payouts:          make([]PayoutDTO, 0, len(details.Payouts)),
	}
	for _, inv := range details.Invoices {
		dto.Invoices = append(dto.Invoices, InvoiceDTO{
			DealID:         inv.DealID,
			DealName:       inv.DealName,
			DealLink:       inv.DealLink,
			AmountInvoiced: inv.AmountInvoiced,
			DealOwner:      inv.DealOwner,
		})
	}
	for _, c := range details.Collections {
		dto.Collections = append(dto.Collections, CollectionDTO{
			DealID:     c.Collection.DealID,
			DealName:   c.DealName,
			DealLink:   c.DealLink,
			AmountPaid: c.Collection.AmountPaid,
		})
	}
	for _, p := range details.Payouts {
		dto.Payouts = append(dto.Payouts, toPayoutDTO(p))
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListPayouts returns every payee's payouts disbursed in a month.
// GET /api/payouts?month=YYYY-MM
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	month, err := commission.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	reporter := &commission.Reporter{Store: h.Store}
	rows, err := reporter.PayoutsByMonth(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payouts", err)
		return
	}

	dtos := make([]AdminPayoutDTO, len(rows))
	for i, row := range rows {
		dtos[i] = AdminPayoutDTO{
			PayeeEmail: row.Detail.Payout.PayeeEmail,
			PayeeName:  row.PayeeName,
			PayoutDTO:  toPayoutDTO(row.Detail),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Purge deletes uploaded and derived rows from a month onward.
// POST /api/admin/purge
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	from, err := commission.ParseMonth(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	if err := h.Engine.PurgeFrom(r.Context(), from); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to purge", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageDTO{Message: "purged data from " + from.String()})
}

// Recalculate re-runs the pipeline for one class starting at a month.
// POST /api/admin/recalculate
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month, err := commission.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}
	class := commission.PayeeClass(req.Class)
	if !class.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown payee class", nil)
		return
	}

	payees, err := h.Store.ListPayees(r.Context(), class)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payees", err)
		return
	}

	orchestrator := &commission.Orchestrator{Store: h.Store, Logger: h.Logger}
	if err := orchestrator.Run(r.Context(), commission.RecalcRequest{
		UploadMonth: month,
		Payees:      payees,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Recalculation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageDTO{Message: "recalculated from " + month.String()})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case commission.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Payee not found", nil)
	case commission.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}
	return page, limit
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
