/*
handlers.go - HTTP API handlers for the vacation balance engine

PURPOSE:
  Exposes the vacation engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to vacation.Engine.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List all employees
    POST   /api/employees                    Create or rename an employee
    GET    /api/employees/{id}               Get employee details
    GET    /api/employees/{id}/entitlement   Annual entitlement (?year=)
    GET    /api/employees/{id}/balance       Available days and buckets (?year=)
    POST   /api/employees/{id}/consume       FIFO draw-down

  Admin:
    POST   /api/admin/buckets                Create a bucket
    PUT    /api/admin/buckets/{id}           Adjust a bucket's total
    DELETE /api/admin/buckets/{id}           Soft delete a bucket
    POST   /api/admin/years/{year}/open      Create the year's buckets

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee or bucket not found
  - 409: Duplicate bucket, concurrent modification (retry)
  - 422: Insufficient balance
  - 500: Internal errors, inconsistent stored buckets

SECURITY NOTE:
  No authentication or authorization. Run behind the HR portal's gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/warp/vacation-engine/logging"
	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *vacation.Engine
	Employees vacation.EmployeeStore
	Log       logrus.FieldLogger
}

// NewHandler creates a handler on top of engine.
func NewHandler(engine *vacation.Engine, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		Engine:    engine,
		Employees: engine.Employees,
		Log:       log.WithField(logging.FieldComponent, logging.ComponentHTTP),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Employees.ListEmployees(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Employees.GetEmployee(r.Context(), userIDParam(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates an employee, or renames an existing one. The hire
// date of an existing employee cannot change.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hireDate, err := vacation.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}

	ctx := r.Context()
	emp := vacation.Employee{
		ID:       vacation.UserID(req.ID),
		Name:     req.Name,
		Email:    req.Email,
		HireDate: hireDate,
	}

	status := http.StatusCreated
	existing, err := h.Employees.GetEmployee(ctx, emp.ID)
	switch {
	case err == nil:
		if !existing.HireDate.Equal(hireDate) {
			writeError(w, http.StatusConflict, "hire_date cannot be changed", nil)
			return
		}
		status = http.StatusOK
	case !errors.Is(err, vacation.ErrEmployeeNotFound):
		h.writeDomainError(w, r, "Failed to get employee", err)
		return
	}

	if err := h.Employees.SaveEmployee(ctx, emp); err != nil {
		h.writeDomainError(w, r, "Failed to save employee", err)
		return
	}

	saved, err := h.Employees.GetEmployee(ctx, emp.ID)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get employee", err)
		return
	}
	writeJSON(w, status, toEmployeeDTO(saved))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetEntitlement returns the days granted for ?year= (default current year).
func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	emp, err := h.Employees.GetEmployee(r.Context(), userIDParam(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get employee", err)
		return
	}

	writeJSON(w, http.StatusOK, EntitlementDTO{
		UserID:   string(emp.ID),
		Year:     year,
		HireDate: emp.HireDate.Format("2006-01-02"),
		Days:     vacation.EntitlementFor(emp.HireDate, year),
	})
}

// GetBalance returns the available days up to ?year= (default current year)
// with the buckets they come from, oldest first.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	ctx := r.Context()
	userID := userIDParam(r)
	if _, err := h.Employees.GetEmployee(ctx, userID); err != nil {
		h.writeDomainError(w, r, "Failed to get employee", err)
		return
	}

	balance, err := h.Engine.Balance(ctx, userID, year)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// Consume draws approved leave from the employee's buckets, oldest first.
// The requested year's bucket is created from the entitlement if it does
// not exist yet and the year has started.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	var req ConsumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Days <= 0 {
		writeError(w, http.StatusBadRequest, "days must be positive", vacation.ErrInvalidAmount)
		return
	}

	ctx := r.Context()
	userID := userIDParam(r)
	current := h.Engine.CurrentYear()
	year := req.Year
	if year == 0 {
		year = current
	}

	if _, err := h.Employees.GetEmployee(ctx, userID); err != nil {
		h.writeDomainError(w, r, "Failed to get employee", err)
		return
	}
	if year <= current {
		if _, _, err := h.Engine.EnsureBucket(ctx, userID, year); err != nil && !errors.Is(err, vacation.ErrYearClosed) {
			h.writeDomainError(w, r, "Failed to open year", err)
			return
		}
	}

	consumption, err := h.Engine.ConsumeDays(ctx, userID, year, vacation.NewDaysFromFloat(req.Days))
	if err != nil {
		h.writeDomainError(w, r, "Failed to consume days", err)
		return
	}
	writeJSON(w, http.StatusOK, toConsumptionDTO(consumption))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateBucket creates a bucket. Without total_days the entitlement is used.
func (h *Handler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	var req CreateBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" || req.Year == 0 {
		writeError(w, http.StatusBadRequest, "user_id and year are required", nil)
		return
	}

	ctx := r.Context()
	userID := vacation.UserID(req.UserID)

	var total vacation.Days
	if req.TotalDays != nil {
		total = vacation.NewDaysFromFloat(*req.TotalDays)
	} else {
		days, err := h.Engine.Entitlement(ctx, userID, req.Year)
		if err != nil {
			h.writeDomainError(w, r, "Failed to compute entitlement", err)
			return
		}
		total = vacation.NewDays(days)
	}

	bucket, err := h.Engine.CreateBucket(ctx, userID, req.Year, total)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create bucket", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBucketDTO(bucket))
}

// AdjustBucket replaces a bucket's total days.
func (h *Handler) AdjustBucket(w http.ResponseWriter, r *http.Request) {
	var req AdjustBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.TotalDays == nil {
		writeError(w, http.StatusBadRequest, "total_days is required", nil)
		return
	}

	id := vacation.BucketID(chi.URLParam(r, "id"))
	bucket, err := h.Engine.AdjustTotalDays(r.Context(), id, vacation.NewDaysFromFloat(*req.TotalDays))
	if err != nil {
		h.writeDomainError(w, r, "Failed to adjust bucket", err)
		return
	}
	writeJSON(w, http.StatusOK, toBucketDTO(bucket))
}

// DeleteBucket soft-deletes a bucket.
func (h *Handler) DeleteBucket(w http.ResponseWriter, r *http.Request) {
	id := vacation.BucketID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteBucket(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete bucket", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenYear creates the year's bucket for every eligible employee.
func (h *Handler) OpenYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	result, err := h.Engine.OpenYear(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, r, "Failed to open year", err)
		return
	}
	writeJSON(w, http.StatusOK, toYearOpeningDTO(result))
}

// =============================================================================
// HELPERS
// =============================================================================

func userIDParam(r *http.Request) vacation.UserID {
	return vacation.UserID(chi.URLParam(r, "id"))
}

// yearQuery reads ?year=, defaulting to the engine's current year.
func (h *Handler) yearQuery(r *http.Request) (int, error) {
	s := r.URL.Query().Get("year")
	if s == "" {
		return h.Engine.CurrentYear(), nil
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if year < 1 {
		return 0, errors.New("year must be positive")
	}
	return year, nil
}

// writeDomainError maps engine and store errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var insufficient *vacation.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "INSUFFICIENT_BALANCE",
			Details: ShortfallDTO{
				Available: insufficient.Available.Float64(),
				Requested: insufficient.Requested.Float64(),
				Shortfall: insufficient.Shortfall.Float64(),
			},
		})
	case errors.Is(err, vacation.ErrInvalidAmount), errors.Is(err, vacation.ErrInvalidAdjustment):
		writeCodedError(w, http.StatusBadRequest, "INVALID_INPUT", message, err)
	case errors.Is(err, vacation.ErrEmployeeNotFound):
		writeCodedError(w, http.StatusNotFound, "EMPLOYEE_NOT_FOUND", "Employee not found", err)
	case errors.Is(err, vacation.ErrBucketNotFound):
		writeCodedError(w, http.StatusNotFound, "BUCKET_NOT_FOUND", "Bucket not found", err)
	case errors.Is(err, vacation.ErrBucketExists):
		writeCodedError(w, http.StatusConflict, "BUCKET_EXISTS", message, err)
	case vacation.IsRetryable(err):
		writeCodedError(w, http.StatusConflict, "CONCURRENT_MODIFICATION", message, err)
	default:
		code := "INTERNAL"
		if errors.Is(err, vacation.ErrInconsistentBucket) {
			code = "INCONSISTENT_BUCKET"
		}
		h.Log.WithFields(logrus.Fields{
			logging.FieldRequestID: middleware.GetReqID(r.Context()),
			logging.FieldPath:      r.URL.Path,
		}).WithError(err).Error(message)
		writeCodedError(w, http.StatusInternalServerError, code, message, err)
	}
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

func writeCodedError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
