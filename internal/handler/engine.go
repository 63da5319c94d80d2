package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/crednine/loan-engine/internal/domain"
	"github.com/crednine/loan-engine/internal/service"
	customError "github.com/crednine/loan-engine/pkg/errors"
	"github.com/crednine/loan-engine/pkg/response"
)

type EngineHandler struct {
	service   *service.EngineService
	validator *validator.Validate
}

func NewEngineHandler(service *service.EngineService) *EngineHandler {
	return &EngineHandler{
		service:   service,
		validator: validator.New(),
	}
}

// DisburseLoan handles POST /api/v1/loans
func (h *EngineHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.DisburseLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	resp, err := h.service.DisburseLoan(r.Context(), &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, resp)
}

// RestructureLoan handles POST /api/v1/loans/{loanId}/restructure
func (h *EngineHandler) RestructureLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.RestructureLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	resp, err := h.service.RestructureLoan(r.Context(), loanID, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, resp)
}

// RecomputeSchedule handles POST /api/v1/loans/{loanId}/recompute
func (h *EngineHandler) RecomputeSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	effective, err := queryDate(r, "effective_date", time.Now())
	if err != nil {
		response.BadRequest(w, "Invalid effective_date, expected YYYY-MM-DD", err)
		return
	}

	resp, err := h.service.RecomputeSchedule(r.Context(), loanID, effective)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, resp)
}

// GetSchedule handles GET /api/v1/loans/{loanId}/schedule
func (h *EngineHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	resp, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, resp)
}

// GetOutstanding handles GET /api/v1/loans/{loanId}/outstanding
func (h *EngineHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	asOf, err := queryDate(r, "as_of", time.Now())
	if err != nil {
		response.BadRequest(w, "Invalid as_of date, expected YYYY-MM-DD", err)
		return
	}

	resp, err := h.service.GetOutstanding(r.Context(), loanID, asOf)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, resp)
}

// MakePayment handles POST /api/v1/loans/{loanId}/payment
func (h *EngineHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	resp, err := h.service.ApplyPayment(r.Context(), loanID, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, resp)
}

// Accrue handles POST /api/v1/loans/{loanId}/accrue
func (h *EngineHandler) Accrue(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	date, err := queryDate(r, "date", time.Now())
	if err != nil {
		response.BadRequest(w, "Invalid date, expected YYYY-MM-DD", err)
		return
	}

	record, err := h.service.AccrueLoan(r.Context(), loanID, date)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, record)
}

// GetStage handles GET /api/v1/loans/{loanId}/stage
func (h *EngineHandler) GetStage(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	stage, err := h.service.GetStage(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, stage)
}

// CureLoan handles POST /api/v1/loans/{loanId}/cure
func (h *EngineHandler) CureLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	asOf, err := queryDate(r, "as_of", time.Now())
	if err != nil {
		response.BadRequest(w, "Invalid as_of date, expected YYYY-MM-DD", err)
		return
	}

	stage, err := h.service.CureLoan(r.Context(), loanID, asOf)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, stage)
}

// GetProvision handles GET /api/v1/loans/{loanId}/provision
func (h *EngineHandler) GetProvision(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	date, err := queryDate(r, "date", time.Now())
	if err != nil {
		response.BadRequest(w, "Invalid date, expected YYYY-MM-DD", err)
		return
	}

	provision, err := h.service.GetProvision(r.Context(), loanID, date)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, provision)
}

// PortfolioSummary handles GET /api/v1/provisions/summary
func (h *EngineHandler) PortfolioSummary(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date", time.Now())
	if err != nil {
		response.BadRequest(w, "Invalid date, expected YYYY-MM-DD", err)
		return
	}

	summary, err := h.service.PortfolioSummary(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, summary)
}

func queryDate(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback.Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", raw)
}

// writeError maps the error taxonomy onto HTTP statuses: validation and
// computation problems are the caller's fault, missing loans are 404,
// everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *customError.ValidationError
	if errors.As(err, &validationErr) {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	var computationErr *customError.ComputationError
	if errors.As(err, &computationErr) {
		response.Error(w, http.StatusUnprocessableEntity, "Computation failed", err)
		return
	}

	var businessErr *customError.BusinessError
	if errors.As(err, &businessErr) {
		switch businessErr.Code {
		case customError.ErrCodeLoanNotFound:
			response.NotFound(w, businessErr.Message)
		case customError.ErrCodeLoanAlreadyExists:
			response.Error(w, http.StatusConflict, businessErr.Message, businessErr.Err)
		case customError.ErrCodeDatabaseError, customError.ErrCodeCacheError:
			response.InternalServerError(w, businessErr.Message, businessErr.Err)
		default:
			response.Error(w, http.StatusUnprocessableEntity, businessErr.Message, businessErr.Err)
		}
		return
	}

	response.InternalServerError(w, "Internal server error", err)
}
