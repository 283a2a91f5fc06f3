package loans

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-credit/meridian/internal/platform/httpx"
	"github.com/meridian-credit/meridian/internal/rbac"
	"github.com/meridian-credit/meridian/internal/shared"
)

// Handler exposes the loan workflow over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler constructs the loan handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}

	req := ListLoansRequest{
		Search: r.URL.Query().Get("search"),
		Phases: rbac.PhaseWindow(actor.Role),
		Limit:  20,
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := LoanStatus(status)
		req.Status = &s
	}
	if phase := r.URL.Query().Get("phase"); phase != "" {
		p, err := strconv.Atoi(phase)
		if err != nil || p < PhaseRegistration || p > PhaseDisbursement {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "phase must be between 1 and 4")
			return
		}
		req.Phase = &p
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 && n <= 200 {
			req.Limit = n
		}
	}
	if page := r.URL.Query().Get("page"); page != "" {
		if n, err := strconv.Atoi(page); err == nil && n > 1 {
			req.Offset = (n - 1) * req.Limit
		}
	}

	list, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list loans failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	var req RegisterLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.Register(r.Context(), *actor, req)
	if err != nil {
		h.logger.Error("register loan failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, loan)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.Get(r.Context(), loanID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req CaptureDetailsRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.CaptureDetails(r.Context(), *actor, loanID, req)
	if err != nil {
		h.logger.Error("capture loan failed", slog.Int64("loan_id", loanID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req ApproveLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.Approve(r.Context(), *actor, loanID, req)
	if err != nil {
		h.logger.Error("approve loan failed", slog.Int64("loan_id", loanID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) Disburse(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req DisburseLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.Disburse(r.Context(), *actor, loanID, req)
	if err != nil {
		h.logger.Error("disburse loan failed", slog.Int64("loan_id", loanID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req EditLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.Edit(r.Context(), *actor, loanID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), *actor, loanID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.RecordPayment(r.Context(), *actor, loanID, req)
	if err != nil {
		h.logger.Error("record payment failed", slog.Int64("loan_id", loanID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Repayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}

	schedule, err := h.service.Repayments(r.Context(), loanID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"repayments": schedule})
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}

	payments, err := h.service.Payments(r.Context(), loanID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), loanID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) loanID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid loan id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
