package loans

import (
	"github.com/go-chi/chi/v5"

	"github.com/meridian-credit/meridian/internal/rbac"
)

// MountRoutes attaches the loan endpoints. Read endpoints are open to every
// authenticated role; write endpoints are gated by workflow role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/loans", h.List)
	r.Get("/loans/{loanID}", h.Show)
	r.Get("/loans/{loanID}/repayments", h.Repayments)
	r.Get("/loans/{loanID}/payments", h.Payments)
	r.Get("/loans/{loanID}/balance", h.Balance)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleCallCenter))
		r.Post("/loans/register", h.Register)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleSalesExecutive, rbac.RoleLoanOfficer))
		r.Put("/loans/{loanID}/capture", h.Capture)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleCreditRiskAnalyst))
		r.Put("/loans/{loanID}/approve", h.Approve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleManager))
		r.Put("/loans/{loanID}/disburse", h.Disburse)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleCallCenter, rbac.RoleSalesExecutive, rbac.RoleLoanOfficer))
		r.Put("/loans/{loanID}", h.Edit)
		r.Delete("/loans/{loanID}", h.Delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleLoanOfficer, rbac.RoleManager))
		r.Post("/loans/{loanID}/repayments", h.RecordPayment)
	})
}
