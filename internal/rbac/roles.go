// Package rbac holds the staff role model and the HTTP authorization
// middleware built on it.
package rbac

// Staff roles. Role names are stored verbatim on the users table.
const (
	RoleOwner             = "Owner"
	RoleAdmin             = "Admin"
	RoleViewer            = "Viewer"
	RoleManager           = "Manager"
	RoleCallCenter        = "Call Center"
	RoleSalesExecutive    = "Sales Executive"
	RoleLoanOfficer       = "Loan Officer"
	RoleCreditRiskAnalyst = "Credit Risk Analyst"
)

// PhaseWindow returns the workflow phases a role is scoped to when listing
// loans. A nil window means the role sees every phase.
func PhaseWindow(role string) []int {
	switch role {
	case RoleCallCenter:
		return []int{1}
	case RoleSalesExecutive, RoleLoanOfficer:
		return []int{1, 2}
	case RoleCreditRiskAnalyst:
		return []int{2}
	case RoleManager:
		return []int{3}
	default:
		return nil
	}
}
