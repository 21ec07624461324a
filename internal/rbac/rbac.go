package rbac

type Role string
type Action string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

const (
	ActionViewOwnReport   Action = "view-own-report"
	ActionSubmitForm      Action = "submit-form"
	ActionViewAllReports  Action = "view-all-reports"
	ActionViewDashboard   Action = "view-dashboard"
	ActionManagePatients  Action = "manage-patients"
	ActionSearchReports   Action = "search-reports"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleDoctor:
		return true
	case RolePatient:
		return action == ActionViewOwnReport || action == ActionSubmitForm
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RolePatient, RoleDoctor:
		return Role(role)
	default:
		return RolePatient
	}
}
