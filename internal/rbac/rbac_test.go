package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "patient own report", role: RolePatient, action: ActionViewOwnReport, allow: true},
		{name: "patient submit form", role: RolePatient, action: ActionSubmitForm, allow: true},
		{name: "patient all reports", role: RolePatient, action: ActionViewAllReports, allow: false},
		{name: "patient dashboard", role: RolePatient, action: ActionViewDashboard, allow: false},
		{name: "patient manage patients", role: RolePatient, action: ActionManagePatients, allow: false},
		{name: "doctor all reports", role: RoleDoctor, action: ActionViewAllReports, allow: true},
		{name: "doctor dashboard", role: RoleDoctor, action: ActionViewDashboard, allow: true},
		{name: "doctor search", role: RoleDoctor, action: ActionSearchReports, allow: true},
		{name: "unknown role", role: Role("nurse"), action: ActionViewOwnReport, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("doctor") != RoleDoctor {
		t.Fatal("doctor should survive normalization")
	}
	if Normalize("") != RolePatient {
		t.Fatal("unknown roles should default to patient")
	}
}
