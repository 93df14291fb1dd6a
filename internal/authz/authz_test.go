package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoleCollapsesAliases(t *testing.T) {
	require.Equal(t, RoleFaculty, ParseRole("Teacher"))
	require.Equal(t, RoleFaculty, ParseRole(" staff "))
	require.Equal(t, RoleAdministrator, ParseRole("administrator"))
	require.Equal(t, RoleStudent, ParseRole("STUDENT"))
	require.Equal(t, Role(""), ParseRole("guest"))
}

func TestAuthorizePolicyTable(t *testing.T) {
	student := Principal{ID: 1, Role: RoleStudent}
	owner := Principal{ID: 2, Role: RoleFaculty}
	otherFaculty := Principal{ID: 3, Role: RoleFaculty}
	admin := Principal{ID: 4, Role: RoleAdministrator}

	ownedSubmission := Resource{ProjectOwnerID: owner.ID, StudentID: student.ID}

	cases := []struct {
		name      string
		principal Principal
		action    Action
		resource  Resource
		allowed   bool
	}{
		{"student creates own submission", student, ActionSubmissionCreate, Resource{StudentID: student.ID}, true},
		{"student cannot create for others", student, ActionSubmissionCreate, Resource{StudentID: 99}, false},
		{"faculty cannot submit", owner, ActionSubmissionCreate, Resource{StudentID: owner.ID}, false},
		{"student reads own submission", student, ActionSubmissionRead, ownedSubmission, true},
		{"student cannot read others", Principal{ID: 9, Role: RoleStudent}, ActionSubmissionRead, ownedSubmission, false},
		{"owner records evaluation", owner, ActionEvaluationRecord, ownedSubmission, true},
		{"non owner cannot evaluate", otherFaculty, ActionEvaluationRecord, ownedSubmission, false},
		{"student cannot evaluate", student, ActionEvaluationRecord, ownedSubmission, false},
		{"admin finalizes anything", admin, ActionSubmissionFinalize, ownedSubmission, true},
		{"owner triggers ai", owner, ActionAIScoringTrigger, ownedSubmission, true},
		{"faculty creates project", otherFaculty, ActionProjectCreate, Resource{}, true},
		{"student cannot create project", student, ActionProjectCreate, Resource{}, false},
		{"only admin reads activity", owner, ActionActivityRead, Resource{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.principal, tc.action, tc.resource)
			if tc.allowed {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestAuthorizeRequiresAuthenticatedPrincipal(t *testing.T) {
	err := Authorize(Principal{}, ActionSubmissionRead, Resource{})
	require.ErrorIs(t, err, ErrUnauthenticated)

	err = Authorize(Principal{ID: 5, Role: "guest"}, ActionSubmissionRead, Resource{})
	require.ErrorIs(t, err, ErrUnauthenticated)
}
