// Package authz holds the single role policy consulted by every scoring workflow operation.
package authz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForbidden is returned when the principal lacks the role or relationship an action requires.
var ErrForbidden = errors.New("authorization error")

// ErrUnauthenticated is returned when no principal is attached to the call.
var ErrUnauthenticated = errors.New("authentication required")

// Role is the single enumerated role of a principal.
type Role string

const (
	RoleStudent       Role = "student"
	RoleFaculty       Role = "faculty"
	RoleAdministrator Role = "admin"
)

// ParseRole normalizes role claims. Legacy aliases ("teacher", "staff", "administrator")
// collapse onto the enumerated roles; anything else yields an empty role.
func ParseRole(value string) Role {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "student":
		return RoleStudent
	case "faculty", "teacher", "staff":
		return RoleFaculty
	case "admin", "administrator":
		return RoleAdministrator
	default:
		return ""
	}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty || r == RoleAdministrator
}

// Principal is the authenticated caller, passed explicitly into every operation.
type Principal struct {
	ID   uint
	Role Role
	Name string
}

// Authenticated reports whether the principal carries an identity and a known role.
func (p Principal) Authenticated() bool {
	return p.ID != 0 && p.Role.Valid()
}

// Action names an operation guarded by the policy table.
type Action string

const (
	ActionProjectCreate      Action = "project.create"
	ActionProjectManage      Action = "project.manage"
	ActionRubricCreate       Action = "rubric.create"
	ActionSubmissionCreate   Action = "submission.create"
	ActionSubmissionRead     Action = "submission.read"
	ActionEvaluationRecord   Action = "evaluation.record"
	ActionAIScoringTrigger   Action = "ai_scoring.trigger"
	ActionSubmissionFinalize Action = "submission.finalize"
	ActionActivityRead       Action = "activity.read"
)

// Resource describes the ownership facts an action is checked against.
// Zero values mean "not applicable".
type Resource struct {
	ProjectOwnerID uint
	StudentID      uint
}

type relation int

const (
	relationNone relation = iota
	relationAny
	relationProjectOwner
	relationSelf
)

// policy maps each action to the relation each role must hold. A missing role entry denies.
var policy = map[Action]map[Role]relation{
	ActionProjectCreate: {
		RoleFaculty:       relationAny,
		RoleAdministrator: relationAny,
	},
	ActionProjectManage: {
		RoleFaculty:       relationProjectOwner,
		RoleAdministrator: relationAny,
	},
	ActionRubricCreate: {
		RoleFaculty:       relationProjectOwner,
		RoleAdministrator: relationAny,
	},
	ActionSubmissionCreate: {
		RoleStudent: relationSelf,
	},
	ActionSubmissionRead: {
		RoleStudent:       relationSelf,
		RoleFaculty:       relationProjectOwner,
		RoleAdministrator: relationAny,
	},
	ActionEvaluationRecord: {
		RoleFaculty:       relationProjectOwner,
		RoleAdministrator: relationAny,
	},
	ActionAIScoringTrigger: {
		RoleFaculty:       relationProjectOwner,
		RoleAdministrator: relationAny,
	},
	ActionSubmissionFinalize: {
		RoleFaculty:       relationProjectOwner,
		RoleAdministrator: relationAny,
	},
	ActionActivityRead: {
		RoleAdministrator: relationAny,
	},
}

// Authorize checks the principal against the policy table for action on resource.
func Authorize(principal Principal, action Action, resource Resource) error {
	if !principal.Authenticated() {
		return ErrUnauthenticated
	}

	rules, ok := policy[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrForbidden, action)
	}

	switch rules[principal.Role] {
	case relationAny:
		return nil
	case relationProjectOwner:
		if resource.ProjectOwnerID != 0 && resource.ProjectOwnerID == principal.ID {
			return nil
		}
	case relationSelf:
		if resource.StudentID != 0 && resource.StudentID == principal.ID {
			return nil
		}
	}

	return fmt.Errorf("%w: %s may not %s", ErrForbidden, principal.Role, action)
}

// Allows is the boolean form of Authorize, used for list filtering.
func Allows(principal Principal, action Action, resource Resource) bool {
	return Authorize(principal, action, resource) == nil
}
