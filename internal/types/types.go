// Package types provides common type definitions for the portal admin backend.
package types

import "strings"

// Role represents the role of a portal user
type Role string

const (
	// RoleSuperAdmin can do everything, including approving recharges
	RoleSuperAdmin Role = "super_admin"
	// RoleAdmin manages content, users and application reviews
	RoleAdmin Role = "admin"
	// RoleEntrepreneur submits applications on behalf of citizens
	RoleEntrepreneur Role = "entrepreneur"
	// RoleAgent is a reseller that may carry personalized fees
	RoleAgent Role = "agent"
	// RoleSubAgent is a reseller working under an agent
	RoleSubAgent Role = "sub_agent"
)

// Roles returns every known role
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleEntrepreneur, RoleAgent, RoleSubAgent}
}

// Valid reports whether the role is a known value
func (r Role) Valid() bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role has back-office privileges
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// UserStatus represents the lifecycle status of a user account
type UserStatus string

const (
	// UserStatusActive can log in and submit
	UserStatusActive UserStatus = "active"
	// UserStatusInactive is disabled, typically pending verification
	UserStatusInactive UserStatus = "inactive"
	// UserStatusSuspended is disabled by an administrator
	UserStatusSuspended UserStatus = "suspended"
)

// Valid reports whether the status is a known value
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusInactive || s == UserStatusSuspended
}

// ReviewStatus is the status of anything an administrator approves or rejects
// (applications and recharge requests)
type ReviewStatus string

const (
	// ReviewPending is the initial status
	ReviewPending ReviewStatus = "pending"
	// ReviewApproved is terminal
	ReviewApproved ReviewStatus = "approved"
	// ReviewRejected is terminal
	ReviewRejected ReviewStatus = "rejected"
)

// reviewTransitions lists the allowed next states for each state.
// Terminal states have no entry.
var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewPending: {ReviewApproved, ReviewRejected},
}

// Valid reports whether the status is a known value
func (s ReviewStatus) Valid() bool {
	return s == ReviewPending || s == ReviewApproved || s == ReviewRejected
}

// IsTerminal reports whether no further transition is possible
func (s ReviewStatus) IsTerminal() bool {
	return len(reviewTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s ReviewStatus) CanTransitionTo(next ReviewStatus) bool {
	for _, allowed := range reviewTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ApplicationType enumerates the citizen services an application can be for
type ApplicationType string

const (
	// ApplicationBirthRegistration is a new birth registration
	ApplicationBirthRegistration ApplicationType = "birth_registration"
	// ApplicationBirthCorrection corrects an existing birth record
	ApplicationBirthCorrection ApplicationType = "birth_correction"
	// ApplicationDeathRegistration is a new death registration
	ApplicationDeathRegistration ApplicationType = "death_registration"
	// ApplicationPassport is a passport service request
	ApplicationPassport ApplicationType = "passport"
	// ApplicationTrainingCertificate is an overseas-employment training certificate
	ApplicationTrainingCertificate ApplicationType = "training_certificate"
)

// ApplicationTypes returns every known application type
func ApplicationTypes() []ApplicationType {
	return []ApplicationType{
		ApplicationBirthRegistration,
		ApplicationBirthCorrection,
		ApplicationDeathRegistration,
		ApplicationPassport,
		ApplicationTrainingCertificate,
	}
}

// ParseApplicationType normalizes a free-form name ("Birth Registration",
// "birth-registration") into a known application type
func ParseApplicationType(name string) (ApplicationType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, t := range ApplicationTypes() {
		if string(t) == normalized {
			return t, true
		}
	}
	return "", false
}

// Valid reports whether the type is a known value
func (t ApplicationType) Valid() bool {
	for _, known := range ApplicationTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// RechargeType is the payment channel a recharge was paid through
type RechargeType string

const (
	RechargeBkash  RechargeType = "bkash"
	RechargeNagad  RechargeType = "nagad"
	RechargeRocket RechargeType = "rocket"
	RechargeBank   RechargeType = "bank"
)

// LedgerEventKind is the direction of a balance movement
type LedgerEventKind string

const (
	// LedgerDebit is an application fee charge
	LedgerDebit LedgerEventKind = "debit"
	// LedgerCredit is an approved recharge
	LedgerCredit LedgerEventKind = "credit"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
