package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action tags mirror the operational register kept by the association.
const (
	ActionLogin              = "LOGIN"
	ActionLogout             = "LOGOUT"
	ActionScanSuccess        = "SCAN_SUCCESS"
	ActionAuthorizeVolunteer = "AUTHORIZE_VOLUNTEER"
	ActionRevokeVolunteer    = "REVOKE_VOLUNTEER"
	ActionMemberSuspended    = "MEMBER_SUSPENDED"
	ActionUpdateMember       = "UPDATE_MEMBER"
	ActionImportMembers      = "IMPORT_MEMBERS"
	ActionEmailAutoTrigger   = "EMAIL_AUTO_TRIGGER"
	ActionEmailAutoSent      = "EMAIL_AUTO_SENT"
	ActionEmailAutoError     = "EMAIL_AUTO_ERROR"
)

// SystemOperator identifies entries written by automated policies rather
// than a logged-in operator.
const SystemOperator = "system"

// Entry is a single append-only operational record: who did what to whom.
// Entries are never mutated or deleted.
type Entry struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	OperatorID   string    `json:"operator_id"`
	OperatorName string    `json:"operator_name"`
	Details      string    `json:"details"`
	TargetID     string    `json:"target_id,omitempty"`
	TargetName   string    `json:"target_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewEntry creates an audit entry stamped with the current time.
// PRE: action and operatorID are non-empty
// POST: Returns an Entry with a fresh ID and the current timestamp
func NewEntry(action, operatorID, operatorName string) Entry {
	return Entry{
		ID:           uuid.New().String(),
		Action:       action,
		OperatorID:   operatorID,
		OperatorName: operatorName,
		CreatedAt:    time.Now(),
	}
}

// WithDetails sets the free-text details.
func (e Entry) WithDetails(details string) Entry {
	e.Details = details
	return e
}

// WithTarget sets the member the action was applied to.
func (e Entry) WithTarget(targetID, targetName string) Entry {
	e.TargetID = targetID
	e.TargetName = targetName
	return e
}
