package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies who currently works an account.
const (
	ChannelNone   = "none"
	ChannelAgent  = "agent"
	ChannelVendor = "vendor"
)

// Transition types recorded on vendor assignments and history entries.
const (
	TransitionFreshToVendor  = "fresh_to_vendor"
	TransitionAgentToVendor  = "agent_to_vendor"
	TransitionVendorToVendor = "vendor_to_vendor"
)

// Reason codes for assignment transitions and retirements.
const (
	ReasonEscalation        = "escalation"
	ReasonCapacityOverflow  = "capacity_overflow"
	ReasonStayWindowExpired = "stay_window_expired"
	ReasonAgentCapExpired   = "agent_cap_expired"
	ReasonBucketAged        = "bucket_aged"
	ReasonPaidOff           = "paid_off"
	ReasonSiblingContinuity = "sibling_continuity"
)

// AgentAssignment links an overdue account to an in-house agent.
// At most one active AgentAssignment exists per account.
type AgentAssignment struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	AccountID            uuid.UUID  `json:"account_id" db:"account_id"`
	AgentID              uuid.UUID  `json:"agent_id" db:"agent_id"`
	SubBucket            string     `json:"sub_bucket" db:"sub_bucket"`
	DPDAtAssignment      int        `json:"dpd_at_assignment" db:"dpd_at_assignment"`
	AssignTime           time.Time  `json:"assign_time" db:"assign_time"`
	UnassignTime         *time.Time `json:"unassign_time" db:"unassign_time"`
	IsActive             bool       `json:"is_active" db:"is_active"`
	IsTransferredToOther bool       `json:"is_transferred_to_other" db:"is_transferred_to_other"`
}

// VendorAssignment links an overdue account to an external vendor under a
// ratio configuration. At most one active VendorAssignment exists per
// account, and at most one per owning loan/account across all its payments.
type VendorAssignment struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	AccountID              uuid.UUID  `json:"account_id" db:"account_id"`
	VendorID               uuid.UUID  `json:"vendor_id" db:"vendor_id"`
	RatioConfigID          uuid.UUID  `json:"ratio_config_id" db:"ratio_config_id"`
	SubBucket              string     `json:"sub_bucket" db:"sub_bucket"`
	DPDAtAssignment        int        `json:"dpd_at_assignment" db:"dpd_at_assignment"`
	AssignTime             time.Time  `json:"assign_time" db:"assign_time"`
	UnassignTime           *time.Time `json:"unassign_time" db:"unassign_time"`
	IsActive               bool       `json:"is_active" db:"is_active"`
	IsTransferredToOther   bool       `json:"is_transferred_to_other" db:"is_transferred_to_other"`
	IsTransferredFromOther bool       `json:"is_transferred_from_other" db:"is_transferred_from_other"`
	CollectedAt            *time.Time `json:"collected_at" db:"collected_at"`
}

// AssignmentHistoryEntry is the immutable audit record written alongside
// every channel transition. Append-only; never updated or deleted.
type AssignmentHistoryEntry struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	AccountID  uuid.UUID  `json:"account_id" db:"account_id"`
	OldChannel string     `json:"old_channel" db:"old_channel"`
	OldRef     *uuid.UUID `json:"old_ref" db:"old_ref"`
	NewChannel string     `json:"new_channel" db:"new_channel"`
	NewRef     *uuid.UUID `json:"new_ref" db:"new_ref"`
	Reason     string     `json:"reason" db:"reason"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
