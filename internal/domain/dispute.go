/**
 * @description
 * This file defines the core domain models for the dispute pipeline: the dispute
 * aggregate, its append-only history, the immutable raw payload snapshot, the
 * per-attempt processing log, and the per-merchant round-robin assignment cursor.
 * These structs mirror the persisted tables and carry no behavior beyond what a
 * data-transfer record needs.
 *
 * @dependencies
 * - time: Standard Go library.
 */

package domain

import "time"

// Dispute lifecycle flags. A dispute is PENDING on first sighting and UPDATED on
// every subsequent webhook for the same (merchant, disputeId) pair.
const (
	DisputeLifecyclePending = "PENDING"
	DisputeLifecycleUpdated = "UPDATED"
)

// Merchant is the owning tenant for staff and disputes. MerchantID is the
// fixed-format public identifier (15 chars, "MID" prefix); ID is internal.
type Merchant struct {
	ID         int64
	MerchantID string
	Name       string
}

// Staff belongs to exactly one merchant. The numeric ID is the total order the
// round-robin rotation walks.
type Staff struct {
	ID         int64
	MerchantID int64
	FirstName  string
	LastName   string
}

// FullName returns the display name used in notification texts.
func (s Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Dispute is the canonical dispute aggregate, unique per (merchantId, disputeId).
// Rows are created on first sighting, mutated on every later sighting, and never
// deleted by this pipeline.
type Dispute struct {
	ID              int64
	MerchantID      int64
	StaffID         *int64
	CustomID        string
	DisputeID       string
	PaymentID       string
	Gateway         string
	IPAddress       string
	Amount          int64
	Currency        string
	ReasonCode      string
	Reason          string
	DisputeStatus   string
	Event           string
	State           string
	StatusUpdatedAt time.Time
	DueDate         time.Time
	Type            string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisputeHistory is an append-only audit trail: one row per processed webhook
// affecting a dispute, referencing the raw payload that produced it.
type DisputeHistory struct {
	ID             int64
	MerchantID     int64
	DisputeID      int64
	UpdatedStatus  string
	UpdatedEvent   string
	StatusUpdateAt time.Time
	PayloadID      int64
	CreatedAt      time.Time
}

// Payload is the immutable raw-webhook snapshot kept for forensic replay.
// Written once per message that passes detection, parsing, and validation,
// before the dispute transaction runs.
type Payload struct {
	ID          int64
	MerchantID  int64
	PayloadType string
	RawPayload  string
	CreatedAt   time.Time
}

// StaffAssignmentState is the persisted round-robin cursor: exactly one row per
// merchant, mutated only under an exclusive row lock.
type StaffAssignmentState struct {
	ID                int64
	MerchantID        int64
	LastStaffAssigned int64
}

// DisputeLog statuses.
const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
)

// DisputeLog records the outcome of one processing attempt, success or failure,
// with enough context to reconstruct what happened without reading history.
type DisputeLog struct {
	ID              int64
	MerchantID      int64
	Log             string
	Status          string
	Gateway         string
	IPAddress       string
	EventType       string
	DisputeID       string
	PaymentID       string
	StatusUpdatedAt *time.Time
	DueDate         *time.Time
	PayloadID       *int64
	CreatedAt       time.Time
}
