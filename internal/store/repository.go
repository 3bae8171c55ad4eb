/**
 * @description
 * This file defines the `Repository` contract for the dispute pipeline's data
 * access. The webhook processor depends only on these interfaces, which keeps the
 * reconciliation and assignment logic testable against in-memory stubs and
 * decouples it from PostgreSQL specifics.
 *
 * Writes that must survive a processing rollback (payload snapshots, audit log
 * rows) live on Repository and run on the pool; everything that belongs to one
 * webhook's ACID unit runs through InTransaction on a TxRepository.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - internal/domain: The pipeline's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/domain"
)

var (
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrDisputeNotFound  = errors.New("dispute not found")
	ErrStateNotFound    = errors.New("staff assignment state not found")
)

// DisputeUpdate is the explicit patch applied to an existing dispute on a
// subsequent webhook. Every status-bearing field is overwritten; identity fields
// (custom id, gateway refs, amount) are immutable after creation.
type DisputeUpdate struct {
	IPAddress       string
	DisputeStatus   string
	Event           string
	State           string
	StatusUpdatedAt time.Time
	DueDate         time.Time
	Type            string
	Status          string
}

// Repository is the non-transactional surface: lookups plus the writes that are
// deliberately kept outside the processing transaction.
type Repository interface {
	FindMerchantByPublicID(ctx context.Context, merchantID string) (*domain.Merchant, error)

	// CreatePayload persists the immutable raw-webhook snapshot. It runs outside
	// the processing transaction so the snapshot survives a rollback.
	CreatePayload(ctx context.Context, payload *domain.Payload) (*domain.Payload, error)

	// CreateDisputeLog records one processing attempt. Failure rows are written
	// after rollback, which is why this cannot be part of TxRepository.
	CreateDisputeLog(ctx context.Context, entry *domain.DisputeLog) error

	// InTransaction runs fn inside a single database transaction, committing on
	// nil and rolling back on error.
	InTransaction(ctx context.Context, fn func(tx TxRepository) error) error
}

// TxRepository is the transactional surface used while reconciling one webhook.
type TxRepository interface {
	FindDisputeByGatewayRef(ctx context.Context, disputeID string, merchantID int64) (*domain.Dispute, error)
	CustomIDExists(ctx context.Context, customID string) (bool, error)
	CreateDispute(ctx context.Context, dispute *domain.Dispute) (*domain.Dispute, error)
	UpdateDispute(ctx context.Context, id int64, patch DisputeUpdate) error
	AssignDisputeStaff(ctx context.Context, disputeID int64, staffID int64) error
	CreateDisputeHistory(ctx context.Context, history *domain.DisputeHistory) error

	ListStaffByMerchant(ctx context.Context, merchantID int64) ([]domain.Staff, error)

	// GetAssignmentStateForUpdate acquires an exclusive row lock on the
	// merchant's assignment cursor for the remainder of the transaction.
	GetAssignmentStateForUpdate(ctx context.Context, merchantID int64) (*domain.StaffAssignmentState, error)
	CreateAssignmentState(ctx context.Context, merchantID int64, staffID int64) error
	UpdateAssignmentState(ctx context.Context, merchantID int64, staffID int64) error

	CreateNotifications(ctx context.Context, items []domain.Notification) error
}
