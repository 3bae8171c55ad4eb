/**
 * @description
 * PostgreSQL implementation of the `Repository` and `TxRepository` interfaces.
 * All SQL for the dispute pipeline lives here: merchant lookup, payload
 * snapshots, dispute upsert queries, history appends, the locked round-robin
 * cursor, notification batches, and the per-attempt audit log.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface
// backed by a pgx connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindMerchantByPublicID resolves the internal merchant row from the public
// "MID..." identifier carried on the webhook URL.
func (r *PostgresRepository) FindMerchantByPublicID(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	var merchant domain.Merchant
	query := `SELECT id, merchant_id, name FROM merchants WHERE merchant_id = $1`
	err := r.db.QueryRow(ctx, query, merchantID).Scan(&merchant.ID, &merchant.MerchantID, &merchant.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

// CreatePayload stores the raw-webhook snapshot and returns it with its id.
// Runs on the pool, not inside the processing transaction, so the forensic
// record survives a rollback.
func (r *PostgresRepository) CreatePayload(ctx context.Context, payload *domain.Payload) (*domain.Payload, error) {
	query := `
		INSERT INTO payloads (merchant_id, payload_type, raw_payload, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, payload.MerchantID, payload.PayloadType, payload.RawPayload).
		Scan(&payload.ID, &payload.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create payload: %w", err)
	}
	return payload, nil
}

// CreateDisputeLog writes one audit row per processing attempt. Called after
// commit on success and after rollback on failure.
func (r *PostgresRepository) CreateDisputeLog(ctx context.Context, entry *domain.DisputeLog) error {
	query := `
		INSERT INTO dispute_logs
			(merchant_id, log, status, gateway, ip_address, event_type,
			 dispute_id, payment_id, status_updated_at, due_date, payload_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		entry.MerchantID,
		entry.Log,
		entry.Status,
		entry.Gateway,
		entry.IPAddress,
		entry.EventType,
		entry.DisputeID,
		entry.PaymentID,
		entry.StatusUpdatedAt,
		entry.DueDate,
		entry.PayloadID,
	)
	if err != nil {
		return fmt.Errorf("create dispute log: %w", err)
	}
	return nil
}

// InTransaction runs fn in a single database transaction. The rollback in the
// deferred call is a no-op once the transaction has committed.
func (r *PostgresRepository) InTransaction(ctx context.Context, fn func(tx TxRepository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txRepository{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txRepository implements TxRepository on an open pgx transaction.
type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) FindDisputeByGatewayRef(ctx context.Context, disputeID string, merchantID int64) (*domain.Dispute, error) {
	var d domain.Dispute
	query := `
		SELECT id, merchant_id, staff_id, custom_id, dispute_id, payment_id, gateway,
			ip_address, amount, currency, reason_code, reason, dispute_status, event,
			state, status_updated_at, due_date, type, status, created_at, updated_at
		FROM disputes
		WHERE dispute_id = $1 AND merchant_id = $2
	`
	err := t.tx.QueryRow(ctx, query, disputeID, merchantID).Scan(
		&d.ID, &d.MerchantID, &d.StaffID, &d.CustomID, &d.DisputeID, &d.PaymentID,
		&d.Gateway, &d.IPAddress, &d.Amount, &d.Currency, &d.ReasonCode, &d.Reason,
		&d.DisputeStatus, &d.Event, &d.State, &d.StatusUpdatedAt, &d.DueDate,
		&d.Type, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (t *txRepository) CustomIDExists(ctx context.Context, customID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM disputes WHERE custom_id = $1)`, customID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (t *txRepository) CreateDispute(ctx context.Context, dispute *domain.Dispute) (*domain.Dispute, error) {
	query := `
		INSERT INTO disputes
			(merchant_id, staff_id, custom_id, dispute_id, payment_id, gateway,
			 ip_address, amount, currency, reason_code, reason, dispute_status,
			 event, state, status_updated_at, due_date, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := t.tx.QueryRow(ctx, query,
		dispute.MerchantID, dispute.StaffID, dispute.CustomID, dispute.DisputeID,
		dispute.PaymentID, dispute.Gateway, dispute.IPAddress, dispute.Amount,
		dispute.Currency, dispute.ReasonCode, dispute.Reason, dispute.DisputeStatus,
		dispute.Event, dispute.State, dispute.StatusUpdatedAt, dispute.DueDate,
		dispute.Type, dispute.Status,
	).Scan(&dispute.ID, &dispute.CreatedAt, &dispute.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create dispute: %w", err)
	}
	return dispute, nil
}

func (t *txRepository) UpdateDispute(ctx context.Context, id int64, patch DisputeUpdate) error {
	query := `
		UPDATE disputes
		SET ip_address = $1, dispute_status = $2, event = $3, state = $4,
			status_updated_at = $5, due_date = $6, type = $7, status = $8,
			updated_at = NOW()
		WHERE id = $9
	`
	result, err := t.tx.Exec(ctx, query,
		patch.IPAddress, patch.DisputeStatus, patch.Event, patch.State,
		patch.StatusUpdatedAt, patch.DueDate, patch.Type, patch.Status, id,
	)
	if err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

func (t *txRepository) AssignDisputeStaff(ctx context.Context, disputeID int64, staffID int64) error {
	// Guard in SQL as well: an existing assignment is never overwritten.
	query := `UPDATE disputes SET staff_id = $1, updated_at = NOW() WHERE id = $2 AND staff_id IS NULL`
	result, err := t.tx.Exec(ctx, query, staffID, disputeID)
	if err != nil {
		return fmt.Errorf("assign dispute staff: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

func (t *txRepository) CreateDisputeHistory(ctx context.Context, history *domain.DisputeHistory) error {
	query := `
		INSERT INTO dispute_history
			(merchant_id, dispute_id, updated_status, updated_event, status_update_at, payload_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		history.MerchantID, history.DisputeID, history.UpdatedStatus,
		history.UpdatedEvent, history.StatusUpdateAt, history.PayloadID,
	).Scan(&history.ID)
	if err != nil {
		return fmt.Errorf("create dispute history: %w", err)
	}
	return nil
}

func (t *txRepository) ListStaffByMerchant(ctx context.Context, merchantID int64) ([]domain.Staff, error) {
	query := `SELECT id, merchant_id, first_name, last_name FROM staff WHERE merchant_id = $1 ORDER BY id ASC`
	rows, err := t.tx.Query(ctx, query, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Staff
	for rows.Next() {
		var s domain.Staff
		if err := rows.Scan(&s.ID, &s.MerchantID, &s.FirstName, &s.LastName); err != nil {
			return nil, err
		}
		members = append(members, s)
	}
	return members, rows.Err()
}

// GetAssignmentStateForUpdate locks the merchant's round-robin cursor row for
// the remainder of the transaction, totally ordering concurrent assignment
// decisions for the same merchant.
func (t *txRepository) GetAssignmentStateForUpdate(ctx context.Context, merchantID int64) (*domain.StaffAssignmentState, error) {
	var state domain.StaffAssignmentState
	query := `
		SELECT id, merchant_id, last_staff_assigned
		FROM staff_assignment_states
		WHERE merchant_id = $1
		FOR UPDATE
	`
	err := t.tx.QueryRow(ctx, query, merchantID).Scan(&state.ID, &state.MerchantID, &state.LastStaffAssigned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return &state, nil
}

// CreateAssignmentState inserts the first cursor row for a merchant. The unique
// constraint on merchant_id is the concurrency guard for the first-assignment
// race: the loser of two concurrent inserts fails and rolls back.
func (t *txRepository) CreateAssignmentState(ctx context.Context, merchantID int64, staffID int64) error {
	query := `INSERT INTO staff_assignment_states (merchant_id, last_staff_assigned) VALUES ($1, $2)`
	if _, err := t.tx.Exec(ctx, query, merchantID, staffID); err != nil {
		return fmt.Errorf("create assignment state: %w", err)
	}
	return nil
}

func (t *txRepository) UpdateAssignmentState(ctx context.Context, merchantID int64, staffID int64) error {
	query := `UPDATE staff_assignment_states SET last_staff_assigned = $1, updated_at = NOW() WHERE merchant_id = $2`
	result, err := t.tx.Exec(ctx, query, staffID, merchantID)
	if err != nil {
		return fmt.Errorf("update assignment state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStateNotFound
	}
	return nil
}

func (t *txRepository) CreateNotifications(ctx context.Context, items []domain.Notification) error {
	if len(items) == 0 {
		return nil
	}
	query := `
		INSERT INTO notifications
			(recipient_id, recipient_type, type, title, message, dispute_id, is_read, channel, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	for _, item := range items {
		if _, err := t.tx.Exec(ctx, query,
			item.RecipientID, item.RecipientType, item.Type, item.Title,
			item.Message, item.DisputeID, item.IsRead, item.Channel,
		); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
	}
	return nil
}
