/**
 * @description
 * This file contains the webhook processor, the consumer-side core of the
 * dispute pipeline. For each queued webhook it resolves the merchant, detects
 * and parses the gateway payload, validates the canonical envelope, stores the
 * immutable payload snapshot, and then, inside a single database transaction,
 * reconciles the dispute aggregate, appends history, runs the locked
 * round-robin assignment, and batches notifications. Every attempt that
 * reaches the persistence stage leaves one audit row in dispute_logs.
 *
 * Key invariants:
 * - Detection, parse, and validation failures reject the message with no rows
 *   created at all.
 * - The payload snapshot and audit rows are written outside the transaction so
 *   they survive a rollback.
 * - At most one dispute row exists per (merchantId, disputeId); replays update
 *   the row and append history instead of inserting a duplicate.
 * - An existing staff assignment is never overwritten by a later webhook.
 *
 * @dependencies
 * - context, encoding/json, errors, log, strings, time: Standard Go libraries.
 * - internal/domain, internal/gateway, internal/store: Pipeline packages.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/domain"
	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/gateway"
	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/store"
)

const customIDAttempts = 5

// Processor reconciles queued webhook envelopes against the dispute store.
type Processor struct {
	repo store.Repository
	now  func() time.Time
}

// NewProcessor creates a Processor backed by the given repository.
func NewProcessor(repo store.Repository) *Processor {
	return &Processor{repo: repo, now: time.Now}
}

type processOutcome struct {
	dispute *domain.Dispute
	isNew   bool
}

// Process handles one queue message end to end. Any returned error is a
// *ProcessingError and means the message must be rejected without requeue.
func (p *Processor) Process(ctx context.Context, env domain.WebhookEnvelope) error {
	if err := domain.ValidateMerchantID(env.MerchantID); err != nil {
		// No merchant resolved yet: the failure is only observable via the
		// rejected message and process logs.
		return validationErrorf("%s", err.Error())
	}

	merchant, err := p.repo.FindMerchantByPublicID(ctx, env.MerchantID)
	if err != nil {
		if errors.Is(err, store.ErrMerchantNotFound) {
			return notFoundErrorf("merchant not found for id %s", env.MerchantID)
		}
		return persistenceErrorf("merchant lookup failed: %v", err)
	}

	audit := &domain.DisputeLog{
		MerchantID: merchant.ID,
		IPAddress:  env.GatewayIP,
	}

	outcome, perr := p.processForMerchant(ctx, merchant, env, audit)
	if perr != nil {
		// Detection, parse, and validation failures leave no rows behind.
		// Persistence failures after the merchant is resolved always get a
		// durable failure record, even when the snapshot write itself failed
		// (payload_id stays NULL in that case).
		if audit.PayloadID != nil || perr.Class == ErrClassPersistence {
			audit.Status = domain.LogStatusFailed
			if audit.Log == "" {
				audit.Log = "Dispute : Processing Failed"
			}
			audit.Log = audit.Log + " | Error : " + perr.Message
			if logErr := p.repo.CreateDisputeLog(ctx, audit); logErr != nil {
				log.Printf("level=error component=processor msg=\"failure audit write failed\" merchant_id=%d err=%v", merchant.ID, logErr)
			}
		} else {
			log.Printf("level=warn component=processor msg=\"webhook rejected before persistence\" merchant_id=%d class=%s err=%q", merchant.ID, perr.Class, perr.Message)
		}
		return perr
	}

	dispute := outcome.dispute
	audit.Status = domain.LogStatusSuccess
	if outcome.isNew {
		audit.Log = "Dispute: New Dispute Added with id -> " + dispute.CustomID
	} else {
		audit.Log = "Dispute: " + dispute.CustomID + " status Updated"
	}
	audit.DisputeID = dispute.DisputeID
	audit.PaymentID = dispute.PaymentID
	audit.EventType = dispute.Event
	audit.StatusUpdatedAt = &dispute.StatusUpdatedAt
	audit.DueDate = &dispute.DueDate
	if logErr := p.repo.CreateDisputeLog(ctx, audit); logErr != nil {
		log.Printf("level=warn component=processor msg=\"success audit write failed\" merchant_id=%d dispute=%s err=%v", merchant.ID, dispute.CustomID, logErr)
	}

	log.Printf("level=info component=processor msg=\"dispute processed\" gateway=%s dispute_id=%s new=%t", dispute.Gateway, dispute.DisputeID, outcome.isNew)
	return nil
}

func (p *Processor) processForMerchant(ctx context.Context, merchant *domain.Merchant, env domain.WebhookEnvelope, audit *domain.DisputeLog) (*processOutcome, *ProcessingError) {
	// Detection, parsing, and validation run before any write: an unparseable
	// or schema-invalid message is rejected with no rows created.
	gw := gateway.Detect(lowercaseHeaders(env.Headers), env.RawPayload)
	if gw == gateway.Unknown {
		return nil, validationErrorf("unknown payment gateway")
	}
	audit.Gateway = gw

	parsed, err := gateway.Parse(gw, env.RawPayload)
	if err != nil || parsed == nil || parsed.DisputeID == "" {
		return nil, validationErrorf("unsupported gateway payload: %s", gw)
	}

	envelope := domain.CanonicalDispute{
		DisputeID:       parsed.DisputeID,
		PaymentID:       parsed.PaymentID,
		Gateway:         gw,
		IPAddress:       env.GatewayIP,
		Amount:          parsed.Amount,
		Currency:        parsed.Currency,
		ReasonCode:      parsed.ReasonCode,
		Reason:          parsed.ReasonDescription,
		DisputeStatus:   parsed.Status,
		Event:           parsed.Event,
		StatusUpdatedAt: parsed.StatusUpdatedAt,
		DueDate:         parsed.DueDate,
		Type:            parsed.Type,
		Status:          parsed.State,
	}
	if err := envelope.Validate(); err != nil {
		return nil, validationErrorf("%v", err)
	}
	audit.DisputeID = envelope.DisputeID
	audit.PaymentID = envelope.PaymentID
	audit.EventType = envelope.Event

	// Snapshot the raw message outside the transaction so the forensic record
	// survives a rollback of the dispute writes.
	snapshot, err := json.Marshal(struct {
		MerchantID string            `json:"merchantId"`
		IPAddress  string            `json:"ipAddress"`
		Headers    map[string]string `json:"headers"`
		Body       json.RawMessage   `json:"body"`
	}{
		MerchantID: env.MerchantID,
		IPAddress:  env.GatewayIP,
		Headers:    env.Headers,
		Body:       env.RawPayload,
	})
	if err != nil {
		return nil, validationErrorf("payload snapshot marshal failed: %v", err)
	}

	payload, err := p.repo.CreatePayload(ctx, &domain.Payload{
		MerchantID:  merchant.ID,
		PayloadType: "webhook",
		RawPayload:  string(snapshot),
	})
	if err != nil {
		return nil, persistenceErrorf("payload snapshot write failed: %v", err)
	}
	audit.PayloadID = &payload.ID

	var outcome processOutcome
	txErr := p.repo.InTransaction(ctx, func(tx store.TxRepository) error {
		return p.reconcile(ctx, tx, merchant, envelope, payload.ID, &outcome)
	})
	if txErr != nil {
		var perr *ProcessingError
		if errors.As(txErr, &perr) {
			return nil, perr
		}
		audit.Log = "Dispute : Failed to Store Dispute"
		return nil, persistenceErrorf("%v", txErr)
	}

	return &outcome, nil
}

// reconcile is the transactional unit: find-or-create the dispute, append
// history, assign staff and compose the notification batch.
func (p *Processor) reconcile(ctx context.Context, tx store.TxRepository, merchant *domain.Merchant, envelope domain.CanonicalDispute, payloadID int64, out *processOutcome) error {
	existing, err := tx.FindDisputeByGatewayRef(ctx, envelope.DisputeID, merchant.ID)
	if err != nil && !errors.Is(err, store.ErrDisputeNotFound) {
		return err
	}

	staff, err := tx.ListStaffByMerchant(ctx, merchant.ID)
	if err != nil {
		return err
	}

	var notify []domain.Notification
	if existing != nil {
		notify, err = p.reconcileExisting(ctx, tx, merchant, existing, envelope, payloadID, staff)
		if err != nil {
			return err
		}
		out.dispute = existing
		out.isNew = false
	} else {
		created, batch, err := p.reconcileNew(ctx, tx, merchant, envelope, payloadID, staff)
		if err != nil {
			return err
		}
		notify = batch
		out.dispute = created
		out.isNew = true
	}

	return tx.CreateNotifications(ctx, notify)
}

func (p *Processor) reconcileExisting(ctx context.Context, tx store.TxRepository, merchant *domain.Merchant, dispute *domain.Dispute, envelope domain.CanonicalDispute, payloadID int64, staff []domain.Staff) ([]domain.Notification, error) {
	patch := store.DisputeUpdate{
		IPAddress:       envelope.IPAddress,
		DisputeStatus:   envelope.DisputeStatus,
		Event:           envelope.Event,
		State:           envelope.Status,
		StatusUpdatedAt: envelope.StatusUpdatedAt,
		DueDate:         envelope.DueDate,
		Type:            envelope.Type,
		Status:          domain.DisputeLifecycleUpdated,
	}
	if err := tx.UpdateDispute(ctx, dispute.ID, patch); err != nil {
		return nil, err
	}
	dispute.IPAddress = patch.IPAddress
	dispute.DisputeStatus = patch.DisputeStatus
	dispute.Event = patch.Event
	dispute.State = patch.State
	dispute.StatusUpdatedAt = patch.StatusUpdatedAt
	dispute.DueDate = patch.DueDate
	dispute.Type = patch.Type
	dispute.Status = patch.Status

	if err := tx.CreateDisputeHistory(ctx, &domain.DisputeHistory{
		MerchantID:     merchant.ID,
		DisputeID:      dispute.ID,
		UpdatedStatus:  envelope.DisputeStatus,
		UpdatedEvent:   envelope.Event,
		StatusUpdateAt: envelope.StatusUpdatedAt,
		PayloadID:      payloadID,
	}); err != nil {
		return nil, err
	}

	var notify []domain.Notification
	switch {
	case len(staff) > 0 && dispute.StaffID == nil:
		// The dispute predates any staff, or earlier assignment never
		// happened: assign now and tell both parties.
		staffID, staffName, err := p.assignStaff(ctx, tx, merchant.ID, dispute.ID, staff)
		if err != nil {
			return nil, err
		}
		dispute.StaffID = &staffID
		notify = append(notify,
			buildNotification(staffID, domain.RecipientStaff, dispute.ID,
				ComposeNotification(dispute.CustomID, NotifyAssigned, staffName, "")),
			buildNotification(merchant.ID, domain.RecipientMerchant, dispute.ID,
				ComposeNotification(dispute.CustomID, NotifyEventChangedAssignedStaff, staffName, envelope.DisputeStatus)),
		)
	case dispute.StaffID != nil:
		tmpl := ComposeNotification(dispute.CustomID, NotifyEventChanged, "", envelope.DisputeStatus)
		notify = append(notify,
			buildNotification(*dispute.StaffID, domain.RecipientStaff, dispute.ID, tmpl),
			buildNotification(merchant.ID, domain.RecipientMerchant, dispute.ID, tmpl),
		)
	default:
		notify = append(notify,
			buildNotification(merchant.ID, domain.RecipientMerchant, dispute.ID,
				ComposeNotification(dispute.CustomID, NotifyDisputeReceivedUnassigned, "", "")),
		)
	}
	return notify, nil
}

func (p *Processor) reconcileNew(ctx context.Context, tx store.TxRepository, merchant *domain.Merchant, envelope domain.CanonicalDispute, payloadID int64, staff []domain.Staff) (*domain.Dispute, []domain.Notification, error) {
	customID, err := p.uniqueCustomID(ctx, tx, merchant.MerchantID)
	if err != nil {
		return nil, nil, err
	}

	dispute, err := tx.CreateDispute(ctx, &domain.Dispute{
		MerchantID:      merchant.ID,
		CustomID:        customID,
		DisputeID:       envelope.DisputeID,
		PaymentID:       envelope.PaymentID,
		Gateway:         envelope.Gateway,
		IPAddress:       envelope.IPAddress,
		Amount:          envelope.Amount,
		Currency:        envelope.Currency,
		ReasonCode:      envelope.ReasonCode,
		Reason:          envelope.Reason,
		DisputeStatus:   envelope.DisputeStatus,
		Event:           envelope.Event,
		State:           envelope.Status,
		StatusUpdatedAt: envelope.StatusUpdatedAt,
		DueDate:         envelope.DueDate,
		Type:            envelope.Type,
		Status:          domain.DisputeLifecyclePending,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := tx.CreateDisputeHistory(ctx, &domain.DisputeHistory{
		MerchantID:     merchant.ID,
		DisputeID:      dispute.ID,
		UpdatedStatus:  envelope.DisputeStatus,
		UpdatedEvent:   envelope.Event,
		StatusUpdateAt: envelope.StatusUpdatedAt,
		PayloadID:      payloadID,
	}); err != nil {
		return nil, nil, err
	}

	var notify []domain.Notification
	if len(staff) > 0 {
		staffID, staffName, err := p.assignStaff(ctx, tx, merchant.ID, dispute.ID, staff)
		if err != nil {
			return nil, nil, err
		}
		dispute.StaffID = &staffID
		notify = append(notify,
			buildNotification(staffID, domain.RecipientStaff, dispute.ID,
				ComposeNotification(dispute.CustomID, NotifyAssigned, staffName, "")),
			buildNotification(merchant.ID, domain.RecipientMerchant, dispute.ID,
				ComposeNotification(dispute.CustomID, NotifyDisputeReceivedMerchant, staffName, "")),
		)
	} else {
		notify = append(notify,
			buildNotification(merchant.ID, domain.RecipientMerchant, dispute.ID,
				ComposeNotification(dispute.CustomID, NotifyDisputeReceivedUnassigned, "", "")),
		)
	}
	return dispute, notify, nil
}

// assignStaff runs the round-robin engine and writes the chosen id onto the
// dispute. Returns the staff id and display name for notification texts.
func (p *Processor) assignStaff(ctx context.Context, tx store.TxRepository, merchantID int64, disputeID int64, staff []domain.Staff) (int64, string, error) {
	ids := make([]int64, len(staff))
	for i, member := range staff {
		ids[i] = member.ID
	}

	next, err := nextRoundRobinStaff(ctx, tx, merchantID, ids)
	if err != nil {
		return 0, "", err
	}
	if err := tx.AssignDisputeStaff(ctx, disputeID, next); err != nil {
		return 0, "", err
	}

	name := ""
	for _, member := range staff {
		if member.ID == next {
			name = member.FullName()
			break
		}
	}
	return next, name, nil
}

func (p *Processor) uniqueCustomID(ctx context.Context, tx store.TxRepository, publicMerchantID string) (string, error) {
	base := p.now()
	for attempt := 0; attempt < customIDAttempts; attempt++ {
		// Each retry advances the timestamp by a millisecond; ids minted
		// within the same clock tick regenerate to a different value instead
		// of repeating until the loop exhausts.
		id := GenerateCustomDisputeID(publicMerchantID, base.Add(time.Duration(attempt)*time.Millisecond))
		exists, err := tx.CustomIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", persistenceErrorf("could not generate a unique dispute id after %d attempts", customIDAttempts)
}

func buildNotification(recipientID int64, recipientType string, disputeID int64, tmpl NotificationTemplate) domain.Notification {
	linked := disputeID
	return domain.Notification{
		RecipientID:   recipientID,
		RecipientType: recipientType,
		Type:          domain.NotificationTypeDispute,
		Title:         tmpl.Title,
		Message:       tmpl.Message,
		DisputeID:     &linked,
		IsRead:        false,
		Channel:       domain.NotificationChannelWeb,
	}
}

func lowercaseHeaders(headers map[string]string) map[string]string {
	lowered := make(map[string]string, len(headers))
	for name, value := range headers {
		lowered[strings.ToLower(name)] = value
	}
	return lowered
}
