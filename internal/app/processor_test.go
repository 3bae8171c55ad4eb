package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/domain"
	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/store"
)

// fakeStore is an in-memory Repository/TxRepository pair with snapshot-based
// rollback, mirroring the transactional visibility rules of the real store.
type fakeStore struct {
	merchant *domain.Merchant
	staff    []domain.Staff

	payloads      []*domain.Payload
	logs          []*domain.DisputeLog
	disputes      []*domain.Dispute
	history       []domain.DisputeHistory
	notifications []domain.Notification
	states        map[int64]int64 // merchant id -> last staff assigned

	seq int64

	failCreateHistory bool
	failCreatePayload bool
}

func newFakeStore(merchant *domain.Merchant, staff []domain.Staff) *fakeStore {
	return &fakeStore{merchant: merchant, staff: staff, states: map[int64]int64{}}
}

func (s *fakeStore) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *fakeStore) FindMerchantByPublicID(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	if s.merchant != nil && s.merchant.MerchantID == merchantID {
		m := *s.merchant
		return &m, nil
	}
	return nil, store.ErrMerchantNotFound
}

func (s *fakeStore) CreatePayload(ctx context.Context, payload *domain.Payload) (*domain.Payload, error) {
	if s.failCreatePayload {
		return nil, errors.New("payload insert failed")
	}
	payload.ID = s.nextID()
	stored := *payload
	s.payloads = append(s.payloads, &stored)
	return payload, nil
}

func (s *fakeStore) CreateDisputeLog(ctx context.Context, entry *domain.DisputeLog) error {
	stored := *entry
	stored.ID = s.nextID()
	s.logs = append(s.logs, &stored)
	return nil
}

type fakeSnapshot struct {
	disputes      []*domain.Dispute
	history       []domain.DisputeHistory
	notifications []domain.Notification
	states        map[int64]int64
	seq           int64
}

func (s *fakeStore) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		history:       append([]domain.DisputeHistory(nil), s.history...),
		notifications: append([]domain.Notification(nil), s.notifications...),
		states:        map[int64]int64{},
		seq:           s.seq,
	}
	for _, d := range s.disputes {
		c := *d
		snap.disputes = append(snap.disputes, &c)
	}
	for k, v := range s.states {
		snap.states[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.disputes = snap.disputes
	s.history = snap.history
	s.notifications = snap.notifications
	s.states = snap.states
	s.seq = snap.seq
}

func (s *fakeStore) InTransaction(ctx context.Context, fn func(tx store.TxRepository) error) error {
	snap := s.snapshot()
	if err := fn(&fakeTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) FindDisputeByGatewayRef(ctx context.Context, disputeID string, merchantID int64) (*domain.Dispute, error) {
	for _, d := range t.s.disputes {
		if d.DisputeID == disputeID && d.MerchantID == merchantID {
			c := *d
			return &c, nil
		}
	}
	return nil, store.ErrDisputeNotFound
}

func (t *fakeTx) CustomIDExists(ctx context.Context, customID string) (bool, error) {
	for _, d := range t.s.disputes {
		if d.CustomID == customID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) CreateDispute(ctx context.Context, dispute *domain.Dispute) (*domain.Dispute, error) {
	dispute.ID = t.s.nextID()
	stored := *dispute
	t.s.disputes = append(t.s.disputes, &stored)
	return dispute, nil
}

func (t *fakeTx) UpdateDispute(ctx context.Context, id int64, patch store.DisputeUpdate) error {
	for _, d := range t.s.disputes {
		if d.ID == id {
			d.IPAddress = patch.IPAddress
			d.DisputeStatus = patch.DisputeStatus
			d.Event = patch.Event
			d.State = patch.State
			d.StatusUpdatedAt = patch.StatusUpdatedAt
			d.DueDate = patch.DueDate
			d.Type = patch.Type
			d.Status = patch.Status
			return nil
		}
	}
	return store.ErrDisputeNotFound
}

func (t *fakeTx) AssignDisputeStaff(ctx context.Context, disputeID int64, staffID int64) error {
	for _, d := range t.s.disputes {
		if d.ID == disputeID && d.StaffID == nil {
			assigned := staffID
			d.StaffID = &assigned
			return nil
		}
	}
	return store.ErrDisputeNotFound
}

func (t *fakeTx) CreateDisputeHistory(ctx context.Context, history *domain.DisputeHistory) error {
	if t.s.failCreateHistory {
		return errors.New("history insert failed")
	}
	history.ID = t.s.nextID()
	t.s.history = append(t.s.history, *history)
	return nil
}

func (t *fakeTx) ListStaffByMerchant(ctx context.Context, merchantID int64) ([]domain.Staff, error) {
	var members []domain.Staff
	for _, m := range t.s.staff {
		if m.MerchantID == merchantID {
			members = append(members, m)
		}
	}
	return members, nil
}

func (t *fakeTx) GetAssignmentStateForUpdate(ctx context.Context, merchantID int64) (*domain.StaffAssignmentState, error) {
	last, ok := t.s.states[merchantID]
	if !ok {
		return nil, store.ErrStateNotFound
	}
	return &domain.StaffAssignmentState{MerchantID: merchantID, LastStaffAssigned: last}, nil
}

func (t *fakeTx) CreateAssignmentState(ctx context.Context, merchantID int64, staffID int64) error {
	t.s.states[merchantID] = staffID
	return nil
}

func (t *fakeTx) UpdateAssignmentState(ctx context.Context, merchantID int64, staffID int64) error {
	if _, ok := t.s.states[merchantID]; !ok {
		return store.ErrStateNotFound
	}
	t.s.states[merchantID] = staffID
	return nil
}

func (t *fakeTx) CreateNotifications(ctx context.Context, items []domain.Notification) error {
	t.s.notifications = append(t.s.notifications, items...)
	return nil
}

func testMerchant() *domain.Merchant {
	return &domain.Merchant{ID: 1, MerchantID: "MID000011112222", Name: "Acme Traders"}
}

func testStaff(ids ...int64) []domain.Staff {
	members := make([]domain.Staff, 0, len(ids))
	for _, id := range ids {
		members = append(members, domain.Staff{
			ID:         id,
			MerchantID: 1,
			FirstName:  fmt.Sprintf("Staff%d", id),
			LastName:   "Member",
		})
	}
	return members
}

func razorpayEnvelope(disputeID, status string) domain.WebhookEnvelope {
	body := fmt.Sprintf(`{
		"event": "payment.dispute.created",
		"payload": {
			"dispute": {
				"entity": {
					"id": %q,
					"payment_id": "pay_abc123",
					"amount": 5000,
					"currency": "INR",
					"reason_code": "duplicate_transaction",
					"status": %q,
					"phase": "chargeback",
					"created_at": 1686844778,
					"respond_by": 1687103978
				}
			}
		}
	}`, disputeID, status)
	return domain.WebhookEnvelope{
		MerchantID: "MID000011112222",
		RawPayload: json.RawMessage(body),
		Headers:    map[string]string{"x-razorpay-signature": "sig"},
		GatewayIP:  "203.0.113.7",
	}
}

func TestProcessNewDisputeCreatesPendingAndAssigns(t *testing.T) {
	repo := newFakeStore(testMerchant(), testStaff(101, 102))
	processor := NewProcessor(repo)

	if err := processor.Process(context.Background(), razorpayEnvelope("disp_abc", "open")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if len(repo.disputes) != 1 {
		t.Fatalf("expected 1 dispute, got %d", len(repo.disputes))
	}
	d := repo.disputes[0]
	if d.Status != domain.DisputeLifecyclePending {
		t.Fatalf("expected lifecycle PENDING, got %q", d.Status)
	}
	if d.State != "initiated" {
		t.Fatalf("expected internal state initiated, got %q", d.State)
	}
	if !strings.HasPrefix(d.CustomID, "DIS00") {
		t.Fatalf("expected custom id prefix DIS00, got %q", d.CustomID)
	}
	if d.Amount != 5000 || d.PaymentID != "pay_abc123" {
		t.Fatalf("unexpected dispute fields: %+v", d)
	}
	if d.Reason != "Duplicate Transaction" {
		t.Fatalf("expected humanized reason, got %q", d.Reason)
	}
	if d.StaffID == nil || *d.StaffID != 101 {
		t.Fatalf("expected first assignment to staff 101, got %v", d.StaffID)
	}
	if repo.states[1] != 101 {
		t.Fatalf("expected assignment cursor at 101, got %d", repo.states[1])
	}

	if len(repo.history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(repo.history))
	}
	if len(repo.payloads) != 1 {
		t.Fatalf("expected 1 payload snapshot, got %d", len(repo.payloads))
	}
	if len(repo.notifications) != 2 {
		t.Fatalf("expected 2 notifications (staff + merchant), got %d", len(repo.notifications))
	}

	if len(repo.logs) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(repo.logs))
	}
	entry := repo.logs[0]
	if entry.Status != domain.LogStatusSuccess {
		t.Fatalf("expected success audit row, got %q", entry.Status)
	}
	if !strings.Contains(entry.Log, "New Dispute Added with id -> "+d.CustomID) {
		t.Fatalf("unexpected audit log %q", entry.Log)
	}
}

func TestProcessReplayUpdatesExistingDispute(t *testing.T) {
	repo := newFakeStore(testMerchant(), testStaff(101, 102))
	processor := NewProcessor(repo)

	if err := processor.Process(context.Background(), razorpayEnvelope("disp_abc", "open")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := processor.Process(context.Background(), razorpayEnvelope("disp_abc", "under_review")); err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	if len(repo.disputes) != 1 {
		t.Fatalf("replay must not create a second dispute, got %d", len(repo.disputes))
	}
	d := repo.disputes[0]
	if d.Status != domain.DisputeLifecycleUpdated {
		t.Fatalf("expected lifecycle UPDATED, got %q", d.Status)
	}
	if d.DisputeStatus != "under_review" || d.State != "under_review" {
		t.Fatalf("expected status refresh, got %q / %q", d.DisputeStatus, d.State)
	}
	if d.StaffID == nil || *d.StaffID != 101 {
		t.Fatalf("existing assignment must be preserved, got %v", d.StaffID)
	}

	if len(repo.history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(repo.history))
	}
	if len(repo.payloads) != 2 {
		t.Fatalf("expected a snapshot per delivery, got %d", len(repo.payloads))
	}

	last := repo.logs[len(repo.logs)-1]
	if !strings.Contains(last.Log, d.CustomID+" status Updated") {
		t.Fatalf("unexpected audit log %q", last.Log)
	}
}

func TestProcessRoundRobinRotation(t *testing.T) {
	// Staff listed out of order; rotation must follow ascending ids and wrap.
	repo := newFakeStore(testMerchant(), testStaff(9, 3, 7))
	processor := NewProcessor(repo)

	want := []int64{3, 7, 9, 3}
	for i, wantStaff := range want {
		disputeID := fmt.Sprintf("disp_%d", i)
		if err := processor.Process(context.Background(), razorpayEnvelope(disputeID, "open")); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
		d := repo.disputes[len(repo.disputes)-1]
		if d.StaffID == nil || *d.StaffID != wantStaff {
			t.Fatalf("delivery %d: expected staff %d, got %v", i, wantStaff, d.StaffID)
		}
	}
}

func TestProcessSingleStaffAlwaysAssigned(t *testing.T) {
	repo := newFakeStore(testMerchant(), testStaff(42))
	processor := NewProcessor(repo)

	for i := 0; i < 3; i++ {
		disputeID := fmt.Sprintf("disp_%d", i)
		if err := processor.Process(context.Background(), razorpayEnvelope(disputeID, "open")); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
		d := repo.disputes[len(repo.disputes)-1]
		if d.StaffID == nil || *d.StaffID != 42 {
			t.Fatalf("delivery %d: expected staff 42, got %v", i, d.StaffID)
		}
	}
}

func TestProcessZeroStaffLeavesDisputeUnassigned(t *testing.T) {
	repo := newFakeStore(testMerchant(), nil)
	processor := NewProcessor(repo)

	if err := processor.Process(context.Background(), razorpayEnvelope("disp_abc", "open")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	d := repo.disputes[0]
	if d.StaffID != nil {
		t.Fatalf("expected unassigned dispute, got staff %d", *d.StaffID)
	}
	if len(repo.notifications) != 1 {
		t.Fatalf("expected a single merchant notification, got %d", len(repo.notifications))
	}
	n := repo.notifications[0]
	if n.RecipientType != domain.RecipientMerchant {
		t.Fatalf("expected merchant recipient, got %q", n.RecipientType)
	}
}

func TestProcessInvalidMerchantIDShape(t *testing.T) {
	repo := newFakeStore(testMerchant(), nil)
	processor := NewProcessor(repo)

	env := razorpayEnvelope("disp_abc", "open")
	env.MerchantID = "BAD"

	err := processor.Process(context.Background(), env)
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Class != ErrClassValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.payloads) != 0 || len(repo.logs) != 0 {
		t.Fatal("expected no rows for an invalid merchant id")
	}
}

func TestProcessUnknownMerchant(t *testing.T) {
	repo := newFakeStore(testMerchant(), nil)
	processor := NewProcessor(repo)

	env := razorpayEnvelope("disp_abc", "open")
	env.MerchantID = "MID999999999999"

	err := processor.Process(context.Background(), env)
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Class != ErrClassNotFound {
		t.Fatalf("expected not_found error, got %v", err)
	}
	if len(repo.payloads) != 0 || len(repo.logs) != 0 {
		t.Fatal("expected no rows for an unknown merchant")
	}
}

func TestProcessUnknownGatewayWritesNoRows(t *testing.T) {
	repo := newFakeStore(testMerchant(), nil)
	processor := NewProcessor(repo)

	env := domain.WebhookEnvelope{
		MerchantID: "MID000011112222",
		RawPayload: json.RawMessage(`{"event":"payment.captured"}`),
		Headers:    map[string]string{},
		GatewayIP:  "203.0.113.7",
	}

	err := processor.Process(context.Background(), env)
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Class != ErrClassValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.payloads) != 0 || len(repo.logs) != 0 || len(repo.disputes) != 0 {
		t.Fatal("detection failure must leave no rows behind")
	}
}

func TestProcessValidationFailureWritesNoRows(t *testing.T) {
	repo := newFakeStore(testMerchant(), testStaff(101))
	processor := NewProcessor(repo)

	// Structurally valid Razorpay payload missing currency and payment id.
	body := `{
		"event": "payment.dispute.created",
		"payload": {"dispute": {"entity": {
			"id": "disp_abc",
			"amount": 5000,
			"status": "open",
			"created_at": 1686844778,
			"respond_by": 1687103978
		}}}
	}`
	env := domain.WebhookEnvelope{
		MerchantID: "MID000011112222",
		RawPayload: json.RawMessage(body),
		Headers:    map[string]string{"x-razorpay-signature": "sig"},
		GatewayIP:  "203.0.113.7",
	}

	err := processor.Process(context.Background(), env)
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Class != ErrClassValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.payloads) != 0 || len(repo.logs) != 0 {
		t.Fatal("validation gate must reject before any write")
	}
	if len(repo.disputes) != 0 || len(repo.history) != 0 || len(repo.notifications) != 0 {
		t.Fatal("validation gate must block all dispute writes")
	}
}

func TestProcessTransactionRollbackKeepsSnapshotAndAudit(t *testing.T) {
	repo := newFakeStore(testMerchant(), testStaff(101))
	repo.failCreateHistory = true
	processor := NewProcessor(repo)

	err := processor.Process(context.Background(), razorpayEnvelope("disp_abc", "open"))
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Class != ErrClassPersistence {
		t.Fatalf("expected persistence error, got %v", err)
	}

	if len(repo.disputes) != 0 || len(repo.notifications) != 0 {
		t.Fatal("expected transactional writes to roll back")
	}
	if len(repo.payloads) != 1 {
		t.Fatalf("payload snapshot must survive rollback, got %d", len(repo.payloads))
	}
	if len(repo.logs) != 1 || repo.logs[0].Status != domain.LogStatusFailed {
		t.Fatalf("expected one failed audit row, got %+v", repo.logs)
	}
}

func TestProcessSameMillisecondDisputesGetDistinctCustomIDs(t *testing.T) {
	repo := newFakeStore(testMerchant(), nil)
	processor := NewProcessor(repo)

	// Freeze the clock so every delivery lands on the same millisecond.
	frozen := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	processor.now = func() time.Time { return frozen }

	for i := 0; i < 3; i++ {
		disputeID := fmt.Sprintf("disp_%d", i)
		if err := processor.Process(context.Background(), razorpayEnvelope(disputeID, "open")); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if len(repo.disputes) != 3 {
		t.Fatalf("expected 3 disputes, got %d", len(repo.disputes))
	}
	seen := map[string]bool{}
	for _, d := range repo.disputes {
		if seen[d.CustomID] {
			t.Fatalf("duplicate custom id %q", d.CustomID)
		}
		seen[d.CustomID] = true
	}
}

func TestProcessSnapshotWriteFailureStillAudited(t *testing.T) {
	repo := newFakeStore(testMerchant(), testStaff(101))
	repo.failCreatePayload = true
	processor := NewProcessor(repo)

	err := processor.Process(context.Background(), razorpayEnvelope("disp_abc", "open"))
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Class != ErrClassPersistence {
		t.Fatalf("expected persistence error, got %v", err)
	}

	if len(repo.payloads) != 0 || len(repo.disputes) != 0 {
		t.Fatal("expected no payload or dispute rows")
	}
	if len(repo.logs) != 1 {
		t.Fatalf("expected one failed audit row, got %d", len(repo.logs))
	}
	entry := repo.logs[0]
	if entry.Status != domain.LogStatusFailed {
		t.Fatalf("expected failed audit row, got %q", entry.Status)
	}
	if entry.PayloadID != nil {
		t.Fatalf("expected nil payload id on the audit row, got %v", *entry.PayloadID)
	}
}

func TestProcessRejectsPayloadWithoutTimestamps(t *testing.T) {
	repo := newFakeStore(testMerchant(), testStaff(101))
	processor := NewProcessor(repo)

	// Razorpay payload without created_at/respond_by; the parser must not
	// coerce the absent epochs into 1970 timestamps.
	body := `{
		"event": "payment.dispute.created",
		"payload": {"dispute": {"entity": {
			"id": "disp_abc",
			"payment_id": "pay_abc123",
			"amount": 5000,
			"currency": "INR",
			"reason_code": "duplicate_transaction",
			"status": "open"
		}}}
	}`
	env := domain.WebhookEnvelope{
		MerchantID: "MID000011112222",
		RawPayload: json.RawMessage(body),
		Headers:    map[string]string{"x-razorpay-signature": "sig"},
		GatewayIP:  "203.0.113.7",
	}

	err := processor.Process(context.Background(), env)
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Class != ErrClassValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.disputes) != 0 || len(repo.payloads) != 0 || len(repo.logs) != 0 {
		t.Fatal("timestamp-less payload must be rejected before any write")
	}
}

func TestProcessAssignsStaffOnUpdateWhenPreviouslyUnassigned(t *testing.T) {
	repo := newFakeStore(testMerchant(), nil)
	processor := NewProcessor(repo)

	if err := processor.Process(context.Background(), razorpayEnvelope("disp_abc", "open")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if repo.disputes[0].StaffID != nil {
		t.Fatal("precondition: dispute should be unassigned")
	}

	// Staff onboarded between deliveries.
	repo.staff = testStaff(101)

	if err := processor.Process(context.Background(), razorpayEnvelope("disp_abc", "under_review")); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	d := repo.disputes[0]
	if d.StaffID == nil || *d.StaffID != 101 {
		t.Fatalf("expected late assignment to staff 101, got %v", d.StaffID)
	}
}
