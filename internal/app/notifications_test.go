package app

import (
	"strings"
	"testing"
)

func TestComposeNotificationAssigned(t *testing.T) {
	tmpl := ComposeNotification("DIS0032187448", NotifyAssigned, "Asha Rao", "")
	if tmpl.Title != "New Dispute Assigned" {
		t.Fatalf("unexpected title %q", tmpl.Title)
	}
	if !strings.Contains(tmpl.Message, "DIS0032187448") {
		t.Fatalf("expected message to reference the dispute id, got %q", tmpl.Message)
	}
}

func TestComposeNotificationReceivedMerchantNamesStaff(t *testing.T) {
	tmpl := ComposeNotification("DIS0032187448", NotifyDisputeReceivedMerchant, "Asha Rao", "")
	if !strings.Contains(tmpl.Message, "Asha Rao") {
		t.Fatalf("expected message to name the assigned staff, got %q", tmpl.Message)
	}
}

func TestComposeNotificationEventChangedCarriesStatus(t *testing.T) {
	tmpl := ComposeNotification("DIS0032187448", NotifyEventChanged, "", "under_review")
	if tmpl.Title != "Dispute Updated" {
		t.Fatalf("unexpected title %q", tmpl.Title)
	}
	if !strings.Contains(tmpl.Message, "under_review") {
		t.Fatalf("expected message to carry the new status, got %q", tmpl.Message)
	}
}

func TestComposeNotificationUnknownKindFallsBack(t *testing.T) {
	tmpl := ComposeNotification("DIS0032187448", NotifyKind("SOMETHING_ELSE"), "", "")
	if tmpl.Title == "" || tmpl.Message == "" {
		t.Fatalf("expected non-empty fallback template, got %+v", tmpl)
	}
}
