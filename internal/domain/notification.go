package domain

import "time"

// Notification recipient types.
const (
	RecipientStaff    = "STAFF"
	RecipientMerchant = "MERCHANT"
)

// Notification channels and categories. This pipeline only produces WEB
// dispute notifications; read receipts are handled elsewhere.
const (
	NotificationTypeDispute = "DISPUTE"
	NotificationChannelWeb  = "WEB"
)

// Notification is an in-app message addressed to a staff member or merchant,
// optionally linked to a dispute. Created in batches, never mutated here.
type Notification struct {
	ID            int64
	RecipientID   int64
	RecipientType string
	Type          string
	Title         string
	Message       string
	DisputeID     *int64
	IsRead        bool
	ReadAt        *time.Time
	Channel       string
	CreatedAt     time.Time
}
