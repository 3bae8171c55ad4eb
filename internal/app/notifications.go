/**
 * @description
 * Notification composer for the dispute pipeline. Maps a dispute transition to a
 * human-readable {title, message} pair. The composer is a pure function; the
 * processor decides which recipients get which kind and batches the inserts.
 */

package app

// NotifyKind is the closed set of dispute transitions that produce
// notifications.
type NotifyKind string

const (
	NotifyAssigned                  NotifyKind = "ASSIGNED"
	NotifyDisputeReceivedMerchant   NotifyKind = "DISPUTE_RECEIVED_MERCHANT"
	NotifyDisputeReceivedUnassigned NotifyKind = "DISPUTE_RECEIVED_UNASSIGNED"
	NotifyEventChangedAssignedStaff NotifyKind = "EVENT_CHANGED_ASSIGNED_STAFF"
	NotifyStatusChanged             NotifyKind = "STATUS_CHANGED"
	NotifyEventChanged              NotifyKind = "EVENT_CHANGED"
	NotifyDisputeUpdated            NotifyKind = "DISPUTE_UPDATED"
	NotifyAttachmentAdded           NotifyKind = "ATTACHMENT_ADDED"
	NotifyDetailsEdited             NotifyKind = "DETAILS_EDITED"
	NotifyEscalated                 NotifyKind = "ESCALATED"
	NotifyResolved                  NotifyKind = "RESOLVED"
	NotifyReopened                  NotifyKind = "REOPENED"
	NotifyCommented                 NotifyKind = "COMMENTED"
)

// NotificationTemplate is the composed title/message pair for one recipient.
type NotificationTemplate struct {
	Title   string
	Message string
}

// ComposeNotification builds the notification text for a dispute transition.
// actorName is the staff member involved (when any) and detail carries
// transition-specific context such as the new provider status.
func ComposeNotification(customID string, kind NotifyKind, actorName string, detail string) NotificationTemplate {
	switch kind {
	case NotifyAssigned:
		return NotificationTemplate{
			Title:   "New Dispute Assigned",
			Message: "Dispute " + customID + " has been assigned to you. Please review and respond before the due date.",
		}
	case NotifyDisputeReceivedMerchant:
		return NotificationTemplate{
			Title:   "New Dispute Received",
			Message: "A new dispute " + customID + " was received and assigned to " + actorName + ".",
		}
	case NotifyDisputeReceivedUnassigned:
		return NotificationTemplate{
			Title:   "New Dispute Received",
			Message: "A new dispute " + customID + " was received. No staff member is assigned to it yet.",
		}
	case NotifyEventChangedAssignedStaff:
		return NotificationTemplate{
			Title:   "Dispute Updated",
			Message: "Dispute " + customID + " moved to " + detail + " and has been assigned to " + actorName + ".",
		}
	case NotifyStatusChanged, NotifyEventChanged:
		return NotificationTemplate{
			Title:   "Dispute Updated",
			Message: "Dispute " + customID + " status changed to " + detail + ".",
		}
	case NotifyDisputeUpdated:
		return NotificationTemplate{
			Title:   "Dispute Updated",
			Message: "Details of dispute " + customID + " were updated.",
		}
	case NotifyAttachmentAdded:
		return NotificationTemplate{
			Title:   "Attachment Added",
			Message: "An attachment was added to dispute " + customID + ".",
		}
	case NotifyDetailsEdited:
		return NotificationTemplate{
			Title:   "Dispute Details Edited",
			Message: "Details of dispute " + customID + " were edited by " + actorName + ".",
		}
	case NotifyEscalated:
		return NotificationTemplate{
			Title:   "Dispute Escalated",
			Message: "Dispute " + customID + " has been escalated.",
		}
	case NotifyResolved:
		return NotificationTemplate{
			Title:   "Dispute Resolved",
			Message: "Dispute " + customID + " has been resolved.",
		}
	case NotifyReopened:
		return NotificationTemplate{
			Title:   "Dispute Reopened",
			Message: "Dispute " + customID + " has been reopened.",
		}
	case NotifyCommented:
		return NotificationTemplate{
			Title:   "New Comment",
			Message: actorName + " commented on dispute " + customID + ".",
		}
	default:
		return NotificationTemplate{
			Title:   "Dispute Notification",
			Message: "There is an update on dispute " + customID + ".",
		}
	}
}
