package domain

import "time"

// AlertStatus is the triage state of an alert.
type AlertStatus string

const (
	AlertStatusNew      AlertStatus = "new"
	AlertStatusViewed   AlertStatus = "viewed"
	AlertStatusResolved AlertStatus = "resolved"
)

// AllAlertStatuses lists statuses in lifecycle order.
var AllAlertStatuses = []AlertStatus{AlertStatusNew, AlertStatusViewed, AlertStatusResolved}

// String returns the string representation of AlertStatus.
func (s AlertStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known value.
func (s AlertStatus) IsValid() bool {
	return s.order() >= 0
}

func (s AlertStatus) order() int {
	switch s {
	case AlertStatusNew:
		return 0
	case AlertStatusViewed:
		return 1
	case AlertStatusResolved:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving to next keeps the lifecycle monotonic.
// Staying in the same status is allowed.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	return next.order() >= s.order()
}

// Alert is the workflow wrapper around exactly one Anomaly.
// Corresponds to alerts table in PostgreSQL.
type Alert struct {
	ID         string      `json:"id"`
	AnomalyID  string      `json:"anomaly_id"`
	Status     AlertStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at"` // set iff Status is resolved
}

// AlertRecord is the joined alert + anomaly read shape.
type AlertRecord struct {
	Alert
	Anomaly Anomaly `json:"anomaly"`
}
