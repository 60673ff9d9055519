package requests

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a signature request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseDecision accepts the two terminal states, in English or Spanish.
func ParseDecision(v string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "approved", "approve", "aprobado", "aprobada":
		return StatusApproved, true
	case "rejected", "reject", "rechazado", "rechazada":
		return StatusRejected, true
	}
	return "", false
}

// Label is the Spanish word used in notification titles.
func (s Status) Label() string {
	switch s {
	case StatusApproved:
		return "Aprobado"
	case StatusRejected:
		return "Rechazado"
	default:
		return "Pendiente"
	}
}

// Request asks an approver to review, and optionally sign, a document.
// SignedDocumentPath is only ever set on approved requests with an original.
type Request struct {
	ID                   int64
	RequesterID          string
	RequesterName        string
	RequesterRole        string
	Type                 string
	Message              string
	OriginalDocumentPath *string
	SignedDocumentPath   *string
	Status               Status
	ReviewerID           *string
	ReviewerComment      *string
	CreatedAt            time.Time
	RespondedAt          *time.Time
	Version              int
}

// Decision is the conditional update applied when an approver responds.
type Decision struct {
	Status             Status
	ReviewerID         string
	Comment            *string
	SignedDocumentPath *string
	RespondedAt        time.Time
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	RequesterID string
	Status      Status
	Limit       int
}
