package requests

import "time"

// RequestResponse is the outward-facing representation of a request.
type RequestResponse struct {
	ID                   int64      `json:"id"`
	RequesterID          string     `json:"requesterId"`
	RequesterName        string     `json:"requesterName"`
	RequesterRole        string     `json:"requesterRole"`
	Type                 string     `json:"type"`
	Message              string     `json:"message"`
	OriginalDocumentPath *string    `json:"originalDocumentPath"`
	SignedDocumentPath   *string    `json:"signedDocumentPath"`
	Status               Status     `json:"status"`
	ReviewerID           *string    `json:"reviewerId,omitempty"`
	ReviewerComment      *string    `json:"reviewerComment"`
	CreatedAt            time.Time  `json:"createdAt"`
	RespondedAt          *time.Time `json:"respondedAt,omitempty"`
}

func toResponse(req Request) RequestResponse {
	return RequestResponse{
		ID:                   req.ID,
		RequesterID:          req.RequesterID,
		RequesterName:        req.RequesterName,
		RequesterRole:        req.RequesterRole,
		Type:                 req.Type,
		Message:              req.Message,
		OriginalDocumentPath: req.OriginalDocumentPath,
		SignedDocumentPath:   req.SignedDocumentPath,
		Status:               req.Status,
		ReviewerID:           req.ReviewerID,
		ReviewerComment:      req.ReviewerComment,
		CreatedAt:            req.CreatedAt,
		RespondedAt:          req.RespondedAt,
	}
}
