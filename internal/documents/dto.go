package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID string    `json:"documentId"`
	Profile    string    `json:"profile"`
	Title      string    `json:"title"`
	Code       string    `json:"code"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"sizeBytes"`
	Pages      int       `json:"pages"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID: doc.ID,
		Profile:    string(doc.Profile),
		Title:      doc.Title,
		Code:       doc.Code,
		Path:       doc.StorageKey,
		SizeBytes:  doc.SizeBytes,
		Pages:      doc.Pages,
		CreatedBy:  doc.CreatedBy,
		CreatedAt:  doc.CreatedAt,
	}
}
