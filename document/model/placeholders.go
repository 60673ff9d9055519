package model

import "strings"

const (
	// NotRecorded fills missing free-text content.
	NotRecorded = "Not recorded"
	// NotApplicable fills missing short values such as codes, dates and names.
	NotApplicable = "N/A"
)

// ApplyHeaderDefaults fills empty header fields from defaults.
func ApplyHeaderDefaults(h *Header, defaults Header) {
	fill(&h.Organization, defaults.Organization)
	fill(&h.Title, defaults.Title)
	fill(&h.Code, defaults.Code)
	fill(&h.Version, defaults.Version)
	fill(&h.EmissionDate, defaults.EmissionDate)
	fill(&h.RevisionDate, defaults.RevisionDate)
	if len(h.Logo) == 0 {
		h.Logo = defaults.Logo
	}
}

// ApplyPlaceholders replaces missing optional minutes fields with placeholders so
// every printed cell has content.
func (m *Minutes) ApplyPlaceholders() {
	placeholderHeader(&m.Header)
	fill(&m.Number, NotApplicable)
	fill(&m.Date, NotApplicable)
	fill(&m.StartTime, NotApplicable)
	fill(&m.EndTime, NotApplicable)
	fill(&m.Place, NotRecorded)
	fill(&m.Objective, NotRecorded)
	fill(&m.Proceedings, NotRecorded)
	for i := range m.Attendees {
		fill(&m.Attendees[i].Role, NotApplicable)
	}
	for i := range m.Commitments {
		fill(&m.Commitments[i].Responsible, NotApplicable)
		fill(&m.Commitments[i].DueDate, NotApplicable)
	}
	fill(&m.Chair.Name, NotApplicable)
	fill(&m.Secretary.Name, NotApplicable)
	fill(&m.Chair.Role, "Chair")
	fill(&m.Secretary.Role, "Secretary")
}

// ApplyPlaceholders replaces missing optional report fields with placeholders.
func (r *Report) ApplyPlaceholders() {
	placeholderHeader(&r.Header)
	fill(&r.Body, NotRecorded)
	for i := range r.Fields {
		fill(&r.Fields[i].Value, NotApplicable)
	}
	fill(&r.Signer.Name, NotApplicable)
	fill(&r.Signer.Role, "Prepared by")
	if r.SecondSigner != nil {
		fill(&r.SecondSigner.Name, NotApplicable)
	}
}

func placeholderHeader(h *Header) {
	fill(&h.Code, NotApplicable)
	fill(&h.Version, NotApplicable)
	fill(&h.EmissionDate, NotApplicable)
	fill(&h.RevisionDate, NotApplicable)
}

func fill(dst *string, value string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = value
	}
}
