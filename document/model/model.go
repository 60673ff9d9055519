package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a document profile.
type Kind string

const (
	KindMinutes Kind = "minutes"
	KindGeneric Kind = "generic"
)

// ParseKind normalizes a profile name. "pesv" and "report" are accepted aliases
// of the generic profile.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "minutes", "acta":
		return KindMinutes, nil
	case "generic", "pesv", "report":
		return KindGeneric, nil
	default:
		return "", fmt.Errorf("unknown document profile %q", raw)
	}
}

// Header is the metadata block printed at the top of every controlled document.
type Header struct {
	Organization string `json:"organization" yaml:"organization"`
	Title        string `json:"title" yaml:"title"`
	Code         string `json:"code" yaml:"code"`
	Version      string `json:"version" yaml:"version"`
	EmissionDate string `json:"emissionDate" yaml:"emissionDate"`
	RevisionDate string `json:"revisionDate" yaml:"revisionDate"`
	Logo         []byte `json:"-" yaml:"-"`
}

// Signatory is a signature block: a role caption and the signer's printed name.
type Signatory struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// Attendee is one row of the minutes attendance list.
type Attendee struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Commitment is one agreed action of a meeting.
type Commitment struct {
	Description string `json:"description"`
	Responsible string `json:"responsible"`
	DueDate     string `json:"dueDate"`
}

// Minutes is the payload of a meeting minutes document.
type Minutes struct {
	Header      Header       `json:"header"`
	Number      string       `json:"number"`
	Date        string       `json:"date"`
	StartTime   string       `json:"startTime"`
	EndTime     string       `json:"endTime"`
	Place       string       `json:"place"`
	Attendees   []Attendee   `json:"attendees"`
	Objective   string       `json:"objective"`
	Agenda      []string     `json:"agenda"`
	Proceedings string       `json:"proceedings"`
	Commitments []Commitment `json:"commitments"`
	Chair       Signatory    `json:"chair"`
	Secretary   Signatory    `json:"secretary"`
}

// Validate checks the fields a set of minutes cannot be printed without.
func (m Minutes) Validate() error {
	if strings.TrimSpace(m.Header.Title) == "" && strings.TrimSpace(m.Objective) == "" {
		return errors.New("minutes require a title or an objective")
	}
	for i, a := range m.Attendees {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("attendees[%d].name is required", i)
		}
	}
	for i, c := range m.Commitments {
		if strings.TrimSpace(c.Description) == "" {
			return fmt.Errorf("commitments[%d].description is required", i)
		}
	}
	return nil
}

// Field is a labeled value of a declarative report.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Report is the payload of a generic declarative document: one free-text body,
// a list of labeled fields and up to two signature blocks.
type Report struct {
	Header       Header     `json:"header"`
	Body         string     `json:"body"`
	Fields       []Field    `json:"fields"`
	Signer       Signatory  `json:"signer"`
	SecondRole   string     `json:"secondRole"`
	SecondSigner *Signatory `json:"-"`
}

// Validate checks the report fields.
func (r Report) Validate() error {
	if strings.TrimSpace(r.Header.Title) == "" {
		return errors.New("header.title is required")
	}
	for i, f := range r.Fields {
		if strings.TrimSpace(f.Label) == "" {
			return fmt.Errorf("fields[%d].label is required", i)
		}
	}
	return nil
}

// responsibleMarkers identify a field whose value names a responsible person.
var responsibleMarkers = []string{"name", "nombre", "responsible", "responsable"}

// ResolveSecondSigner sets SecondSigner from the first field whose label names a
// person. Reports without such a field get a single signature block.
func (r *Report) ResolveSecondSigner() {
	r.SecondSigner = nil
	for _, f := range r.Fields {
		label := strings.ToLower(f.Label)
		for _, marker := range responsibleMarkers {
			if strings.Contains(label, marker) {
				role := strings.TrimSpace(r.SecondRole)
				if role == "" {
					role = strings.TrimSpace(f.Label)
				}
				r.SecondSigner = &Signatory{Role: role, Name: strings.TrimSpace(f.Value)}
				return
			}
		}
	}
}
