package render

import (
	"fmt"

	"sst-backend/document/layout"
	"sst-backend/document/model"
)

// Minutes renders meeting minutes.
type Minutes struct {
	data model.Minutes
}

// NewMinutes copies m and fills placeholders for missing optional fields.
func NewMinutes(m model.Minutes) *Minutes {
	m.Attendees = append([]model.Attendee(nil), m.Attendees...)
	m.Commitments = append([]model.Commitment(nil), m.Commitments...)
	m.ApplyPlaceholders()
	return &Minutes{data: m}
}

func (p *Minutes) Kind() model.Kind     { return model.KindMinutes }
func (p *Minutes) Header() model.Header { return p.data.Header }

func (p *Minutes) Layout(e *layout.Engine) error {
	m := p.data
	e.OnPageStart(runningHeader(m.Header))
	c, err := e.Begin()
	if err != nil {
		return err
	}
	if c, err = drawHeader(e, c, m.Header); err != nil {
		return err
	}

	steps := []func(layout.Cursor) (layout.Cursor, error){
		func(c layout.Cursor) (layout.Cursor, error) {
			c, err := sectionTitle(e, c, "Meeting data")
			if err != nil {
				return c, err
			}
			return e.PlaceTable(c, &layout.Table{Columns: []layout.Column{
				{Title: "Minutes No.", Weight: 1},
				{Title: "Date", Weight: 1},
				{Title: "Start", Weight: 1},
				{Title: "End", Weight: 1},
				{Title: "Place", Weight: 2},
			}}, [][]string{{m.Number, m.Date, m.StartTime, m.EndTime, m.Place}})
		},
		func(c layout.Cursor) (layout.Cursor, error) {
			c, err := sectionTitle(e, c, "Attendance")
			if err != nil {
				return c, err
			}
			rows := make([][]string, 0, len(m.Attendees))
			for _, a := range m.Attendees {
				rows = append(rows, []string{a.Name, a.Role, ""})
			}
			return e.PlaceTable(c, &layout.Table{Columns: []layout.Column{
				{Title: "Name", Weight: 3},
				{Title: "Role", Weight: 2},
				{Title: "Signature", Weight: 2},
			}}, rows)
		},
		func(c layout.Cursor) (layout.Cursor, error) { return textSection(e, c, "Objective", m.Objective) },
		func(c layout.Cursor) (layout.Cursor, error) {
			c, err := sectionTitle(e, c, "Agenda")
			if err != nil {
				return c, err
			}
			if len(m.Agenda) == 0 {
				return paragraph(e, c, model.NotRecorded)
			}
			for i, item := range m.Agenda {
				c, err = e.PlaceText(c, layout.Text{Text: fmt.Sprintf("%d. %s", i+1, item), Indent: 8, SpaceAfter: 2})
				if err != nil {
					return c, err
				}
			}
			return e.Advance(c, sectionGap), nil
		},
		func(c layout.Cursor) (layout.Cursor, error) { return textSection(e, c, "Proceedings", m.Proceedings) },
		func(c layout.Cursor) (layout.Cursor, error) {
			c, err := sectionTitle(e, c, "Commitments")
			if err != nil {
				return c, err
			}
			rows := make([][]string, 0, len(m.Commitments))
			for _, cm := range m.Commitments {
				rows = append(rows, []string{cm.Description, cm.Responsible, cm.DueDate})
			}
			return e.PlaceTable(c, &layout.Table{Columns: []layout.Column{
				{Title: "Commitment", Weight: 4},
				{Title: "Responsible", Weight: 2},
				{Title: "Due date", Weight: 1.5, Align: layout.AlignCenter},
			}}, rows)
		},
		func(c layout.Cursor) (layout.Cursor, error) {
			return signatureBlocks(e, c, []model.Signatory{m.Chair, m.Secretary})
		},
	}
	for _, step := range steps {
		if c, err = step(c); err != nil {
			return err
		}
		c = e.Advance(c, sectionGap)
	}
	return nil
}

func textSection(e *layout.Engine, c layout.Cursor, title, body string) (layout.Cursor, error) {
	c, err := sectionTitle(e, c, title)
	if err != nil {
		return c, err
	}
	return paragraph(e, c, body)
}
