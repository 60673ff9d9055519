package render

import (
	"sst-backend/document/layout"
	"sst-backend/document/model"
)

// maxFieldLines bounds a field kept on one page; longer values flow line by line.
const maxFieldLines = 12

// Declarative renders generic reports: a body paragraph, a bulleted list of
// labeled values and one or two signature blocks.
type Declarative struct {
	data model.Report
}

// NewDeclarative copies r, resolves the optional second signer and fills placeholders.
func NewDeclarative(r model.Report) *Declarative {
	r.Fields = append([]model.Field(nil), r.Fields...)
	r.ResolveSecondSigner()
	r.ApplyPlaceholders()
	return &Declarative{data: r}
}

func (p *Declarative) Kind() model.Kind     { return model.KindGeneric }
func (p *Declarative) Header() model.Header { return p.data.Header }

// Signers returns the signature blocks the report prints.
func (p *Declarative) Signers() []model.Signatory {
	out := []model.Signatory{p.data.Signer}
	if p.data.SecondSigner != nil {
		out = append(out, *p.data.SecondSigner)
	}
	return out
}

func (p *Declarative) Layout(e *layout.Engine) error {
	r := p.data
	e.OnPageStart(runningHeader(r.Header))
	c, err := e.Begin()
	if err != nil {
		return err
	}
	if c, err = drawHeader(e, c, r.Header); err != nil {
		return err
	}
	if c, err = paragraph(e, c, r.Body); err != nil {
		return err
	}
	if len(r.Fields) > 0 {
		bold := layout.Body.Bold()
		for _, f := range r.Fields {
			label := "• " + f.Label + ":"
			// The label keeps its own width; long values wrap under themselves.
			labelW := e.Measurer().TextWidth(label+" ", bold)
			var lines []string
			if labelW <= e.ContentWidth()/2 {
				lines = e.Measurer().WrapText(f.Value, e.ContentWidth()-8-labelW, layout.Body)
			}
			if len(lines) == 0 || len(lines) > maxFieldLines {
				c, err = e.PlaceText(c, layout.Text{Text: label + " " + f.Value, Indent: 8, SpaceAfter: 3})
				if err != nil {
					return err
				}
				continue
			}
			h := float64(len(lines)) * layout.Body.LineHeight()
			ops := []layout.Op{e.TextOp(e.Left()+8, 0, labelW, label, bold, layout.AlignLeft)}
			for i, line := range lines {
				ops = append(ops, e.TextOp(e.Left()+8+labelW, float64(i)*layout.Body.LineHeight(), e.ContentWidth()-8-labelW, line, layout.Body, layout.AlignLeft))
			}
			if c, err = e.PlaceBlock(c, layout.Block{Height: h, Ops: ops}); err != nil {
				return err
			}
			c = e.Advance(c, 3)
		}
		c = e.Advance(c, sectionGap)
	}
	_, err = signatureBlocks(e, c, p.Signers())
	return err
}
