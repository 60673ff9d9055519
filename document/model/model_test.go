package model

import "testing"

func TestMinutesPlaceholders(t *testing.T) {
	m := Minutes{
		Header:      Header{Title: "Safety committee"},
		Attendees:   []Attendee{{Name: "Ana Ruiz"}},
		Commitments: []Commitment{{Description: "Replace extinguisher"}},
	}
	m.ApplyPlaceholders()

	if m.Place != NotRecorded || m.Proceedings != NotRecorded {
		t.Fatalf("expected free-text placeholders, got place=%q proceedings=%q", m.Place, m.Proceedings)
	}
	if m.Header.Code != NotApplicable || m.Date != NotApplicable {
		t.Fatalf("expected N/A for code and date, got %q %q", m.Header.Code, m.Date)
	}
	if m.Attendees[0].Role != NotApplicable || m.Commitments[0].DueDate != NotApplicable {
		t.Fatalf("expected N/A in table cells")
	}
	if m.Attendees[0].Name != "Ana Ruiz" {
		t.Fatalf("placeholders must not overwrite values")
	}
}

func TestResolveSecondSigner(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		want   string
	}{
		{name: "english name label", fields: []Field{{Label: "Vehicle", Value: "ABC123"}, {Label: "Driver name", Value: "Luis Mora"}}, want: "Luis Mora"},
		{name: "spanish responsable", fields: []Field{{Label: "Responsable del plan", Value: "Marta Gil"}}, want: "Marta Gil"},
		{name: "nombre", fields: []Field{{Label: "Nombre del conductor", Value: "Iván"}}, want: "Iván"},
		{name: "no person field", fields: []Field{{Label: "Plate", Value: "XYZ"}}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Report{Header: Header{Title: "Declaration"}, Fields: tt.fields}
			r.ResolveSecondSigner()
			if tt.want == "" {
				if r.SecondSigner != nil {
					t.Fatalf("expected no second signer, got %+v", r.SecondSigner)
				}
				return
			}
			if r.SecondSigner == nil || r.SecondSigner.Name != tt.want {
				t.Fatalf("expected second signer %q, got %+v", tt.want, r.SecondSigner)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" PESV "); err != nil || k != KindGeneric {
		t.Fatalf("expected generic for pesv, got %q %v", k, err)
	}
	if k, err := ParseKind("minutes"); err != nil || k != KindMinutes {
		t.Fatalf("expected minutes, got %q %v", k, err)
	}
	if _, err := ParseKind("invoice"); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}
