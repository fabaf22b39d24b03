package submit

import "contactrelay/internal/contact"

// Submit button labels.
const (
	LabelSend    = "Send Message"
	LabelSending = "Sending..."
)

// FieldView is how one input should be drawn.
type FieldView struct {
	Field   contact.Field
	Value   string
	Invalid bool
}

// View is everything a form renderer needs. It is derived from a Snapshot by Render.
type View struct {
	Fields         []FieldView
	SubmitLabel    string
	SubmitDisabled bool
	Notice         *Notice
}

// Render maps a snapshot to its view. It has no side effects.
func Render(s Snapshot) View {
	v := View{
		Fields:      make([]FieldView, 0, len(contact.Fields)),
		SubmitLabel: LabelSend,
		Notice:      s.Notice,
	}
	if s.Status.State == Sending {
		v.SubmitLabel = LabelSending
		v.SubmitDisabled = true
	}

	invalid := make(map[contact.Field]bool, len(s.Invalid))
	for _, f := range s.Invalid {
		invalid[f] = true
	}
	for _, f := range contact.Fields {
		v.Fields = append(v.Fields, FieldView{Field: f, Value: s.Form.Get(f), Invalid: invalid[f]})
	}
	return v
}

// Invalid reports whether field f is marked invalid.
func (v View) Invalid(f contact.Field) bool {
	for _, fv := range v.Fields {
		if fv.Field == f {
			return fv.Invalid
		}
	}
	return false
}

// Value returns the displayed value of field f.
func (v View) Value(f contact.Field) string {
	for _, fv := range v.Fields {
		if fv.Field == f {
			return fv.Value
		}
	}
	return ""
}
