// Package contact defines the contact message submitted by a site visitor
// and the required-field validation shared by the form controller and the relay.
package contact

import "strings"

// Field names a form field. The values match the JSON keys of the /send payload.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldSubject Field = "subject"
	FieldMessage Field = "message"
)

// Fields lists every form field in display order.
var Fields = []Field{FieldName, FieldEmail, FieldSubject, FieldMessage}

// Message is a visitor's contact submission. Subject is optional.
type Message struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,plausible_email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message" validate:"required"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (m Message) Trimmed() Message {
	return Message{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Subject: strings.TrimSpace(m.Subject),
		Message: strings.TrimSpace(m.Message),
	}
}

// Get returns the value of field f.
func (m Message) Get(f Field) string {
	switch f {
	case FieldName:
		return m.Name
	case FieldEmail:
		return m.Email
	case FieldSubject:
		return m.Subject
	case FieldMessage:
		return m.Message
	}
	return ""
}

// Set returns a copy of m with field f set to v. Unknown fields are ignored.
func (m Message) Set(f Field, v string) Message {
	switch f {
	case FieldName:
		m.Name = v
	case FieldEmail:
		m.Email = v
	case FieldSubject:
		m.Subject = v
	case FieldMessage:
		m.Message = v
	}
	return m
}

// IsZero reports whether every field is empty.
func (m Message) IsZero() bool {
	return m == Message{}
}
