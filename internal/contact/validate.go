package contact

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("plausible_email", func(fl validator.FieldLevel) bool {
		return PlausibleEmail(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// PlausibleEmail reports whether addr has a local part, an '@' and a domain,
// with no whitespace. It is not an RFC 5322 parser.
func PlausibleEmail(addr string) bool {
	if strings.ContainsFunc(addr, unicode.IsSpace) {
		return false
	}
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	domain := addr[at+1:]
	return !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// Validate trims m and checks its required fields. It returns the trimmed
// message, or a *ValidationError naming every rejected field.
func Validate(m Message) (Message, error) {
	m = m.Trimmed()

	err := validate.Struct(m)
	if err == nil {
		return m, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return m, err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		reason := ReasonInvalid
		if fe.Tag() == "required" {
			reason = ReasonRequired
		}
		out.Fields = append(out.Fields, FieldError{Field: Field(fe.Field()), Reason: reason})
	}
	return m, out
}
