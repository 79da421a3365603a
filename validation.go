package accounts

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var latinNameRe = regexp.MustCompile(`^[A-Za-z ]+$`)

// ValidateMemberName enforces the latin-alphabet-plus-space rule for
// explicitly supplied member names.
func ValidateMemberName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Match(latinNameRe),
	)
	if err != nil {
		return ErrInvalidName.Clone().WithMetadata(map[string]any{
			"name": name,
		})
	}
	return nil
}

// ValidateEmail checks the address shape before it hits the store
func ValidateEmail(email string) error {
	err := validation.Validate(email,
		validation.Required,
		is.Email,
	)
	if err != nil {
		return ErrInvalidEmail.Clone().WithMetadata(map[string]any{
			"email": email,
		})
	}
	return nil
}
