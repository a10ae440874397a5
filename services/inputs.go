package services

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/keralabs/passway/core"
)

// minPasswordLength is the external strength policy floor.
const minPasswordLength = 8

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 string `json:"role"`
}

// Validate runs the field rules and collects every violation. Email
// uniqueness is checked by the service so its failure joins the same
// field map.
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.Required, is.Email, validation.Length(1, 255)),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, 0)),
		validation.Field(&r.PasswordConfirmation, validation.Required, validation.By(stringEquals(r.Password))),
		validation.Field(&r.Role, validation.In(core.RoleUser, core.RoleAdmin)),
	)
}

// LoginInput carries credentials for authentication.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// UpdateProfileInput is a partial profile update. A nil field means
// "leave untouched"; a present field is validated in full.
type UpdateProfileInput struct {
	Name                 *string `json:"name"`
	Email                *string `json:"email"`
	Password             *string `json:"password"`
	PasswordConfirmation *string `json:"password_confirmation"`
}

func (r UpdateProfileInput) Validate() error {
	var fields []*validation.FieldRules

	if r.Name != nil {
		fields = append(fields,
			validation.Field(&r.Name, validation.Required, validation.Length(1, 255)))
	}
	if r.Email != nil {
		fields = append(fields,
			validation.Field(&r.Email, validation.Required, is.Email, validation.Length(1, 255)))
	}
	if r.Password != nil {
		fields = append(fields,
			validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, 0)),
			validation.Field(&r.PasswordConfirmation, validation.Required, validation.By(stringEquals(*r.Password))),
		)
	}

	if len(fields) == 0 {
		return nil
	}
	return validation.ValidateStruct(&r, fields...)
}

// AdminUpdateInput is the explicit allowlist for the admin update
// operation: name, email and role, nothing else.
type AdminUpdateInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (r AdminUpdateInput) Validate() error {
	var fields []*validation.FieldRules

	if r.Name != nil {
		fields = append(fields,
			validation.Field(&r.Name, validation.Required, validation.Length(1, 255)))
	}
	if r.Email != nil {
		fields = append(fields,
			validation.Field(&r.Email, validation.Required, is.Email, validation.Length(1, 255)))
	}
	if r.Role != nil {
		fields = append(fields,
			validation.Field(&r.Role, validation.Required, validation.In(core.RoleUser, core.RoleAdmin)))
	}

	if len(fields) == 0 {
		return nil
	}
	return validation.ValidateStruct(&r, fields...)
}

// stringEquals checks that a (possibly pointer) string field matches
// expected, for password confirmations.
func stringEquals(expected string) validation.RuleFunc {
	return func(value any) error {
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case *string:
			if v != nil {
				s = *v
			}
		}
		if s != expected {
			return errors.New("must match the password")
		}
		return nil
	}
}
