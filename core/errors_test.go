package core

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
)

func TestValidationError_AddAndError(t *testing.T) {
	verr := NewValidationError()
	if !verr.Empty() {
		t.Fatal("new validation error must start empty")
	}

	verr.Add("email", "has already been taken")
	verr.Add("name", "cannot be blank")
	verr.Add("email", "must be a valid email address")

	if verr.Empty() {
		t.Fatal("Empty() = true after Add()")
	}
	if len(verr.Fields["email"]) != 2 {
		t.Errorf("email messages = %d, want 2", len(verr.Fields["email"]))
	}

	// Error() lists fields alphabetically so output is stable.
	want := "email: has already been taken; email: must be a valid email address; name: cannot be blank"
	if verr.Error() != want {
		t.Errorf("Error() = %q, want %q", verr.Error(), want)
	}
}

func TestFoldValidation(t *testing.T) {
	t.Run("nil yields empty", func(t *testing.T) {
		verr := FoldValidation(nil)
		if !verr.Empty() {
			t.Errorf("FoldValidation(nil) = %v, want empty", verr.Fields)
		}
	})

	t.Run("field errors keep their keys", func(t *testing.T) {
		err := validation.Errors{
			"email":    errors.New("must be a valid email address"),
			"password": errors.New("the length must be at least 8"),
		}
		verr := FoldValidation(err)
		if len(verr.Fields["email"]) != 1 || len(verr.Fields["password"]) != 1 {
			t.Errorf("FoldValidation() fields = %v, want email and password keys", verr.Fields)
		}
	})

	t.Run("non-field error lands on body", func(t *testing.T) {
		verr := FoldValidation(errors.New("unexpected payload"))
		if len(verr.Fields["body"]) != 1 {
			t.Errorf("FoldValidation() fields = %v, want body key", verr.Fields)
		}
	})
}

func TestUser_Verified(t *testing.T) {
	user := &User{ID: "u1"}
	if user.Verified() {
		t.Error("user without a timestamp must not be verified")
	}
}

func TestValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{role: RoleUser, want: true},
		{role: RoleAdmin, want: true},
		{role: "superuser", want: false},
		{role: "", want: false},
	}
	for _, test := range tests {
		if got := ValidRole(test.role); got != test.want {
			t.Errorf("ValidRole(%q) = %v, want %v", test.role, got, test.want)
		}
	}
}
