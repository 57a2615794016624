package dispatch

import (
	"github.com/go-playground/validator/v10"
	"github.com/pis-platform/pis/internal/records"
)

var validate = validator.New()

// ContactError is a contact that fails local checks before any store call
type ContactError struct {
	Message string
}

func (e *ContactError) Error() string { return e.Message }

type contactInput struct {
	Name    string `validate:"required"`
	Email   string `validate:"omitempty,email"`
	Parents int    `validate:"eq=1"`
}

// ValidateContact checks that a contact has a name and exactly one parent
// suite, service or utility that has been saved.
func ValidateContact(row records.Row) error {
	in := contactInput{Name: row.String("name"), Email: row.String("email")}
	for _, field := range []string{"suite_id", "service_id", "utility_id"} {
		ref := row.String(field)
		if ref == "" || ref == "0" {
			continue
		}
		if records.IsTemp(ref) {
			return &ContactError{Message: "Save the " + field[:len(field)-3] + " before adding contacts to it"}
		}
		in.Parents++
	}

	if err := validate.Struct(in); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok || len(verrs) == 0 {
			return &ContactError{Message: err.Error()}
		}
		switch verrs[0].Field() {
		case "Name":
			return &ContactError{Message: "Contact name is required"}
		case "Email":
			return &ContactError{Message: "Contact email is not valid"}
		default:
			return &ContactError{Message: "Contact must belong to exactly one suite, service or utility"}
		}
	}
	return nil
}
