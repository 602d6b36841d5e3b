package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"contactfix/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type ContactValidator struct {
	validate *validator.Validate
}

func NewContactValidator() *ContactValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("phone_chars", validatePhoneChars); err != nil {
		panic(fmt.Sprintf("failed to register phone_chars validation: %v", err))
	}

	return &ContactValidator{
		validate: v,
	}
}

func (v *ContactValidator) Validate(contact *model.Contact) error {
	return v.validateStruct(contact)
}

func (v *ContactValidator) ValidateBatchRequest(req *model.BatchFixRequest) error {
	return v.validateStruct(req)
}

func (v *ContactValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ContactValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	validationErrors := make(ValidationErrors, 0, len(errs))

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(err.Namespace()),
			Message: message(err),
		})
	}

	return validationErrors
}

// fieldPath drops the struct name from a namespace such as "Contact.phone_numbers[0].number".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", err.Param())
	case "max":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", err.Param())
		}
		return fmt.Sprintf("must be at most %s characters", err.Param())
	case "mongodb":
		return "must be a valid contact ID"
	case "phone_chars":
		return "must contain digits, optionally with spaces, hyphens, parentheses or a leading +"
	default:
		return fmt.Sprintf("failed on the %q rule", err.Tag())
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// validatePhoneChars accepts a number that contains at least one digit and
// otherwise only separators and a single leading plus.
func validatePhoneChars(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == '-' || r == '(' || r == ')' || r == '.' || unicode.IsSpace(r):
		default:
			return false
		}
	}
	return digits > 0
}
