package shared

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pharmacy/backend/internal/domain/shared"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the request validator. It reads the same `binding` tags gin uses,
// and reports fields by their json names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.SetTagName("binding")
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// FieldViolation is one failed field rule
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidateRequest checks a request struct against its binding tags.
// Failures are returned as a validation DomainError listing every violation.
func ValidateRequest(req any) error {
	err := Validator().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.NewValidationError("INVALID_REQUEST", err.Error())
	}

	violations := make([]FieldViolation, 0, len(fieldErrs))
	names := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := trimRoot(fe.Namespace())
		violations = append(violations, FieldViolation{Field: field, Rule: fe.Tag(), Param: fe.Param()})
		names = append(names, field)
	}
	return shared.NewValidationError("INVALID_REQUEST", "Invalid fields: "+strings.Join(names, ", ")).
		WithDetail("violations", violations)
}

// trimRoot drops the struct type name validator puts first in a namespace
func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
