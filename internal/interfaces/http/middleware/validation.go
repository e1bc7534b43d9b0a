package middleware

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	appshared "github.com/pharmacy/backend/internal/application/shared"
)

// requestValidator makes gin's binding report failures the same way the
// application services do, as one INVALID_REQUEST domain error listing every field.
type requestValidator struct{}

// ValidateStruct implements binding.StructValidator
func (requestValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return appshared.ValidateRequest(obj)
}

// Engine implements binding.StructValidator
func (requestValidator) Engine() any {
	return appshared.Validator()
}

// SetupValidator installs the shared request validator into gin's binding
func SetupValidator() {
	binding.Validator = requestValidator{}
}
