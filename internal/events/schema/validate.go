package schema

import (
	"github.com/go-playground/validator/v10"

	"github.com/parkwise/service-reservation/internal/domain/resource"
)

// NewValidator returns a validator that also understands the "hhmm" tag
// for "HH:MM" wall-clock times ("24:00" included).
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := resource.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}
