package handlers

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

// Validator checks request payloads. Besides the built-in tags it knows
// "date" (YYYY-MM-DD) and "slot" (one of the configured booking times).
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator bound to the spa's slot schedule
func NewValidator(schedule *entities.SlotSchedule) *Validator {
	v := validator.New()

	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := time.Parse(entities.DateLayout, value)
		return err == nil
	})

	v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return schedule != nil && schedule.Contains(value)
	})

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Struct validates s and returns a user-facing message, or "" when valid
func (v *Validator) Struct(s interface{}) string {
	err := v.v.Struct(s)
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid request payload"
	}
	return describe(validationDetails(errs))
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[err.Field()] = err.Tag()
	}
	return details
}

func describe(details map[string]string) string {
	fields := make([]string, 0, len(details))
	for field := range details {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		switch details[field] {
		case "required":
			parts[i] = field + " es requerido"
		case "date":
			parts[i] = field + " debe tener el formato AAAA-MM-DD"
		case "slot":
			parts[i] = field + " no es un horario disponible"
		default:
			parts[i] = field + " no es válido"
		}
	}
	return strings.Join(parts, "; ")
}
