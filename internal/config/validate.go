package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teemow/calsheet/internal/scheduler"
)

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validate is a shared validator instance
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report yaml keys instead of Go field names.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("account_name", validateAccountName); err != nil {
		panic(fmt.Sprintf("failed to register account_name validator: %v", err))
	}
	if err := validate.RegisterValidation("cron_spec", validateCronSpec); err != nil {
		panic(fmt.Sprintf("failed to register cron_spec validator: %v", err))
	}
}

func validateAccountName(fl validator.FieldLevel) bool {
	return accountNamePattern.MatchString(fl.Field().String())
}

func validateCronSpec(fl validator.FieldLevel) bool {
	return scheduler.Validate(fl.Field().String()) == nil
}

// Validate checks the configuration and reports every invalid field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// describe renders one field error as "path: reason".
func describe(fe validator.FieldError) string {
	// Namespace is "Config.metrics.addr"; drop the struct name.
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "numeric":
		return fmt.Sprintf("%s: %q is not a numeric color id", field, fe.Value())
	case "nefield":
		return field + ": must differ from complete_color"
	case "gte":
		return fmt.Sprintf("%s: must be at least %s", field, fe.Param())
	case "account_name":
		return fmt.Sprintf("%s: %q may only contain letters, digits, '-' and '_'", field, fe.Value())
	case "cron_spec":
		return fmt.Sprintf("%s: %q is not a valid cron schedule", field, fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s: %q is not a host:port address", field, fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}
