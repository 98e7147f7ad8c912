package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Field errors are reported under the JSON name the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// Decimals validate as numbers so gt/gte tags work on amounts
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("apptype", func(fl validator.FieldLevel) bool {
		_, ok := types.ParseApplicationType(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return types.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("userstatus", func(fl validator.FieldLevel) bool {
		return types.UserStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("rechargetype", func(fl validator.FieldLevel) bool {
		switch types.RechargeType(fl.Field().String()) {
		case types.RechargeBkash, types.RechargeNagad, types.RechargeRocket, types.RechargeBank:
			return true
		}
		return false
	})

	// Money columns are NUMERIC(14,2): an amount with finer precision would be
	// stored rounded and differ from the amount actually moved
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(CreateRechargeInput)
		if !isCents(in.Amount) {
			sl.ReportError(in.Amount, "amount", "Amount", "cents", "")
		}
	}, CreateRechargeInput{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(AgentFeeInput)
		if in.FeePerApplication != nil && !isCents(*in.FeePerApplication) {
			sl.ReportError(*in.FeePerApplication, "feePerApplication", "FeePerApplication", "cents", "")
		}
	}, AgentFeeInput{})

	return v
}

// isCents reports whether d has no more than 2 significant decimal places
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// validateInput runs struct tag validation and converts failures into a
// VALIDATION_ERROR listing every offending field
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid input", nil)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeFieldError(fe)
	}
	return apperrors.NewValidationError("invalid input", fields)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must contain digits only"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "apptype":
		return "unknown application type"
	case "role":
		return "unknown role"
	case "userstatus":
		return "unknown status"
	case "rechargetype":
		return "unknown recharge type"
	case "cents":
		return "must have at most 2 decimal places"
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// isValidEmail is used where addresses arrive outside a struct
func isValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}
