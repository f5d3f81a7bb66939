// Package validation validates generation requests and configuration.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Every failure is reported as
// an INVALID_REQUEST errors.AppError listing the offending fields.
//
// # Struct Tag Validation
//
//	type request struct {
//	    Instruction string  `json:"instruction" validate:"notblank"`
//	    MaxTokens   int     `json:"max_tokens" validate:"gt=0"`
//	    Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`
//	}
//	err := validation.Validate(request{...})
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Range("count", count, 1, 50)
//	err := v.Validate()
package validation
