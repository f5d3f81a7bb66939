package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/quizgen/errors"
)

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
})

// tagName names a field after its json tag, then its mapstructure tag, then
// its snake-cased Go name. Embedded structs keep their Go name so fieldPath
// can drop them.
func tagName(fld reflect.StructField) string {
	if fld.Anonymous {
		return ""
	}
	for _, key := range []string{"json", "mapstructure"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return toSnakeCase(fld.Name)
}

// Validate checks s against its `validate` tags. Failures come back as one
// INVALID_REQUEST error whose message lists "path: problem" pairs, e.g.
// "llm.local.endpoint: must be a valid URL", with the same pairs under the
// "fields" detail.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fails validator.ValidationErrors
	if !stderrors.As(err, &fails) {
		return errors.InvalidRequest("", "validation failed").WithCause(err)
	}

	v := New()
	for _, fe := range fails {
		v.AddError(fieldPath(fe), describe(fe))
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// fieldPath turns a namespace such as AppConfig.ServiceConfig.logging.level
// into logging.level. Go-named segments (the root type and embedded structs)
// are dropped.
func fieldPath(fe validator.FieldError) string {
	segs := strings.Split(fe.Namespace(), ".")
	out := segs[:0]
	for _, s := range segs {
		if s == "" || unicode.IsUpper(rune(s[0])) {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return fe.Field()
	}
	return strings.Join(out, ".")
}

func describe(fe validator.FieldError) string {
	p := fe.Param()
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "required_if":
		return "is required when " + strings.Replace(p, " ", " is ", 1)
	case "min", "gte":
		return "must be at least " + p
	case "max", "lte":
		return "must be at most " + p
	case "gt":
		return "must be greater than " + p
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + p
	default:
		return "failed " + fe.Tag()
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
