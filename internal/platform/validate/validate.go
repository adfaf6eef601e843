package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
)

// TagName is shared with gin's binding so one set of struct tags drives both
// request binding and service-level checks.
const TagName = "binding"

const notBlankTag = "notblank"

var (
	once   sync.Once
	engine *validator.Validate
)

// Engine returns the process-wide validator.
func Engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.SetTagName(TagName)

		// Report JSON names instead of Go field names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation(notBlankTag, notBlank)
		engine = v
	})
	return engine
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

// Struct checks s against its binding tags. The first failing field becomes a
// 400 apierr.
func Struct(s any) error {
	return FromError(Engine().Struct(s))
}

// Field checks a single named value, e.g. Field("role", role, "oneof=admin user").
func Field(name string, value any, tag string) error {
	err := Engine().Var(value, tag)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return invalid(name, verrs[0].Tag())
	}
	return err
}

// FromError maps validator.ValidationErrors to an apierr; other errors pass through.
func FromError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return invalid(fieldName(fe.Field()), fe.Tag())
}

// invalid builds the error code: "<name>_required" for missing values,
// "invalid_<name>" for everything else. A trailing _id is dropped from
// required names, so main_id reports main_required.
func invalid(name, tag string) error {
	switch tag {
	case "required", notBlankTag:
		return apierr.Invalid(strings.TrimSuffix(name, "_id")+"_required", "%s is required", name)
	default:
		return apierr.Invalid("invalid_"+name, "%s failed %q validation", name, tag)
	}
}

// fieldName strips slice indexes: images[2] reports as images.
func fieldName(f string) string {
	if i := strings.IndexByte(f, '['); i >= 0 {
		return f[:i]
	}
	return f
}

// GinValidator plugs the shared engine into gin's binding package.
type GinValidator struct{}

func (GinValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return Engine().Struct(obj)
}

func (GinValidator) Engine() any { return Engine() }
