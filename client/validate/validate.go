// Package validate checks outgoing query parameters and bodies before
// any network activity. Rejections are returned as validation-kind
// [apierr.Error] values wrapping [FieldErrors].
package validate

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/adamwoolhether/apiclient/client/apierr"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("validate: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Limits bounds the size of outgoing values.
type Limits struct {
	MaxStringLength int
	MaxItems        int
	MaxKeys         int
	MaxDepth        int
}

// DefaultLimits are applied by the package-level [Query] and [Body].
var DefaultLimits = Limits{
	MaxStringLength: 100_000,
	MaxItems:        1_000,
	MaxKeys:         500,
	MaxDepth:        32,
}

// Query validates query parameters using [DefaultLimits].
func Query(q map[string]any) error {
	return DefaultLimits.Query(q)
}

// Body validates a request payload using [DefaultLimits].
func Body(v any) error {
	return DefaultLimits.Body(v)
}

// Query accepts scalar values and flat lists of scalars.
func (l Limits) Query(q map[string]any) error {
	var fields FieldErrors
	if len(q) > l.MaxKeys {
		fields.add("query", fmt.Sprintf("must have at most %d parameters", l.MaxKeys))
	}

	for k, v := range q {
		path := "query." + k
		if strings.TrimSpace(k) == "" {
			fields.add("query", "parameter names must not be empty")
			continue
		}

		rv := indirect(reflect.ValueOf(v))
		if !rv.IsValid() {
			continue
		}

		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			l.checkSize(path, rv, &fields)
			for i := range rv.Len() {
				elem := indirect(rv.Index(i))
				if !isScalar(elem) {
					fields.add(fmt.Sprintf("%s[%d]", path, i), "list values must be scalars")
					continue
				}
				l.checkScalar(fmt.Sprintf("%s[%d]", path, i), elem, &fields)
			}
		default:
			if !isScalar(rv) {
				fields.add(path, fmt.Sprintf("unsupported type %s", rv.Type()))
				continue
			}
			l.checkScalar(path, rv, &fields)
		}
	}

	return fields.asError("invalid query parameters")
}

// Body accepts JSON-encodable values. Structs are additionally checked
// against their `validate` tags.
func (l Limits) Body(v any) error {
	var fields FieldErrors

	rv := indirect(reflect.ValueOf(v))
	if rv.IsValid() && rv.Kind() == reflect.Struct {
		if err := validate.Struct(rv.Interface()); err != nil {
			verrors, ok := err.(validator.ValidationErrors)
			if !ok {
				return apierr.NewValidation("invalid request body", err)
			}
			for _, verror := range verrors {
				fields.add("body."+verror.Namespace(), customErrForTag(verror.Tag(), verror))
			}
		}
	}

	l.walk("body", rv, 0, &fields)

	return fields.asError("invalid request body")
}

func (l Limits) walk(path string, rv reflect.Value, depth int, fields *FieldErrors) {
	rv = indirect(rv)
	if !rv.IsValid() {
		return
	}

	if depth > l.MaxDepth {
		fields.add(path, fmt.Sprintf("must be nested at most %d levels deep", l.MaxDepth))
		return
	}

	if isScalar(rv) {
		l.checkScalar(path, rv, fields)
		return
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		l.checkSize(path, rv, fields)
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return
		}
		for i := range rv.Len() {
			l.walk(fmt.Sprintf("%s[%d]", path, i), rv.Index(i), depth+1, fields)
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			fields.add(path, fmt.Sprintf("map keys must be strings, got %s", rv.Type().Key()))
			return
		}
		l.checkSize(path, rv, fields)
		iter := rv.MapRange()
		for iter.Next() {
			l.walk(path+"."+iter.Key().String(), iter.Value(), depth+1, fields)
		}
	case reflect.Struct:
		t := rv.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			l.walk(path+"."+name, rv.Field(i), depth+1, fields)
		}
	default:
		fields.add(path, fmt.Sprintf("unsupported type %s", rv.Type()))
	}
}

// checkSize enforces MaxItems on lists and MaxKeys on objects.
func (l Limits) checkSize(path string, rv reflect.Value, fields *FieldErrors) {
	limit := l.MaxItems
	if rv.Kind() == reflect.Map {
		limit = l.MaxKeys
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		limit = l.MaxStringLength
	}

	if rv.Kind() == reflect.Array {
		if rv.Len() > limit {
			fields.add(path, fmt.Sprintf("must contain at most %d items", limit))
		}
		return
	}

	if err := validate.Var(rv.Interface(), fmt.Sprintf("max=%d", limit)); err != nil {
		fields.addValidation(path, err)
	}
}

func (l Limits) checkScalar(path string, rv reflect.Value, fields *FieldErrors) {
	switch rv.Kind() {
	case reflect.String:
		if err := validate.Var(rv.String(), fmt.Sprintf("max=%d", l.MaxStringLength)); err != nil {
			fields.addValidation(path, err)
		}
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			fields.add(path, "must be a finite number")
		}
	}
}

func isScalar(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "This field is required"
	default:
		return verror.Translate(translator)
	}
}
