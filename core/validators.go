package core

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	dateTag  = "date"
	dateText = "must be a date formatted as YYYY-MM-DD"

	clockTag  = "clock"
	clockText = "must be a time formatted as HH:MM"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewValidator returns a validator and its english translator, ready for use.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(dateTag, dateValidation)
	RegisterCustomTranslation(validate, translator, dateTag, dateText)

	_ = validate.RegisterValidation(clockTag, clockValidation)
	RegisterCustomTranslation(validate, translator, clockTag, clockText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// FieldErrors flattens validation errors into a {field: message} map.
// ok is false if err is not a validation error.
func FieldErrors(err error, translator ut.Translator) (fldErrs map[string]string, ok bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fldErrs = make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return fldErrs, true
	case *ValidationError:
		fldErrs = make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
		return fldErrs, true
	}
	return nil, false
}

// Custom Global Validators

// dateValidation only allows DateLayout dates.
func dateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

// clockValidation only allows ClockLayout times.
func clockValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(ClockLayout, fl.Field().String())
	return err == nil
}
