package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/tutorhub/class-engine/internal/model"
)

// trans is the singleton English translator for validation errors.
var trans = newTranslator()

var (
	structOnce sync.Once
	structV    *govalidator.Validate
)

func newTranslator() ut.Translator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	t, _ := uni.GetTranslator("en")
	return t
}

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		configure(v)
	}
}

// configure installs the JSON field names, the custom tags and the English
// translations on v.
func configure(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("hhmm", validateHHMM)
	_ = v.RegisterValidation("weekday", validateWeekday)

	// Register English translations.
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	registerMessage(v, "hhmm", "{0} must be a time in HH:MM format")
	registerMessage(v, "weekday", "{0} must be a weekday between 0 (Sunday) and 6 (Saturday)")
}

func registerMessage(v *govalidator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, text, true) },
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

func validateHHMM(fl govalidator.FieldLevel) bool {
	_, err := model.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func validateWeekday(fl govalidator.FieldLevel) bool {
	d := fl.Field().Int()
	return d >= 0 && d <= 6
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Struct validates v against its `validate` tags, outside any request.
// Returns nil on success or a translated field error map on failure.
func Struct(v interface{}) map[string]string {
	structOnce.Do(func() {
		structV = govalidator.New(govalidator.WithRequiredStructEnabled())
		configure(structV)
	})
	if err := structV.Struct(v); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
