package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/gradebook/internal/model"
)

var (
	// trans is the singleton English translator for validation errors.
	trans ut.Translator

	// validate is Gin's binding engine, shared by Bind and Struct so the
	// translations are registered exactly once.
	validate  *govalidator.Validate
	setupOnce sync.Once
	setupErr  error
)

// Setup registers English translations and JSON field names on Gin's binding
// engine. Safe to call more than once; only the first call configures.
func Setup() error {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			v = govalidator.New()
			v.SetTagName("binding")
		}
		if err := configure(v); err != nil {
			setupErr = fmt.Errorf("register validation translations: %w", err)
			return
		}
		validate = v
	})
	return setupErr
}

func configure(v *govalidator.Validate) error {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	t, found := uni.GetTranslator("en")
	if !found {
		return errors.New("english translator not found")
	}
	if err := en_translations.RegisterDefaultTranslations(v, t); err != nil {
		return err
	}
	trans = t
	return nil
}

func engine() (*govalidator.Validate, error) {
	if err := Setup(); err != nil {
		return nil, err
	}
	return validate, nil
}

// Struct validates v's `binding` tags. Failures wrap model.ErrValidation and
// carry the translated messages.
func Struct(v any) error {
	e, err := engine()
	if err != nil {
		return err
	}
	if err := e.Struct(v); err != nil {
		fields := TranslateErrors(err)
		msgs := make([]string, 0, len(fields))
		for _, m := range fields {
			msgs = append(msgs, m)
		}
		return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), model.ErrValidation)
	}
	return nil
}

// DetailKey holds the message for errors that are not field validation
// failures, such as malformed JSON.
const DetailKey = "detail"

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with DetailKey.
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans == nil {
				fields[fe.Field()] = fe.Error()
				continue
			}
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields[DetailKey] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
