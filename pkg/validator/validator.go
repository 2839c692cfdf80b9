package validator

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/milan604/hr-console/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	gvalidator "github.com/go-playground/validator/v10"
)

// FieldError represents a single field validation problem.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Tag     string      `json:"tag,omitempty"`
	Param   string      `json:"param,omitempty"`
	Value   interface{} `json:"value,omitempty"`
}

// TagErrorBuilder describes how to convert a validator.FieldError into a message
type TagErrorBuilder struct {
	Code    *apperr.ErrorCode
	Builder func(fe gvalidator.FieldError) string
}

// Validator is the wrapper around go-playground validator with extra features.
type Validator struct {
	v                *gvalidator.Validate
	tagErrorBuilders map[string]TagErrorBuilder
	fieldNameFn      func(reflect.StructField) string
}

// ValidatorEngine defines the interface for validation engines
// This allows for custom implementations and easier testing
// Example methods: RegisterValidation, RegisterTagError, ParseError, etc.
type ValidatorEngine interface {
	RegisterValidation(tag string, fn gvalidator.Func) error
	RegisterTagError(tag string, code *apperr.ErrorCode, builder func(gvalidator.FieldError) string)
	ParseError(err error) *apperr.AppError
}

// New creates a Validator sharing gin's binding engine, so tags registered
// here also apply to ShouldBind*. The "rolename" tag is registered by default.
func New() *Validator {
	v, ok := binding.Validator.Engine().(*gvalidator.Validate)
	if !ok {
		v = gvalidator.New()
	}

	fieldNameFn := func(f reflect.StructField) string {
		if name := getTagName(f, "json"); name != "" {
			return name
		}
		if name := getTagName(f, "form"); name != "" {
			return name
		}
		if name := getTagName(f, "uri"); name != "" {
			return name
		}
		return f.Name
	}
	v.RegisterTagNameFunc(fieldNameFn)

	vi := &Validator{
		v:                v,
		tagErrorBuilders: make(map[string]TagErrorBuilder),
		fieldNameFn:      fieldNameFn,
	}
	_ = vi.RegisterValidation("rolename", validRoleName)
	vi.RegisterTagError("rolename", apperr.ErrorCodeValidationFail, func(fe gvalidator.FieldError) string {
		return fmt.Sprintf("%s must be lowercase letters, digits and dashes", fe.Field())
	})
	return vi
}

var roleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,63}$`)

func validRoleName(fl gvalidator.FieldLevel) bool {
	return roleNamePattern.MatchString(fl.Field().String())
}

// Struct validates a value outside of gin binding.
func (vi *Validator) Struct(v interface{}) *apperr.AppError {
	if err := vi.v.Struct(v); err != nil {
		return vi.ParseError(err)
	}
	return nil
}

// helper to get tag name
func getTagName(f reflect.StructField, tagName string) string {
	tagValue := f.Tag.Get(tagName)
	if tagValue == "-" {
		return ""
	}
	return strings.SplitN(tagValue, ",", 2)[0]
}

// RegisterValidation registers a custom validator (name) to the engine.
func (vi *Validator) RegisterValidation(tag string, fn gvalidator.Func) error {
	return vi.v.RegisterValidation(tag, fn)
}

// RegisterTagError allows mapping tag -> ErrorCode + message builder.
func (vi *Validator) RegisterTagError(tag string, code *apperr.ErrorCode, builder func(gvalidator.FieldError) string) {
	vi.tagErrorBuilders[tag] = TagErrorBuilder{Code: code, Builder: builder}
}

// ParseError converts any binding/validator/json error into *apperr.AppError
func (vi *Validator) ParseError(err error) *apperr.AppError {
	if err == nil {
		return nil
	}

	// validator errors
	switch e := err.(type) {
	case gvalidator.ValidationErrors:
		appErr := apperr.New(apperr.ErrorCodeValidationFail)
		for _, fe := range e {
			field := fe.Field() // thanks to registered TagNameFunc this will be the json/form name
			msg := vi.buildMessageForField(fe)
			appErr.AddSuggestion(field, msg)
		}
		return appErr

	case *json.UnmarshalTypeError:
		appErr := apperr.New(apperr.ErrorCodeInvalidRequest)
		f := e.Field
		if f == "" {
			// best-effort: sometimes field is empty for top-level decode errors
			appErr.Message = "Invalid request body"
			return appErr
		}
		msg := fmt.Sprintf("Invalid type for field %s: expected %s", f, e.Type.String())
		appErr.AddSuggestion(f, msg)
		return appErr

	case *json.SyntaxError:
		appErr := apperr.New(apperr.ErrorCodeInvalidRequest)
		appErr.Message = "Invalid JSON payload"
		return appErr

	case *time.ParseError:
		appErr := apperr.New(apperr.ErrorCodeInvalidInput)
		appErr.Message = "Invalid datetime format"
		return appErr

	default:
		// generic error -> return InvalidInput but keep underlying message in server logs
		appErr := apperr.New(apperr.ErrorCodeInvalidInput)
		appErr.Message = fmt.Sprintf("Invalid input: %v", err.Error())
		return appErr
	}
}

// buildMessageForField uses registered tag builders or defaults
func (vi *Validator) buildMessageForField(fe gvalidator.FieldError) string {
	if b, ok := vi.tagErrorBuilders[fe.Tag()]; ok && b.Builder != nil {
		return b.Builder(fe)
	}
	// default message
	if fe.Param() != "" {
		return fmt.Sprintf("field %s failed on '%s' validation (param=%s)", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("field %s failed on '%s' validation", fe.Field(), fe.Tag())
}

/* ------------------------------
   Binding helpers (Gin friendly)
--------------------------------*/

// BindJSON binds and validates JSON body into T. Returns either (*T, nil) or (nil, *apperr.AppError)
func BindJSON[T any](vi ValidatorEngine, ctx *gin.Context) (*T, *apperr.AppError) {
	var req T
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, vi.ParseError(err)
	}
	return &req, nil
}

// BindQuery binds & validates query parameters
func BindQuery[T any](vi ValidatorEngine, ctx *gin.Context) (*T, *apperr.AppError) {
	var req T
	if err := ctx.ShouldBindQuery(&req); err != nil {
		return nil, vi.ParseError(err)
	}
	return &req, nil
}

// BindURI binds & validates uri params
func BindURI[T any](vi ValidatorEngine, ctx *gin.Context) (*T, *apperr.AppError) {
	var req T
	if err := ctx.ShouldBindUri(&req); err != nil {
		return nil, vi.ParseError(err)
	}
	return &req, nil
}

// BindJSONAndURI binds and validates both JSON body and URI params
func BindJSONAndURI[Body any, URI any](vi ValidatorEngine, ctx *gin.Context) (*Body, *URI, *apperr.AppError) {
	uri, ue := BindURI[URI](vi, ctx)
	if ue != nil {
		return nil, uri, ue
	}
	body, be := BindJSON[Body](vi, ctx)
	if be != nil {
		return body, uri, be
	}
	return body, uri, nil
}
