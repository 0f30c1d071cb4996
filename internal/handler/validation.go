package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/tenki/internal/model"
)

// validate はリクエスト構造体の検証器。フィールド名にはjsonタグ名を使う。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateRequest は構造体を検証し、違反があればVALIDATION_FAILEDのAPIErrorを返す。
func validateRequest(req any) *model.APIError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewValidationError(map[string][]string{"_": {err.Error()}})
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], validationMessage(fe))
	}
	return model.NewValidationError(fields)
}

// validationMessage は検証タグごとのメッセージを返す。
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("may not be greater than %s characters", fe.Param())
	case "eqfield":
		return "confirmation does not match"
	case "dive":
		return "is invalid"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

// fieldError は単一フィールドの検証エラーを生成する。
func fieldError(field, message string) *model.APIError {
	return model.NewValidationError(map[string][]string{field: {message}})
}
