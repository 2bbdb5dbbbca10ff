// Package validation はフォーム入力の構造体タグによる検証を提供する。
// 連絡先の各項目は自由形式のため、DBカラム長を超えないことだけを検証する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/contactman/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// エラーにはGoのフィールド名ではなくフォームのname属性を使う
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// bcryptは72バイトを超える入力を扱えないため、文字数ではなくバイト数で制限する
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(fmt.Sprintf("failed to register maxbytes validation: %v", err))
	}

	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Struct は構造体タグに従って入力を検証する。
// 最初に違反したフィールドをINVALID_INPUTのAppErrorとして返す。
func Struct(obj any) error {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return model.NewInvalidInputError(fieldErrs[0].Field())
	}
	return fmt.Errorf("failed to validate input: %w", err)
}
