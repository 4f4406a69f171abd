package feedback

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/feedbackapp/internal/model"
)

// 入力の最大長（文字数）
const (
	MaxNameLength  = 100
	MaxEmailLength = 254
)

// trailingZeroFraction は"5.0"のような小数部がすべて0の表記を整数として扱うためのパターン。
var trailingZeroFraction = regexp.MustCompile(`\.0*\s*$`)

// ParseRatingValue は送信された評価値を整数に変換する。
// 前後の空白と、値が0だけの小数部（"4.0"）は許容する。
func ParseRatingValue(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = trailingZeroFraction.ReplaceAllString(s, "")
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// fields はバリデーション対象の正規化済み入力。
type fields struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,max=254,email"`
	Message string `json:"message" validate:"required"`
	Rating  string `json:"rating" validate:"required,integer,rating_choice"`
}

// newValidator はフィードバック入力用のvalidatorを生成する。
// エラーのフィールド名にはjsonタグの名前を使用する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// 登録は起動時のみで、タグ名の重複もないためエラーは発生しない
	_ = v.RegisterValidation("integer", func(fl validator.FieldLevel) bool {
		_, ok := ParseRatingValue(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("rating_choice", func(fl validator.FieldLevel) bool {
		r, ok := ParseRatingValue(fl.Field().String())
		return ok && model.IsValidRating(r)
	})

	return v
}

// validateFields は入力を検証し、フィールド別のエラーメッセージを返す。問題がなければnil。
func validateFields(v *validator.Validate, in fields) (map[string][]string, error) {
	err := v.Struct(in)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("failed to validate feedback: %w", err)
	}

	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], fieldErrorMessage(fe))
	}
	return out, nil
}

// fieldErrorMessage はタグ別のユーザー向けメッセージを返す。
func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "この項目は必須です。"
	case "max":
		return fmt.Sprintf("%s文字以下で入力してください。", fe.Param())
	case "email":
		return "有効なメールアドレスを入力してください。"
	case "integer":
		return "有効な整数を入力してください。"
	case "rating_choice":
		return fmt.Sprintf("「%v」は有効な選択肢ではありません。", strings.TrimSpace(fmt.Sprint(fe.Value())))
	default:
		return "入力値が不正です。"
	}
}
