package model

import (
	"fmt"
	"sort"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string              // エラーコード
	Message  string              // エラーメッセージ
	Category string              // カテゴリ: validation, feedback, system
	Action   string              // ユーザー向け対処方法
	Fields   map[string][]string // フィールド別のエラー（バリデーションエラー時のみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, strings.Join(names, ", "))
}

// 定義済みエラーコード
const (
	ErrCodeFeedbackNotFound  = "FEEDBACK_NOT_FOUND"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidPage       = "INVALID_PAGE"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewFeedbackNotFoundError はフィードバック未検出エラーを生成する。
func NewFeedbackNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedbackNotFound,
		Message:  fmt.Sprintf("指定されたフィードバックが見つかりません: %s", id),
		Category: "feedback",
		Action:   "フィードバックIDを確認してください。",
	}
}

// NewValidationError はフィールド別のバリデーションエラーを生成する。
func NewValidationError(fields map[string][]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各項目のエラーを確認して再度送信してください。",
		Fields:   fields,
	}
}

// NewInvalidPageError は無効なページ番号のエラーを生成する。
func NewInvalidPageError(page string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPage,
		Message:  fmt.Sprintf("無効なページです: %s", page),
		Category: "validation",
		Action:   "1から最終ページまでのページ番号を指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
