// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizer はフォームやAPIから送信されたテキストからHTMLマークアップを除去する。
// bluemondayのStrictPolicyを使用し、タグと属性をすべて取り除いたプレーンテキストのみを保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizer はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
type InputSanitizer interface {
	// Sanitize はテキストからHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// script、styleなどの要素は内容ごと除去される。
	// 文字実体参照はデコードされる（"&amp;" → "&"）。出力時のエスケープはテンプレートとJSONエンコーダが行う。
	// デコードで現れたマークアップも除去するため、出力を再度Sanitizeしても変化しない。
	Sanitize(raw string) string
}

// inputSanitizer はInputSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなため、1インスタンスを共有する。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerの新しいインスタンスを生成する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses は"&amp;lt;b&amp;gt;"のような多重エスケープを剥がす回数の上限。
const maxSanitizePasses = 8

// Sanitize はテキストからHTMLマークアップを除去する。
// 実体参照のデコードで新たなタグが現れなくなるまで繰り返す。
func (s *inputSanitizer) Sanitize(raw string) string {
	text := raw
	for i := 0; i < maxSanitizePasses && text != ""; i++ {
		// bluemondayは出力をHTMLエスケープするため、平文に戻す
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
		if next == text {
			break
		}
		text = next
	}
	return text
}
