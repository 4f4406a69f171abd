package web

import "github.com/hitoshi/feedbackapp/internal/model"

// ListView は一覧画面の表示データ。
type ListView struct {
	Title string
	Page  *model.FeedbackPage

	// 絞り込みフォームに再表示する現在の条件
	Name          string
	Rating        string
	RatingOptions []Option

	// ページ送りのリンク。該当ページがない場合は空文字
	FirstURL    string
	PreviousURL string
	NextURL     string
	LastURL     string
}

// DetailView は詳細画面の表示データ。
type DetailView struct {
	Title    string
	Feedback *model.Feedback
}

// FormView は登録・更新フォーム画面の表示データ。
type FormView struct {
	Title       string
	Action      string
	SubmitLabel string
	CancelURL   string
	CSRFField   string
	CSRFToken   string
	Fields      []FormField
	HasErrors   bool
}

// ConfirmDeleteView は削除確認画面の表示データ。
type ConfirmDeleteView struct {
	Title     string
	Feedback  *model.Feedback
	Action    string
	CSRFField string
	CSRFToken string
}

// 入力部品の種類
const (
	InputText     = "text"
	InputEmail    = "email"
	InputTextarea = "textarea"
	InputSelect   = "select"
)

// FormField はフォームの1項目を表す。
type FormField struct {
	Name      string
	Label     string
	Input     string
	Value     string
	Required  bool
	MaxLength int
	Options   []Option
	Errors    []string
}

// Option は選択肢の1つを表す。
type Option struct {
	Value    string
	Label    string
	Selected bool
}
