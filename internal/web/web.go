// Package web はHTML画面のテンプレートと静的ファイルを提供する。
// テンプレートと静的ファイルはバイナリに埋め込む。
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/hitoshi/feedbackapp/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// 画面テンプレート名
const (
	PageList          = "list"
	PageDetail        = "detail"
	PageForm          = "form"
	PageConfirmDelete = "confirm_delete"
)

var pages = []string{PageList, PageDetail, PageForm, PageConfirmDelete}

// displayTimeFormat は画面に表示する日時の書式。
const displayTimeFormat = "2006-01-02 15:04"

var funcs = template.FuncMap{
	"formatTime":  func(t time.Time) string { return t.UTC().Format(displayTimeFormat) },
	"ratingLabel": RatingLabel,
}

// Renderer は画面ごとに base.html と組み合わせて解析済みのテンプレートを保持する。
// 起動時に一度だけ解析し、以降は並行に利用できる。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートを解析してRendererを生成する。
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/base.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render は指定画面をレンダリングしてwに書き込む。
// 途中で失敗した場合に不完全なHTMLを送信しないよう、バッファに描画してから書き込む。
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page template: %s", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler は /static/ 配下の静的ファイルを配信するハンドラーを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// 埋め込みディレクトリは存在が保証されている
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// RatingLabel は評価値の表示ラベルを返す。選択肢にない値は数値をそのまま返す。
func RatingLabel(rating int) string {
	for _, c := range model.RatingChoices {
		if c.Value == rating {
			return c.Label
		}
	}
	return fmt.Sprint(rating)
}
