package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedbackapp/internal/feedback"
	"github.com/hitoshi/feedbackapp/internal/middleware"
	"github.com/hitoshi/feedbackapp/internal/model"
	"github.com/hitoshi/feedbackapp/internal/web"
)

// PageRenderer はHTML画面の描画インターフェース。*web.Renderer が満たす。
type PageRenderer interface {
	Render(w io.Writer, page string, data any) error
}

var _ PageRenderer = (*web.Renderer)(nil)

// listPath は一覧画面のパス。HTMLでの変更操作が成功した後のリダイレクト先。
const listPath = "/"

// HTMLHandler はフィードバック管理画面のHTTPハンドラー。
type HTMLHandler struct {
	service  FeedbackServiceInterface
	renderer PageRenderer
}

// NewHTMLHandler はHTMLHandlerを生成する。
func NewHTMLHandler(service FeedbackServiceInterface, renderer PageRenderer) *HTMLHandler {
	return &HTMLHandler{
		service:  service,
		renderer: renderer,
	}
}

// List は絞り込みフォーム付きのフィードバック一覧を表示する。
// GET /?name=&rating=&ordering=&page=
func (h *HTMLHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := h.service.List(r.Context(), feedback.ListFilterFromQuery(q), q.Get(feedback.ParamPage))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	view := web.ListView{
		Title:         "フィードバック一覧",
		Page:          page,
		Name:          q.Get(feedback.ParamName),
		Rating:        q.Get(feedback.ParamRating),
		RatingOptions: ratingOptions(q.Get(feedback.ParamRating)),
	}
	if page.HasPrevious() {
		view.FirstURL = pageLink(r.URL.Path, q, 1)
		view.PreviousURL = pageLink(r.URL.Path, q, page.PreviousNumber())
	}
	if page.HasNext() {
		view.NextURL = pageLink(r.URL.Path, q, page.NextNumber())
		view.LastURL = pageLink(r.URL.Path, q, page.NumPages)
	}

	h.render(w, r, http.StatusOK, web.PageList, view)
}

// Detail はフィードバック詳細を表示する。
// GET /feedback/{id}/
func (h *HTMLHandler) Detail(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, web.PageDetail, web.DetailView{
		Title:    "フィードバック詳細",
		Feedback: f,
	})
}

// CreateForm は新規登録フォームを表示する。
// GET /feedback/create/
func (h *HTMLHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, createForm(), feedback.Input{}, nil)
}

// Create は新規登録フォームの送信を処理する。
// 検証エラーの場合は入力値とエラーを添えてフォームを再表示する。
// POST /feedback/create/
func (h *HTMLHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := inputFromForm(r)

	if _, err := h.service.Create(r.Context(), in); err != nil {
		h.handleFormError(w, r, createForm(), in, err)
		return
	}

	http.Redirect(w, r, listPath, http.StatusFound)
}

// UpdateForm は既存の値を初期値とした編集フォームを表示する。
// GET /feedback/{id}/update/
func (h *HTMLHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.renderForm(w, r, updateForm(f.ID), feedback.InputFromFeedback(f), nil)
}

// Update は編集フォームの送信を処理する。
// POST /feedback/{id}/update/
func (h *HTMLHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in := inputFromForm(r)

	f, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.handleFormError(w, r, updateFormForRawID(id), in, err)
		return
	}

	slog.Debug("feedback updated", slog.Int64("feedback_id", f.ID))
	http.Redirect(w, r, listPath, http.StatusFound)
}

// ConfirmDelete は削除確認画面を表示する。
// GET /feedback/{id}/delete/
func (h *HTMLHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, web.PageConfirmDelete, web.ConfirmDeleteView{
		Title:     "フィードバックの削除",
		Feedback:  f,
		Action:    feedbackPath(f.ID) + "delete/",
		CSRFField: middleware.CSRFFormField,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	})
}

// Delete は削除確認画面の送信を処理する。
// POST /feedback/{id}/delete/
func (h *HTMLHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, listPath, http.StatusFound)
}

// --- フォーム ---

// formSpec は登録・編集フォームの画面ごとの違いを表す。
type formSpec struct {
	title       string
	action      string
	submitLabel string
	cancelURL   string
}

func createForm() formSpec {
	return formSpec{
		title:       "フィードバックの登録",
		action:      "/feedback/create/",
		submitLabel: "送信",
		cancelURL:   listPath,
	}
}

func updateForm(id int64) formSpec {
	return updateFormForRawID(strconv.FormatInt(id, 10))
}

func updateFormForRawID(id string) formSpec {
	return formSpec{
		title:       "フィードバックの編集",
		action:      "/feedback/" + id + "/update/",
		submitLabel: "更新",
		cancelURL:   "/feedback/" + id + "/",
	}
}

// handleFormError はバリデーションエラーならフォームを再表示し、それ以外は通常のエラー処理を行う。
func (h *HTMLHandler) handleFormError(w http.ResponseWriter, r *http.Request, spec formSpec, in feedback.Input, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeValidation {
		h.renderForm(w, r, spec, in, apiErr.Fields)
		return
	}
	h.handleError(w, r, err)
}

func (h *HTMLHandler) renderForm(w http.ResponseWriter, r *http.Request, spec formSpec, in feedback.Input, fieldErrs map[string][]string) {
	h.render(w, r, http.StatusOK, web.PageForm, web.FormView{
		Title:       spec.title,
		Action:      spec.action,
		SubmitLabel: spec.submitLabel,
		CancelURL:   spec.cancelURL,
		CSRFField:   middleware.CSRFFormField,
		CSRFToken:   middleware.CSRFTokenFromContext(r.Context()),
		Fields:      formFields(in, fieldErrs),
		HasErrors:   len(fieldErrs) > 0,
	})
}

// formFields はフォームの入力項目を組み立てる。
func formFields(in feedback.Input, fieldErrs map[string][]string) []web.FormField {
	return []web.FormField{
		{
			Name: "name", Label: "名前", Input: web.InputText, Value: in.Name,
			Required: true, MaxLength: feedback.MaxNameLength, Errors: fieldErrs["name"],
		},
		{
			Name: "email", Label: "メールアドレス", Input: web.InputEmail, Value: in.Email,
			Required: true, MaxLength: feedback.MaxEmailLength, Errors: fieldErrs["email"],
		},
		{
			Name: "message", Label: "メッセージ", Input: web.InputTextarea, Value: in.Message,
			Required: true, Errors: fieldErrs["message"],
		},
		{
			Name: "rating", Label: "評価", Input: web.InputSelect, Value: in.Rating,
			Required: true, Options: ratingOptions(in.Rating), Errors: fieldErrs["rating"],
		},
	}
}

// ratingOptions は評価値の選択肢を返す。selectedと一致する選択肢を選択状態にする。
func ratingOptions(selected string) []web.Option {
	current, ok := feedback.ParseRatingValue(selected)
	opts := make([]web.Option, 0, len(model.RatingChoices))
	for _, c := range model.RatingChoices {
		opts = append(opts, web.Option{
			Value:    strconv.Itoa(c.Value),
			Label:    c.Label,
			Selected: ok && c.Value == current,
		})
	}
	return opts
}

// inputFromForm は送信されたフォームの値を入力に変換する。
func inputFromForm(r *http.Request) feedback.Input {
	// CSRFミドルウェアで解析済みの場合もあるが、ParseFormは冪等
	_ = r.ParseForm()
	return feedback.Input{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Message: r.PostForm.Get("message"),
		Rating:  r.PostForm.Get("rating"),
	}
}

// --- ヘルパー関数 ---

// pageLink はpage以外のクエリパラメータを保ったまま、指定ページへのリンクを返す。
func pageLink(path string, q url.Values, page int) string {
	next := make(url.Values, len(q))
	for k, v := range q {
		if k != feedback.ParamPage {
			next[k] = v
		}
	}
	next.Set(feedback.ParamPage, strconv.Itoa(page))
	return path + "?" + next.Encode()
}

func feedbackPath(id int64) string {
	return "/feedback/" + strconv.FormatInt(id, 10) + "/"
}

func (h *HTMLHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page, data); err != nil {
		logInternalError(r, err)
		http.Error(w, model.NewInternalError().Message, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// handleError はサービス層のエラーをテキストのエラーページに変換する。
func (h *HTMLHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		status := mapAPIErrorToHTTPStatus(apiErr)
		if status != http.StatusInternalServerError {
			http.Error(w, apiErr.Message, status)
			return
		}
	} else {
		logInternalError(r, err)
	}
	http.Error(w, model.NewInternalError().Message, http.StatusInternalServerError)
}
