package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedbackapp/internal/feedback"
	"github.com/hitoshi/feedbackapp/internal/middleware"
	"github.com/hitoshi/feedbackapp/internal/model"
)

// FeedbackServiceInterface はフィードバックハンドラーが必要とするサービスインターフェース。
type FeedbackServiceInterface interface {
	// List は絞り込み条件に一致するフィードバックの指定ページを返す。
	List(ctx context.Context, filter model.FeedbackFilter, rawPage string) (*model.FeedbackPage, error)
	// Get は指定IDのフィードバックを返す。
	Get(ctx context.Context, rawID string) (*model.Feedback, error)
	// Create はフィードバックを登録する。
	Create(ctx context.Context, in feedback.Input) (*model.Feedback, error)
	// Update はフィードバックの全編集可能フィールドを置き換える。
	Update(ctx context.Context, rawID string, in feedback.Input) (*model.Feedback, error)
	// PartialUpdate は指定されたフィールドのみを変更する。
	PartialUpdate(ctx context.Context, rawID string, p feedback.Patch) (*model.Feedback, error)
	// Delete はフィードバックを削除する。
	Delete(ctx context.Context, rawID string) error
}

var _ FeedbackServiceInterface = (*feedback.Service)(nil)

// maxRequestBodySize はAPIリクエストボディの上限サイズ。
const maxRequestBodySize = 1 << 20

// APIHandler はフィードバックREST APIのHTTPハンドラー。
type APIHandler struct {
	service FeedbackServiceInterface
	baseURL string
}

// NewAPIHandler はAPIHandlerを生成する。baseURLはページ送りリンクの絶対URLに使用する。
func NewAPIHandler(service FeedbackServiceInterface, baseURL string) *APIHandler {
	return &APIHandler{
		service: service,
		baseURL: baseURL,
	}
}

// feedbackResponse はフィードバック1件のAPIレスポンス。
type feedbackResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// feedbackListResponse はページ分割された一覧のAPIレスポンス。
// next、previousは該当ページがない場合null。
type feedbackListResponse struct {
	Count    int                `json:"count"`
	Next     *string            `json:"next"`
	Previous *string            `json:"previous"`
	Results  []feedbackResponse `json:"results"`
}

// feedbackRequest は登録・更新リクエストのボディ。
// id、created_at、updated_atは読み取り専用のため受け付けない（指定されても無視する）。
// ratingは数値と数値文字列の両方を受け付けるため生のJSONで受け取る。
type feedbackRequest struct {
	Name    *string         `json:"name"`
	Email   *string         `json:"email"`
	Message *string         `json:"message"`
	Rating  json.RawMessage `json:"rating"`
}

// ListFeedback はフィードバック一覧を返す。
// GET /api/feedback/?name=&rating=&search=&ordering=&page=
func (h *APIHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := h.service.List(r.Context(), feedback.APIFilterFromQuery(q), q.Get(feedback.ParamPage))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := feedbackListResponse{
		Count:   page.Count,
		Results: make([]feedbackResponse, 0, len(page.Items)),
	}
	for _, f := range page.Items {
		resp.Results = append(resp.Results, toFeedbackResponse(f))
	}
	if page.HasNext() {
		resp.Next = h.pageURL(r, page.NextNumber())
	}
	if page.HasPrevious() {
		resp.Previous = h.pageURL(r, page.PreviousNumber())
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateFeedback はフィードバックを登録する。
// POST /api/feedback/
func (h *APIHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	p, err := decodeFeedbackRequest(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	f, err := h.service.Create(r.Context(), p.ToInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFeedbackResponse(f))
}

// GetFeedback はフィードバック詳細を返す。
// GET /api/feedback/{id}/
func (h *APIHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeedbackResponse(f))
}

// UpdateFeedback はフィードバックの全編集可能フィールドを置き換える。
// PUT /api/feedback/{id}/
func (h *APIHandler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := decodeFeedbackRequest(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	f, err := h.service.Update(r.Context(), id, p.ToInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeedbackResponse(f))
}

// PartialUpdateFeedback は指定されたフィールドのみを更新する。
// PATCH /api/feedback/{id}/
func (h *APIHandler) PartialUpdateFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := decodeFeedbackRequest(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	f, err := h.service.PartialUpdate(r.Context(), id, p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeedbackResponse(f))
}

// DeleteFeedback はフィードバックを削除する。
// DELETE /api/feedback/{id}/
func (h *APIHandler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pageURL は現在のリクエストのクエリを保ったまま、pageだけを差し替えた絶対URLを返す。
// 1ページ目はpageパラメータを付けない。
func (h *APIHandler) pageURL(r *http.Request, page int) *string {
	q := r.URL.Query()
	if page <= 1 {
		q.Del(feedback.ParamPage)
	} else {
		q.Set(feedback.ParamPage, strconv.Itoa(page))
	}

	u := h.baseURL + r.URL.Path
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return &u
}

// --- ヘルパー関数 ---

// decodeFeedbackRequest はリクエストボディを部分更新の入力として解析する。
// JSONに加えてフォーム形式（application/x-www-form-urlencoded、multipart/form-data）も受け付ける。
// 空のボディは全フィールド未指定として扱う。
func decodeFeedbackRequest(r *http.Request) (feedback.Patch, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return decodeFeedbackForm(r)
	}

	var req feedbackRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return feedback.Patch{}, err
	}
	// 1つのJSON値の後に続くデータは受け付けない
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return feedback.Patch{}, errors.New("request body must contain a single JSON object")
	}

	rating, err := rawRating(req.Rating)
	if err != nil {
		return feedback.Patch{}, err
	}

	return feedback.Patch{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Rating:  rating,
	}, nil
}

func decodeFeedbackForm(r *http.Request) (feedback.Patch, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodySize)
	if err := r.ParseMultipartForm(maxRequestBodySize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return feedback.Patch{}, err
	}

	return feedback.Patch{
		Name:    formValue(r.PostForm, "name"),
		Email:   formValue(r.PostForm, "email"),
		Message: formValue(r.PostForm, "message"),
		Rating:  formValue(r.PostForm, "rating"),
	}, nil
}

// formValue は送信されたフィールドの値を返す。送信されていない場合はnil。
func formValue(form url.Values, key string) *string {
	if _, ok := form[key]; !ok {
		return nil
	}
	v := form.Get(key)
	return &v
}

// rawRating はJSONのrating値を文字列に変換する。
// 文字列はそのまま、数値はJSON表記のまま使用し、検証はサービス層に任せる。
// 未指定とnullはnil（未指定）を返す。
func rawRating(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}

	s := string(raw)
	return &s, nil
}

// toFeedbackResponse はmodel.FeedbackからAPIレスポンスに変換する。
func toFeedbackResponse(f *model.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:        f.ID,
		Name:      f.Name,
		Email:     f.Email,
		Message:   f.Message,
		Rating:    f.Rating,
		CreatedAt: f.CreatedAt.UTC(),
		UpdatedAt: f.UpdatedAt.UTC(),
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
