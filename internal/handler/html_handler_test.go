package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/feedbackapp/internal/middleware"
	"github.com/hitoshi/feedbackapp/internal/model"
)

// fetchCSRFToken はフォーム画面を取得し、発行されたCSRFトークンを返す。
func fetchCSRFToken(t *testing.T, h http.Handler) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feedback/create/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName {
			require.Contains(t, w.Body.String(), c.Value, "token is embedded in the form")
			return c.Value
		}
	}
	t.Fatal("CSRF cookie was not issued")
	return ""
}

// postForm はCSRFトークン付きでフォームを送信する。tokenが空の場合はトークンを付けない。
func postForm(t *testing.T, h http.Handler, target, token string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if values == nil {
		values = url.Values{}
	}
	if token != "" {
		values.Set(middleware.CSRFFormField, token)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func getPage(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func validForm(name string) url.Values {
	return url.Values{
		"name":    {name},
		"email":   {"form@example.com"},
		"message": {"Hello from the form"},
		"rating":  {"4"},
	}
}

func TestHTML_ListPage(t *testing.T) {
	h := newTestRouter(t)
	createViaAPI(t, h, "Alice", "alice@example.com", "Nice", 5)
	createViaAPI(t, h, "Bob", "bob@example.com", "Meh", 2)

	w := getPage(t, h, "/?rating=2")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "Bob")
	assert.NotContains(t, body, "Alice")
	assert.Contains(t, body, `<option value="2" selected>`)
}

func TestHTML_ListIgnoresSearchParameter(t *testing.T) {
	h := newTestRouter(t)
	createViaAPI(t, h, "Alice", "alice@example.com", "Nice", 5)

	w := getPage(t, h, "/?search=nomatch")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
}

func TestHTML_ListPaginationPropagatesFilters(t *testing.T) {
	h := newTestRouter(t)
	for i := 1; i <= 11; i++ {
		createViaAPI(t, h, fmt.Sprintf("user-%02d", i), "u@example.com", "msg", 3)
	}

	w := getPage(t, h, "/?name=user&ordering=name")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `href="/?name=user&amp;ordering=name&amp;page=2"`)
	assert.Contains(t, body, "user-01")
	assert.NotContains(t, body, "user-11")

	w = getPage(t, h, "/?name=user&ordering=name&page=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-11")
	assert.Contains(t, w.Body.String(), `href="/?name=user&amp;ordering=name&amp;page=1"`)
}

func TestHTML_ListInvalidPage_Returns404(t *testing.T) {
	h := newTestRouter(t)

	assert.Equal(t, http.StatusNotFound, getPage(t, h, "/?page=2").Code)
	assert.Equal(t, http.StatusOK, getPage(t, h, "/?page=1").Code, "empty result still has page 1")
}

func TestHTML_CreateFlow(t *testing.T) {
	h := newTestRouter(t)
	token := fetchCSRFToken(t, h)

	w := postForm(t, h, "/feedback/create/", token, validForm("Form User"))

	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Contains(t, getPage(t, h, "/").Body.String(), "Form User")
}

func TestHTML_CreateValidationError_RerendersForm(t *testing.T) {
	h := newTestRouter(t)
	token := fetchCSRFToken(t, h)

	form := validForm("")
	form.Set("email", "broken")
	w := postForm(t, h, "/feedback/create/", token, form)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "この項目は必須です。")
	assert.Contains(t, body, "有効なメールアドレスを入力してください。")
	assert.Contains(t, body, `value="broken"`, "submitted values are kept")
	assert.Contains(t, body, `<option value="4" selected>`)

	list := decodeList(t, doJSON(t, h, http.MethodGet, "/api/feedback/", ""))
	assert.Zero(t, list.Count)
}

func TestHTML_PostWithoutCSRFToken_Returns403(t *testing.T) {
	h := newTestRouter(t)

	w := postForm(t, h, "/feedback/create/", "", validForm("Mallory"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHTML_UpdateFlow(t *testing.T) {
	h := newTestRouter(t)
	created := createViaAPI(t, h, "Alice", "alice@example.com", "Nice", 5)
	token := fetchCSRFToken(t, h)
	base := fmt.Sprintf("/feedback/%d/", created.ID)

	w := getPage(t, h, base+"update/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Alice"`)
	assert.Contains(t, w.Body.String(), `<option value="5" selected>`)

	w = postForm(t, h, base+"update/", token, validForm("Alice Updated"))
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	w = getPage(t, h, base)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice Updated")
	assert.Contains(t, w.Body.String(), "4 - 満足")
}

func TestHTML_UpdateValidationError_KeepsActionURL(t *testing.T) {
	h := newTestRouter(t)
	created := createViaAPI(t, h, "Alice", "alice@example.com", "Nice", 5)
	token := fetchCSRFToken(t, h)
	action := fmt.Sprintf("/feedback/%d/update/", created.ID)

	form := validForm("Alice")
	form.Set("rating", "abc")
	w := postForm(t, h, action, token, form)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="`+action+`"`)
	assert.Contains(t, w.Body.String(), "有効な整数を入力してください。")
}

func TestHTML_DeleteFlow(t *testing.T) {
	h := newTestRouter(t)
	created := createViaAPI(t, h, "Alice", "alice@example.com", "Nice", 5)
	token := fetchCSRFToken(t, h)
	base := fmt.Sprintf("/feedback/%d/", created.ID)

	w := getPage(t, h, base+"delete/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "削除してもよろしいですか")

	w = postForm(t, h, base+"delete/", token, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, getPage(t, h, base).Code)
	assert.Equal(t, http.StatusNotFound, postForm(t, h, base+"delete/", token, nil).Code)
}

func TestHTML_DetailNotFound(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/feedback/99/", "/feedback/abc/", "/feedback/abc/update/"} {
		assert.Equal(t, http.StatusNotFound, getPage(t, h, path).Code, path)
	}
}

// stubRenderer は描画エラーを返すPageRenderer。
type stubRenderer struct {
	err error
}

func (s *stubRenderer) Render(w io.Writer, page string, data any) error {
	return s.err
}

func TestHTMLHandler_RenderError_Returns500(t *testing.T) {
	h := NewHTMLHandler(&mockFeedbackService{}, &stubRenderer{err: errors.New("template broken")})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), model.NewInternalError().Message)
}

func TestHTMLHandler_ServiceError_Returns500(t *testing.T) {
	svc := &mockFeedbackService{
		listFn: func(ctx context.Context, filter model.FeedbackFilter, rawPage string) (*model.FeedbackPage, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewHTMLHandler(svc, &stubRenderer{})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestRatingOptions_SelectsCurrentValue(t *testing.T) {
	opts := ratingOptions(" 3 ")

	require.Len(t, opts, len(model.RatingChoices))
	for _, o := range opts {
		assert.Equal(t, o.Value == "3", o.Selected, "option %s", o.Value)
	}
	for _, o := range ratingOptions("") {
		assert.False(t, o.Selected)
	}
}

func TestPageLink_ReplacesPage(t *testing.T) {
	q := url.Values{"page": {"3"}, "rating": {"5"}}

	assert.Equal(t, "/?page=2&rating=5", pageLink("/", q, 2))
	assert.Equal(t, []string{"3"}, q["page"], "source values are not modified")
}
