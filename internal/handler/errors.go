package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/feedbackapp/internal/middleware"
	"github.com/hitoshi/feedbackapp/internal/model"
)

// handleServiceError はサービス層から返されたエラーを統一エラーフォーマットのJSONレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	logInternalError(r, err)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeFeedbackNotFound, model.ErrCodeInvalidPage:
		return http.StatusNotFound
	case model.ErrCodeValidation, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func logInternalError(r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
}
