package feedback

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/feedbackapp/internal/metrics"
	"github.com/hitoshi/feedbackapp/internal/model"
	"github.com/hitoshi/feedbackapp/internal/repository"
	"github.com/hitoshi/feedbackapp/internal/security"
)

// Input はフィードバックの登録・全体更新の入力。値は送信されたままの文字列で受け取る。
type Input struct {
	Name    string
	Email   string
	Message string
	Rating  string
}

// Patch は部分更新の入力。nilのフィールドは変更しない。
type Patch struct {
	Name    *string
	Email   *string
	Message *string
	Rating  *string
}

// ToInput は未指定フィールドを空文字としたInputに変換する。全体更新と登録で使用する。
func (p Patch) ToInput() Input {
	return Input{
		Name:    deref(p.Name),
		Email:   deref(p.Email),
		Message: deref(p.Message),
		Rating:  deref(p.Rating),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// InputFromFeedback は既存のフィードバックを編集フォームの初期値に変換する。
func InputFromFeedback(f *model.Feedback) Input {
	return Input{
		Name:    f.Name,
		Email:   f.Email,
		Message: f.Message,
		Rating:  strconv.Itoa(f.Rating),
	}
}

// Service はフィードバックのサービス層。
// 一覧取得、詳細取得、登録、更新、削除のビジネスロジックを提供する。
type Service struct {
	repo      repository.FeedbackRepository
	sanitizer security.InputSanitizer
	metrics   metrics.MetricsCollector
	validate  *validator.Validate
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。mcがnilの場合はメトリクスを記録しない。
func NewService(
	repo repository.FeedbackRepository,
	sanitizer security.InputSanitizer,
	mc metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   mc,
		validate:  newValidator(),
		now:       time.Now,
	}
}

// List は絞り込み条件に一致するフィードバックの指定ページを返す。
// rawPageはクエリパラメータの値をそのまま渡す。
func (s *Service) List(ctx context.Context, filter model.FeedbackFilter, rawPage string) (*model.FeedbackPage, error) {
	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("フィードバック件数の取得に失敗しました: %w", err)
	}

	numPages := NumPages(count, PageSize)
	number, err := ResolvePage(rawPage, numPages)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, filter, PageSize, (number-1)*PageSize)
	if err != nil {
		return nil, fmt.Errorf("フィードバック一覧の取得に失敗しました: %w", err)
	}

	return &model.FeedbackPage{
		Items:    items,
		Number:   number,
		Size:     PageSize,
		Count:    count,
		NumPages: numPages,
	}, nil
}

// Get は指定IDのフィードバックを返す。IDが整数でない場合も未検出として扱う。
func (s *Service) Get(ctx context.Context, rawID string) (*model.Feedback, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, model.NewFeedbackNotFoundError(rawID)
	}

	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("フィードバックの取得に失敗しました: %w", err)
	}
	if f == nil {
		return nil, model.NewFeedbackNotFoundError(rawID)
	}
	return f, nil
}

// Create は入力を検証してフィードバックを登録する。
// 検証エラーの場合はフィールド別のエラーを持つVALIDATION_ERRORを返し、何も保存しない。
func (s *Service) Create(ctx context.Context, in Input) (*model.Feedback, error) {
	f := &model.Feedback{}
	if err := s.apply(f, in); err != nil {
		return nil, err
	}

	now := s.timestamp()
	f.CreatedAt = now
	f.UpdatedAt = now

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("フィードバックの登録に失敗しました: %w", err)
	}

	s.recordMutation(metrics.OpCreate)
	return f, nil
}

// Update は指定IDのフィードバックの全編集可能フィールドを置き換える。
func (s *Service) Update(ctx context.Context, rawID string, in Input) (*model.Feedback, error) {
	f, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, rawID, f, in)
}

// PartialUpdate は指定されたフィールドのみを変更する。変更後の値全体を再検証する。
func (s *Service) PartialUpdate(ctx context.Context, rawID string, p Patch) (*model.Feedback, error) {
	f, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}

	in := InputFromFeedback(f)
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Email != nil {
		in.Email = *p.Email
	}
	if p.Message != nil {
		in.Message = *p.Message
	}
	if p.Rating != nil {
		in.Rating = *p.Rating
	}

	return s.save(ctx, rawID, f, in)
}

// Delete は指定IDのフィードバックを物理削除する。
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, ok := parseID(rawID)
	if !ok {
		return model.NewFeedbackNotFoundError(rawID)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("フィードバックの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewFeedbackNotFoundError(rawID)
	}

	s.recordMutation(metrics.OpDelete)
	return nil
}

// save は既存のフィードバックに入力を適用して保存する。
// updated_atはcreated_at以上になるよう補正する。
func (s *Service) save(ctx context.Context, rawID string, f *model.Feedback, in Input) (*model.Feedback, error) {
	if err := s.apply(f, in); err != nil {
		return nil, err
	}

	f.UpdatedAt = s.timestamp()
	if f.UpdatedAt.Before(f.CreatedAt) {
		f.UpdatedAt = f.CreatedAt
	}

	updated, err := s.repo.Update(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("フィードバックの更新に失敗しました: %w", err)
	}
	if !updated {
		// 取得後に別リクエストで削除された
		return nil, model.NewFeedbackNotFoundError(rawID)
	}

	s.recordMutation(metrics.OpUpdate)
	return f, nil
}

// apply は入力を正規化・検証し、問題がなければfに反映する。
func (s *Service) apply(f *model.Feedback, in Input) error {
	normalized := fields{
		Name:    s.sanitizer.Sanitize(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Message: s.sanitizer.Sanitize(in.Message),
		Rating:  strings.TrimSpace(in.Rating),
	}

	fieldErrs, err := validateFields(s.validate, normalized)
	if err != nil {
		return err
	}
	if fieldErrs != nil {
		if s.metrics != nil {
			s.metrics.RecordValidationFailure()
		}
		return model.NewValidationError(fieldErrs)
	}

	rating, _ := ParseRatingValue(normalized.Rating)
	f.Name = normalized.Name
	f.Email = normalized.Email
	f.Message = normalized.Message
	f.Rating = rating
	return nil
}

// timestamp はDBの精度に合わせてマイクロ秒に切り捨てたUTC時刻を返す。
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) recordMutation(op string) {
	if s.metrics != nil {
		s.metrics.RecordFeedbackMutation(op)
	}
}

// parseID はパスパラメータのIDを正の整数として解釈する。
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
