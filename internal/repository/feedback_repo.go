package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/hitoshi/feedbackapp/internal/model"
)

// feedbackRow はfeedbackテーブルの1行を表す。
type feedbackRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Message   string    `db:"message"`
	Rating    int       `db:"rating"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r feedbackRow) toModel() *model.Feedback {
	return &model.Feedback{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Message:   r.Message,
		Rating:    r.Rating,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// SQLFeedbackRepo はgoquでSQLを組み立てるフィードバックリポジトリ。
// PostgreSQLとSQLiteの両方で動作する。
type SQLFeedbackRepo struct {
	db        *goqu.Database
	returning bool
}

// NewFeedbackRepo はSQLFeedbackRepoを生成する。dialectはgoquのダイアレクト名（"postgres"または"sqlite3"）。
func NewFeedbackRepo(db *sql.DB, dialect string) *SQLFeedbackRepo {
	return &SQLFeedbackRepo{
		db:        goqu.New(dialect, db),
		returning: dialect == "postgres",
	}
}

// FindByID は指定IDのフィードバックを取得する。見つからない場合はnilを返す。
func (r *SQLFeedbackRepo) FindByID(ctx context.Context, id int64) (*model.Feedback, error) {
	var row feedbackRow
	found, err := r.db.From(feedbackTable).Prepared(true).
		Where(goqu.C("id").Eq(id)).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to find feedback by ID: %w", err)
	}
	if !found {
		return nil, nil
	}
	return row.toModel(), nil
}

// Create はフィードバックを作成し、採番されたIDを設定する。
func (r *SQLFeedbackRepo) Create(ctx context.Context, feedback *model.Feedback) error {
	record := goqu.Record{
		"name":       feedback.Name,
		"email":      feedback.Email,
		"message":    feedback.Message,
		"rating":     feedback.Rating,
		"created_at": feedback.CreatedAt,
		"updated_at": feedback.UpdatedAt,
	}
	ds := r.db.Insert(feedbackTable).Prepared(true).Rows(record)

	if r.returning {
		var id int64
		if _, err := ds.Returning("id").Executor().ScanValContext(ctx, &id); err != nil {
			return fmt.Errorf("failed to insert feedback: %w", err)
		}
		feedback.ID = id
		return nil
	}

	res, err := ds.Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted feedback ID: %w", err)
	}
	feedback.ID = id
	return nil
}

// Update はフィードバックを更新する。対象が存在しない場合はfalseを返す。
func (r *SQLFeedbackRepo) Update(ctx context.Context, feedback *model.Feedback) (bool, error) {
	res, err := r.db.Update(feedbackTable).Prepared(true).
		Set(goqu.Record{
			"name":       feedback.Name,
			"email":      feedback.Email,
			"message":    feedback.Message,
			"rating":     feedback.Rating,
			"updated_at": feedback.UpdatedAt,
		}).
		Where(goqu.C("id").Eq(feedback.ID)).
		Executor().ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update feedback: %w", err)
	}
	return rowsAffected(res)
}

// Delete は指定IDのフィードバックを物理削除する。対象が存在しない場合はfalseを返す。
func (r *SQLFeedbackRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.Delete(feedbackTable).Prepared(true).
		Where(goqu.C("id").Eq(id)).
		Executor().ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete feedback: %w", err)
	}
	return rowsAffected(res)
}

// Count は絞り込み条件に一致する件数を返す。
func (r *SQLFeedbackRepo) Count(ctx context.Context, filter model.FeedbackFilter) (int, error) {
	var count int
	_, err := filteredDataset(r.db, filter).
		Select(goqu.COUNT("*")).
		ScanValContext(ctx, &count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// List は絞り込み条件に一致するフィードバックを並び順に従ってlimit件取得する。
func (r *SQLFeedbackRepo) List(ctx context.Context, filter model.FeedbackFilter, limit, offset int) ([]*model.Feedback, error) {
	ds := filteredDataset(r.db, filter).Order(orderExpressions(filter)...)
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	var rows []feedbackRow
	if err := ds.ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	items := make([]*model.Feedback, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// コンパイル時にインターフェース実装を検証
var _ FeedbackRepository = (*SQLFeedbackRepo)(nil)
