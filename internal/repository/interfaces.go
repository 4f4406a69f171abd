// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/feedbackapp/internal/model"
)

// FeedbackRepository はフィードバックデータの永続化インターフェース。
type FeedbackRepository interface {
	// FindByID は指定IDのフィードバックを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Feedback, error)

	// Create はフィードバックを作成し、採番されたIDをfeedback.IDに設定する。
	Create(ctx context.Context, feedback *model.Feedback) error

	// Update はフィードバックの全編集可能フィールドとupdated_atを更新する。
	// 対象が存在しない場合はfalseを返す。created_atは変更しない。
	Update(ctx context.Context, feedback *model.Feedback) (bool, error)

	// Delete は指定IDのフィードバックを物理削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)

	// Count は絞り込み条件に一致する件数を返す。
	Count(ctx context.Context, filter model.FeedbackFilter) (int, error)

	// List は絞り込み条件に一致するフィードバックを指定の並び順で、
	// offsetからlimit件取得する。
	List(ctx context.Context, filter model.FeedbackFilter, limit, offset int) ([]*model.Feedback, error)
}
