// Package model はドメインモデルを定義する。
package model

import "time"

// Feedback はユーザーが送信した1件のフィードバック（評価とコメント）を表す。
type Feedback struct {
	ID        int64
	Name      string
	Email     string
	Message   string
	Rating    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RatingChoice は評価値の選択肢を表す。
type RatingChoice struct {
	Value int
	Label string
}

// RatingChoices は許可された評価値の一覧。昇順で並ぶ。
var RatingChoices = []RatingChoice{
	{Value: 1, Label: "1 - とても不満"},
	{Value: 2, Label: "2 - 不満"},
	{Value: 3, Label: "3 - 普通"},
	{Value: 4, Label: "4 - 満足"},
	{Value: 5, Label: "5 - とても満足"},
}

// IsValidRating は評価値が許可された選択肢に含まれるかを判定する。
func IsValidRating(rating int) bool {
	for _, c := range RatingChoices {
		if c.Value == rating {
			return true
		}
	}
	return false
}

// SortField は並び替えに使用できるフィールドを表す。
type SortField string

const (
	// SortFieldCreatedAt は作成日時による並び替え。
	SortFieldCreatedAt SortField = "created_at"
	// SortFieldRating は評価値による並び替え。
	SortFieldRating SortField = "rating"
	// SortFieldName は名前による並び替え。
	SortFieldName SortField = "name"
)

// OrderTerm は1つの並び替え条件を表す。
type OrderTerm struct {
	Field SortField
	Desc  bool
}

// String はクエリパラメータ表記（降順は先頭に"-"）を返す。
func (o OrderTerm) String() string {
	if o.Desc {
		return "-" + string(o.Field)
	}
	return string(o.Field)
}

// DefaultOrdering はデフォルトの並び順（作成日時の降順）。
var DefaultOrdering = []OrderTerm{{Field: SortFieldCreatedAt, Desc: true}}

// FeedbackFilter はフィードバック一覧取得の絞り込み条件を表す。
// リクエストから一度だけ組み立て、ストアで一度だけ実行する。
type FeedbackFilter struct {
	// NameContains はnameに対する大文字小文字を区別しない部分一致条件。空文字は条件なし。
	NameContains string
	// Rating は評価値の完全一致条件。nilは条件なし。
	Rating *int
	// SearchTerms の各語はname、email、messageのいずれかに部分一致する必要がある。
	SearchTerms []string
	// Ordering は並び順。空の場合はDefaultOrderingを使用する。
	Ordering []OrderTerm
}

// EffectiveOrdering は適用される並び順を返す。
func (f FeedbackFilter) EffectiveOrdering() []OrderTerm {
	if len(f.Ordering) == 0 {
		return DefaultOrdering
	}
	return f.Ordering
}
