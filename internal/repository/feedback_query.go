package repository

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/hitoshi/feedbackapp/internal/database"
	"github.com/hitoshi/feedbackapp/internal/model"
)

const feedbackTable = "feedback"

// likeEscaper はLIKEのワイルドカードをリテラルとして扱うためのエスケープ。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern は大文字小文字を区別しない部分一致用のLIKEパターンを返す。
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// lowerFunc はダイアレクトで使う小文字化関数名を返す。
// SQLiteのLOWERは非ASCII文字を変換しないため、登録済みのUnicode対応関数を使う。
func lowerFunc(dialect string) string {
	if dialect == "sqlite3" {
		return database.UnicodeLowerFunc
	}
	return "LOWER"
}

// iContains はcolumnがsubstrを大文字小文字を区別せずに含む条件を返す。
// ILIKEはSQLiteに存在しないため、小文字化関数とLIKE ESCAPEで両エンジン共通の式にする。
func iContains(lower, column, substr string) exp.Expression {
	return goqu.L(lower+`(?) LIKE ? ESCAPE '\'`, goqu.C(column), containsPattern(substr))
}

// filterExpressions は絞り込み条件をWHERE句の式に変換する。条件がない場合は空スライスを返す。
func filterExpressions(dialect string, filter model.FeedbackFilter) []exp.Expression {
	var exprs []exp.Expression
	lower := lowerFunc(dialect)

	if filter.NameContains != "" {
		exprs = append(exprs, iContains(lower, "name", filter.NameContains))
	}

	if filter.Rating != nil {
		exprs = append(exprs, goqu.C("rating").Eq(*filter.Rating))
	}

	// 各検索語はいずれかのフィールドに一致すること（語同士はAND、フィールド間はOR）
	for _, term := range filter.SearchTerms {
		exprs = append(exprs, goqu.Or(
			iContains(lower, "name", term),
			iContains(lower, "email", term),
			iContains(lower, "message", term),
		))
	}

	return exprs
}

// orderExpressions は並び順をORDER BY句の式に変換する。
// ページ境界を安定させるため、先頭条件と同じ向きのidを末尾に加える。
func orderExpressions(filter model.FeedbackFilter) []exp.OrderedExpression {
	terms := filter.EffectiveOrdering()
	out := make([]exp.OrderedExpression, 0, len(terms)+1)
	for _, term := range terms {
		out = append(out, orderBy(string(term.Field), term.Desc))
	}
	return append(out, orderBy("id", terms[0].Desc))
}

func orderBy(column string, desc bool) exp.OrderedExpression {
	if desc {
		return goqu.C(column).Desc()
	}
	return goqu.C(column).Asc()
}

// filteredDataset は絞り込み条件を適用したデータセットを返す。
// 件数取得にも使用するため並び順は含めない。
func filteredDataset(db *goqu.Database, filter model.FeedbackFilter) *goqu.SelectDataset {
	ds := db.From(feedbackTable).Prepared(true)
	if exprs := filterExpressions(db.Dialect(), filter); len(exprs) > 0 {
		ds = ds.Where(exprs...)
	}
	return ds
}
