// Package feedback はフィードバックの絞り込み・ページ分割・登録更新のドメインロジックを提供する。
package feedback

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/feedbackapp/internal/model"
)

// クエリパラメータ名
const (
	ParamName     = "name"
	ParamRating   = "rating"
	ParamSearch   = "search"
	ParamOrdering = "ordering"
	ParamPage     = "page"
)

var orderableFields = map[string]model.SortField{
	string(model.SortFieldCreatedAt): model.SortFieldCreatedAt,
	string(model.SortFieldRating):    model.SortFieldRating,
	string(model.SortFieldName):      model.SortFieldName,
}

// ListFilterFromQuery は一覧画面のクエリパラメータから絞り込み条件を組み立てる。
// 一覧画面ではsearchを扱わない。
func ListFilterFromQuery(q url.Values) model.FeedbackFilter {
	return model.FeedbackFilter{
		NameContains: q.Get(ParamName),
		Rating:       ParseRatingFilter(q.Get(ParamRating)),
		Ordering:     ParseOrdering(q.Get(ParamOrdering)),
	}
}

// APIFilterFromQuery はAPIのクエリパラメータから絞り込み条件を組み立てる。
// nameとsearchは独立した条件として両方適用される。
func APIFilterFromQuery(q url.Values) model.FeedbackFilter {
	f := ListFilterFromQuery(q)
	f.SearchTerms = SplitSearchTerms(q.Get(ParamSearch))
	return f
}

// ParseRatingFilter は評価値の絞り込み条件を解析する。
// 前後の空白は許容する。整数として解釈できない場合はnil（条件なし）を返し、エラーにはしない。
// 選択肢外の整数はそのまま返す（一致する記録がないため結果は空になる）。
func ParseRatingFilter(raw string) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// ParseOrdering はカンマ区切りの並び順指定を解析する。
// 許可されていない項目は捨てる。有効な項目がなければnilを返し、デフォルトの並び順が適用される。
//
//	"-rating,name" -> [rating DESC, name ASC]
//	"email,-rating" -> [rating DESC]
func ParseOrdering(raw string) []model.OrderTerm {
	var terms []model.OrderTerm
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		field, ok := orderableFields[strings.TrimPrefix(part, "-")]
		if !ok {
			continue
		}
		terms = append(terms, model.OrderTerm{Field: field, Desc: desc})
	}
	return terms
}

// SplitSearchTerms は検索文字列を空白とカンマで分割する。NUL文字は除去する。
func SplitSearchTerms(raw string) []string {
	raw = strings.ReplaceAll(raw, "\x00", "")
	raw = strings.ReplaceAll(raw, ",", " ")
	return strings.Fields(raw)
}
