package feedback

import (
	"strconv"
	"strings"

	"github.com/hitoshi/feedbackapp/internal/model"
)

// PageSize は一覧画面とAPIで共通の1ページあたりの件数。
const PageSize = 10

// lastPage はページ指定で最終ページを表すキーワード。
const lastPage = "last"

// NumPages は件数からページ数を返す。0件でも1ページとする。
func NumPages(count, size int) int {
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// ResolvePage はページ指定を1始まりのページ番号に解決する。
// 未指定は1、"last"は最終ページ。整数でない、1未満、最終ページ超過はINVALID_PAGEエラー。
func ResolvePage(raw string, numPages int) (int, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return 1, nil
	case lastPage:
		return numPages, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > numPages {
		return 0, model.NewInvalidPageError(raw)
	}
	return n, nil
}
