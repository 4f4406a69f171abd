package model

// FeedbackPage はページ番号方式でページ分割されたフィードバック一覧を表す。
type FeedbackPage struct {
	Items    []*Feedback
	Number   int // 1始まりのページ番号
	Size     int
	Count    int // 絞り込み後の全件数
	NumPages int
}

// HasNext は次のページが存在するかを返す。
func (p *FeedbackPage) HasNext() bool {
	return p.Number < p.NumPages
}

// HasPrevious は前のページが存在するかを返す。
func (p *FeedbackPage) HasPrevious() bool {
	return p.Number > 1
}

// NextNumber は次のページ番号を返す。
func (p *FeedbackPage) NextNumber() int {
	return p.Number + 1
}

// PreviousNumber は前のページ番号を返す。
func (p *FeedbackPage) PreviousNumber() int {
	return p.Number - 1
}

// StartIndex はページ先頭要素の1始まりの通し番号を返す。件数0の場合は0。
func (p *FeedbackPage) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return (p.Number-1)*p.Size + 1
}

// EndIndex はページ末尾要素の1始まりの通し番号を返す。
func (p *FeedbackPage) EndIndex() int {
	if p.Count == 0 {
		return 0
	}
	return p.StartIndex() + len(p.Items) - 1
}
