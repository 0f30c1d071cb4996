package model

// DefaultPerPage は一覧APIのデフォルト件数。
const DefaultPerPage = 15

// MaxPerPage は一覧APIで指定できる最大件数。
const MaxPerPage = 100

// Page はページネーションされた一覧結果を表す。
type Page[T any] struct {
	Items   []T
	Total   int
	Page    int
	PerPage int
}

// LastPage は最終ページ番号を返す。0件の場合は1を返す。
func (p Page[T]) LastPage() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// NormalizePaging はページ番号と件数を有効範囲に丸める。
func NormalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// Offset はSQLのOFFSET値を返す。
func Offset(page, perPage int) int {
	return (page - 1) * perPage
}
