package pkg

import "strconv"

// PageSize 所有列表页统一的每页条数
const PageSize = 10

// Page 分页元信息。页码从 1 开始，越界页码收敛到最近的有效页
type Page struct {
	Number   int
	Size     int
	Total    int64
	NumPages int
}

// NewPage 根据原始页码参数（可能为空或非法）和总数计算当前页
func NewPage(raw string, total int64, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	if total < 0 {
		total = 0
	}
	numPages := int((total + int64(size) - 1) / int64(size))
	if numPages < 1 {
		// 空列表也有一页
		numPages = 1
	}
	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return Page{Number: number, Size: size, Total: total, NumPages: numPages}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	return p.Size
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

func (p Page) HasOtherPages() bool {
	return p.NumPages > 1
}

func (p Page) NextNumber() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

func (p Page) PreviousNumber() int {
	if p.HasPrevious() {
		return p.Number - 1
	}
	return p.Number
}

// Range 模板里渲染页码链接用
func (p Page) Range() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}

// Paginated 一页数据及其分页信息
type Paginated[T any] struct {
	Page
	Items []T
}

// Paginate 对内存中的有序序列分页
func Paginate[T any](items []T, raw string, size int) Paginated[T] {
	page := NewPage(raw, int64(len(items)), size)
	start := page.Offset()
	end := start + page.Size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return Paginated[T]{Page: page, Items: items[start:end]}
}
