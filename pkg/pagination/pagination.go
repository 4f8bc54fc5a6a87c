package pagination

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds zero-based page coordinates.
type Params struct {
	Page     int
	PageSize int
}

// Normalize clamps the page size into (0, MaxPageSize] and the page to >= 0.
func (p Params) Normalize() Params {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

func (p Params) Offset() int {
	return p.Page * p.PageSize
}

type Result[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewResult[T any](items []T, total int64, p Params) *Result[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &Result[T]{
		Items:      items,
		TotalCount: total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}

// Map converts the items of r while keeping the paging metadata.
func Map[T, U any](r *Result[T], fn func(T) U) *Result[U] {
	out := make([]U, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, fn(it))
	}
	return &Result[U]{
		Items:      out,
		TotalCount: r.TotalCount,
		Page:       r.Page,
		PageSize:   r.PageSize,
		TotalPages: r.TotalPages,
	}
}

// Slice pages an in-memory, already sorted slice.
func Slice[T any](all []T, p Params) *Result[T] {
	p = p.Normalize()
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}
	return NewResult(append([]T(nil), all[start:end]...), int64(len(all)), p)
}
