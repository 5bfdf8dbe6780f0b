package domain

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListOptions paginates a listing. Page starts at 1; zero values mean "everything".
type ListOptions struct {
	Page     int
	PageSize int
}

// Normalize fills a missing page size when a page was requested and caps it.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 0 {
		o.Page = 0
	}
	if o.Page > 0 && o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	return o
}

func (o ListOptions) Offset() int {
	if o.Page <= 1 {
		return 0
	}
	return (o.Page - 1) * o.PageSize
}
