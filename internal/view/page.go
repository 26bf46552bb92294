package view

import "fmt"

const DefaultPageSize = 5

type PageSpec struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// Page describes one slice [Start, End) of a view of Total items.
type Page struct {
	Index      int  `json:"index"`
	Size       int  `json:"size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	Start      int  `json:"start"`
	End        int  `json:"end"`
	CanPrev    bool `json:"can_prev"`
	CanNext    bool `json:"can_next"`
	// Label is the pager caption, "page N of M" with N counted from 1.
	Label string `json:"label"`
}

// Paginate clamps spec.Index into [0, TotalPages-1]. TotalPages is at least 1.
func Paginate(total int, spec PageSpec) Page {
	size := spec.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	idx := spec.Index
	if idx >= pages {
		idx = pages - 1
	}
	if idx < 0 {
		idx = 0
	}
	start := min(idx*size, total)
	end := min(start+size, total)
	return Page{
		Index:      idx,
		Size:       size,
		Total:      total,
		TotalPages: pages,
		Start:      start,
		End:        end,
		CanPrev:    idx > 0,
		CanNext:    idx < pages-1,
		Label:      fmt.Sprintf("page %d of %d", idx+1, pages),
	}
}

func (p Page) Slice(idx []int) []int {
	if p.Start >= len(idx) {
		return []int{}
	}
	return idx[p.Start:min(p.End, len(idx))]
}
