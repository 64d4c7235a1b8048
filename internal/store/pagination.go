package store

import "strings"

// DefaultPageSize and MaxPageSize bound the pagination params accepted on
// GET /api/books and the admin listing endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination is echoed back alongside a page of results.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes TotalPages from total/page/pageSize.
func NewPagination(total, page, pageSize int) Pagination {
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return Pagination{Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func sliceWindow(total, page, pageSize int) (start, end int) {
	start = (page - 1) * pageSize
	if start > total {
		start = total
	}
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

func paginateBooks(items []Book, page, pageSize int) []Book {
	start, end := sliceWindow(len(items), page, pageSize)
	return items[start:end]
}

func paginateJobs(items []Job, page, pageSize int) []Job {
	start, end := sliceWindow(len(items), page, pageSize)
	return items[start:end]
}

func paginateMovements(items []WalletMovement, page, pageSize int) []WalletMovement {
	start, end := sliceWindow(len(items), page, pageSize)
	return items[start:end]
}

func indexFold(haystack, needle string) int {
	return strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
}
