// Package utils 提供分页、重试等通用工具
package utils

import (
	"context"
	"time"
)

// Pagination 列表分页元信息
type Pagination struct {
	TotalItems      int64 `json:"totalItems"`
	TotalPages      int   `json:"totalPages"`
	CurrentPage     int   `json:"currentPage"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	NextPage        *int  `json:"nextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
	PreviousPage    *int  `json:"previousPage"`
}

// NormalizePage 规范化页码与每页条数：page >= 1，1 <= limit <= maxLimit
func NormalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// Offset 获取数据库查询偏移量
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// NewPagination 创建分页信息，page 与 limit 需已规范化
func NewPagination(page, limit int, total int64) Pagination {
	pages := int((total + int64(limit) - 1) / int64(limit))

	p := Pagination{
		TotalItems:      total,
		TotalPages:      pages,
		CurrentPage:     page,
		ItemsPerPage:    limit,
		HasNextPage:     page < pages,
		HasPreviousPage: page > 1,
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPreviousPage {
		prev := page - 1
		p.PreviousPage = &prev
	}
	return p
}

// RetryWithBackoff 带指数退避的重试，ctx 取消时立即返回
func RetryWithBackoff(ctx context.Context, maxAttempts int, initialDelay, maxDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * 1.5)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return lastErr
}
