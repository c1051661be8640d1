package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jakecourtright/HayFlow/internal/auth"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// DefaultPageSize is used when the caller does not ask for one
const DefaultPageSize = 20

// ErrNoOrganization is returned when a scoped query runs without an organization in context
var ErrNoOrganization = errors.New("no organization in context")

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// NormalizePage clamps page and pageSize to usable values
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// OrgFromContext returns the active organization id, or "" when there is none
func OrgFromContext(ctx context.Context) string {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return ""
	}
	return user.OrgID
}

// ApplyOrgFilter scopes a query to the caller's organization. Without an organization
// the query matches nothing.
func ApplyOrgFilter(ctx context.Context, query *gorm.DB) *gorm.DB {
	return ApplyOrgFilterWithColumn(ctx, query, "org_id")
}

// ApplyOrgFilterWithColumn applies the org filter using a qualified column name, for joins
func ApplyOrgFilterWithColumn(ctx context.Context, query *gorm.DB, column string) *gorm.DB {
	orgID := OrgFromContext(ctx)
	if orgID == "" {
		return query.Where("1 = 0")
	}
	return query.Where(column+" = ?", orgID)
}
