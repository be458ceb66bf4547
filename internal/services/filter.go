package services

import (
	"fmt"
	"strings"
	"time"

	"tripadmin/internal/models"
	apperrors "tripadmin/pkg/errors"
	"tripadmin/pkg/pagination"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp and returns the local calendar day.
func parseDate(value, field string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, value, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.In(time.Local)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local), nil
	}
	return time.Time{}, apperrors.BadRequest(fmt.Sprintf("Invalid %s format. Expected YYYY-MM-DD.", field))
}

// whereCreatedBetween limits created_at to [start 00:00:00, end 23:59:59.999]. Either bound may be empty.
func whereCreatedBetween(query *gorm.DB, column, start, end string) (*gorm.DB, error) {
	if start != "" {
		from, err := parseDate(start, "start_date")
		if err != nil {
			return nil, err
		}
		query = query.Where(column+" >= ?", from)
	}
	if end != "" {
		to, err := parseDate(end, "end_date")
		if err != nil {
			return nil, err
		}
		query = query.Where(column+" <= ?", to.Add(24*time.Hour-time.Millisecond))
	}
	return query, nil
}

// whereContains case-insensitive substring match, skipped when value is empty
func whereContains(query *gorm.DB, column, value string) *gorm.DB {
	value = strings.TrimSpace(value)
	if value == "" {
		return query
	}
	return query.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(value)+"%")
}

func whereNotDeleted(query *gorm.DB, column string) *gorm.DB {
	return query.Where(column+" <> ?", models.StatusDelete)
}

// paginate counts the query then fetches one page ordered newest first, with preloads applied
// to the page only.
func paginate[T any](query *gorm.DB, page, limit int, dest *[]T, preloads ...string) (int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	params := pagination.Normalize(page, limit)
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(params.GetOffset()).Limit(params.GetLimit()).
		Find(dest).Error
	if err != nil {
		return 0, fmt.Errorf("find page: %w", err)
	}
	return total, nil
}

// actorRef maps the acting user id to an audit reference. 0 is the system itself.
func actorRef(actorID uint) *uint {
	if actorID == 0 {
		return nil
	}
	id := actorID
	return &id
}
