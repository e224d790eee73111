package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"map_exhibits/internal/coverage"
)

// DefaultPageSize is the record list page size used by the editor.
const DefaultPageSize = 50

// RecordQuery narrows the records listed for an exhibit.
type RecordQuery struct {
	// Query matches title or body, case-insensitively.
	Query  string
	Offset int
	Limit  int
	// Extent keeps only records whose coverage envelope intersects it.
	Extent *coverage.Bounds
	// ActiveOnly keeps only records shown on the map.
	ActiveOnly bool
}

// QueryRecords lists an exhibit's records ordered by id and returns the
// total number of matches before paging.
func QueryRecords(db *gorm.DB, exhibitID uint, q RecordQuery) ([]Record, int64, error) {
	tx := db.Model(&Record{}).Where("exhibit_id = ?", exhibitID)
	if term := strings.TrimSpace(q.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", like, like)
	}
	if q.ActiveOnly {
		tx = tx.Where("map_active = ?", true)
	}
	tx = tx.Order("id ASC").Session(&gorm.Session{})

	// Envelope filtering happens in Go, so paging follows it.
	if q.Extent != nil {
		var all []Record
		if err := tx.Find(&all).Error; err != nil {
			return nil, 0, fmt.Errorf("list records: %w", err)
		}
		matched := make([]Record, 0, len(all))
		for _, r := range all {
			g, err := coverage.FromWKB(r.Coverage)
			if err != nil {
				return nil, 0, fmt.Errorf("record %d: %w", r.ID, err)
			}
			if env, ok := coverage.Envelope(g); ok && env.Intersects(*q.Extent) {
				matched = append(matched, r)
			}
		}
		return page(matched, q.Offset, q.Limit), int64(len(matched)), nil
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}
	paged := tx
	if q.Offset > 0 {
		paged = paged.Offset(q.Offset)
	}
	if q.Limit > 0 {
		paged = paged.Limit(q.Limit)
	}
	var records []Record
	if err := paged.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	return records, total, nil
}

func page(rs []Record, offset, limit int) []Record {
	if offset >= len(rs) {
		return []Record{}
	}
	rs = rs[offset:]
	if limit > 0 && limit < len(rs) {
		rs = rs[:limit]
	}
	return rs
}

// BuildJSONList renders records into their wire payloads.
func BuildJSONList(records []Record) ([]RecordData, error) {
	out := make([]RecordData, 0, len(records))
	for i := range records {
		d, err := records[i].BuildJSONData()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
