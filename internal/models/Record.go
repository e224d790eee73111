package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"map_exhibits/internal/coverage"
)

// ErrNoSuchField is returned when a column name does not exist on Record.
var ErrNoSuchField = errors.New("no such record field")

// Record is one annotated geometry inside an exhibit.
// Optional text and style columns are pointers: nil means "not configured".
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID   uint     `gorm:"index" json:"owner_id"`
	ItemID    *uint    `gorm:"index" json:"item_id"`
	ExhibitID uint     `gorm:"index;not null" json:"exhibit_id"`
	Exhibit   *Exhibit `gorm:"foreignKey:ExhibitID" json:"-"`

	Title *string `gorm:"type:text" json:"title"`
	Body  *string `gorm:"type:text" json:"body"`
	Slug  *string `gorm:"uniqueIndex;size:100" json:"slug"`

	VectorColor    *string `json:"vector_color"`
	StrokeColor    *string `json:"stroke_color"`
	SelectColor    *string `json:"select_color"`
	VectorOpacity  *int    `json:"vector_opacity"`
	SelectOpacity  *int    `json:"select_opacity"`
	StrokeOpacity  *int    `json:"stroke_opacity"`
	GraphicOpacity *int    `json:"graphic_opacity"`
	StrokeWidth    *int    `json:"stroke_width"`
	PointRadius    *int    `json:"point_radius"`
	PointImage     *string `json:"point_image"`
	MinZoom        *int    `json:"min_zoom"`
	MaxZoom        *int    `json:"max_zoom"`

	MapFocus *string `json:"map_focus"`
	MapZoom  *int    `json:"map_zoom"`

	// Coverage is stored as WKB; the JSON payload carries WKT.
	Coverage   []byte  `json:"-"`
	WMSAddress *string `json:"wms_address"`
	Layers     *string `json:"layers"`
	MapActive  bool    `json:"map_active"`
}

// NewRecord creates a record owned by exhibit, optionally backed by a
// content item.
func NewRecord(itemID *uint, exhibit *Exhibit) *Record {
	return &Record{ItemID: itemID, ExhibitID: exhibit.ID}
}

var stringColumns = map[string]func(r *Record) **string{
	"title":        func(r *Record) **string { return &r.Title },
	"body":         func(r *Record) **string { return &r.Body },
	"vector_color": func(r *Record) **string { return &r.VectorColor },
	"stroke_color": func(r *Record) **string { return &r.StrokeColor },
	"select_color": func(r *Record) **string { return &r.SelectColor },
	"point_image":  func(r *Record) **string { return &r.PointImage },
	"map_focus":    func(r *Record) **string { return &r.MapFocus },
	"wms_address":  func(r *Record) **string { return &r.WMSAddress },
	"layers":       func(r *Record) **string { return &r.Layers },
}

var intColumns = map[string]func(r *Record) **int{
	"vector_opacity":  func(r *Record) **int { return &r.VectorOpacity },
	"select_opacity":  func(r *Record) **int { return &r.SelectOpacity },
	"stroke_opacity":  func(r *Record) **int { return &r.StrokeOpacity },
	"graphic_opacity": func(r *Record) **int { return &r.GraphicOpacity },
	"stroke_width":    func(r *Record) **int { return &r.StrokeWidth },
	"point_radius":    func(r *Record) **int { return &r.PointRadius },
	"min_zoom":        func(r *Record) **int { return &r.MinZoom },
	"max_zoom":        func(r *Record) **int { return &r.MaxZoom },
	"map_zoom":        func(r *Record) **int { return &r.MapZoom },
}

// styleColumns are cleared by ResetStyles.
var styleColumns = []string{
	"vector_color", "stroke_color", "select_color",
	"vector_opacity", "select_opacity", "stroke_opacity", "graphic_opacity",
	"stroke_width", "point_radius", "point_image",
}

// SetNotEmpty assigns value to column, storing nil when value is empty.
func (r *Record) SetNotEmpty(column, value string) error {
	if field, ok := stringColumns[column]; ok {
		if value == "" {
			*field(r) = nil
		} else {
			v := value
			*field(r) = &v
		}
		return nil
	}
	if field, ok := intColumns[column]; ok {
		value = strings.TrimSpace(value)
		if value == "" {
			*field(r) = nil
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", column, err)
		}
		*field(r) = &n
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoSuchField, column)
}

// SetSlug assigns slug when no other record uses it. A taken or empty slug
// leaves the field unset; only database failures are returned.
func (r *Record) SetSlug(db *gorm.DB, slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		r.Slug = nil
		return nil
	}

	var count int64
	q := db.Model(&Record{}).Where("slug = ?", slug)
	if r.ID != 0 {
		q = q.Where("id <> ?", r.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if count > 0 {
		logrus.WithFields(logrus.Fields{"record_id": r.ID, "slug": slug}).Debug("Slug already taken, leaving unset.")
		r.Slug = nil
		return nil
	}
	r.Slug = &slug
	return nil
}

// SetCoverage parses WKT into the stored WKB coverage.
func (r *Record) SetCoverage(raw string) error {
	b, err := coverage.WKTToWKB(raw)
	if err != nil {
		return err
	}
	r.Coverage = b
	return nil
}

// ResetStyles clears every style column.
func (r *Record) ResetStyles() {
	for _, c := range styleColumns {
		// style columns are all known, SetNotEmpty cannot fail on them
		_ = r.SetNotEmpty(c, "")
	}
}

// Assign applies submitted values without saving. Empty strings unset the
// matching column; unknown keys are ignored.
func (r *Record) Assign(db *gorm.DB, values map[string]string) error {
	for key, value := range values {
		switch key {
		case "id", "exhibit_id", "owner_id":
			continue
		case "item_id":
			if strings.TrimSpace(value) == "" {
				r.ItemID = nil
				continue
			}
			n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return fmt.Errorf("item_id: %w", err)
			}
			id := uint(n)
			r.ItemID = &id
		case "slug":
			if err := r.SetSlug(db, value); err != nil {
				return err
			}
		case "coverage":
			if err := r.SetCoverage(value); err != nil {
				return err
			}
		case "map_active":
			r.MapActive = value == "1" || strings.EqualFold(value, "true")
		case "wmsAddress":
			if err := r.SetNotEmpty("wms_address", value); err != nil {
				return err
			}
		default:
			err := r.SetNotEmpty(key, value)
			if errors.Is(err, ErrNoSuchField) {
				logrus.WithField("key", key).Debug("Ignoring unknown record attribute.")
				continue
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Update assigns values and saves the record.
func (r *Record) Update(db *gorm.DB, values map[string]string) error {
	if err := r.Assign(db, values); err != nil {
		return err
	}
	return db.Save(r).Error
}

// AfterSave bumps the parent exhibit's modified timestamp.
func (r *Record) AfterSave(tx *gorm.DB) error {
	return tx.Model(&Exhibit{}).Where("id = ?", r.ExhibitID).UpdateColumn("modified", time.Now()).Error
}

// GetExhibit loads the parent exhibit.
func (r *Record) GetExhibit(db *gorm.DB) (*Exhibit, error) {
	var e Exhibit
	if err := db.First(&e, r.ExhibitID).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// BuildJSONData renders the payload consumed by the map application.
func (r *Record) BuildJSONData() (RecordData, error) {
	wkt, err := coverage.WKBToWKT(r.Coverage)
	if err != nil {
		return RecordData{}, fmt.Errorf("record %d: %w", r.ID, err)
	}
	return RecordData{
		ID:             r.ID,
		ItemID:         r.ItemID,
		Title:          r.Title,
		Body:           r.Body,
		Slug:           r.Slug,
		VectorColor:    r.VectorColor,
		StrokeColor:    r.StrokeColor,
		SelectColor:    r.SelectColor,
		VectorOpacity:  r.VectorOpacity,
		SelectOpacity:  r.SelectOpacity,
		StrokeOpacity:  r.StrokeOpacity,
		GraphicOpacity: r.GraphicOpacity,
		StrokeWidth:    r.StrokeWidth,
		PointRadius:    r.PointRadius,
		PointImage:     r.PointImage,
		MinZoom:        r.MinZoom,
		MaxZoom:        r.MaxZoom,
		MapFocus:       r.MapFocus,
		MapZoom:        r.MapZoom,
		Coverage:       wkt,
		WMSAddress:     r.WMSAddress,
		Layers:         r.Layers,
		MapActive:      r.MapActive,
	}, nil
}
