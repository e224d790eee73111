// internal/models/exhibit.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Exhibit is a named collection of records presented on one map.
// Style fields hold the defaults applied to records that leave them unset.
type Exhibit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// Modified is bumped whenever the exhibit or any of its records is saved.
	Modified time.Time `json:"modified"`

	OwnerID   uint   `gorm:"index" json:"owner_id"`
	Title     string `json:"title" binding:"required"`
	Slug      string `gorm:"uniqueIndex;size:100;not null" json:"slug" binding:"required"`
	Narrative string `gorm:"type:text" json:"narrative"`
	Public    bool   `json:"public"`

	VectorColor    *string `json:"vector_color"`
	StrokeColor    *string `json:"stroke_color"`
	SelectColor    *string `json:"select_color"`
	VectorOpacity  *int    `json:"vector_opacity"`
	SelectOpacity  *int    `json:"select_opacity"`
	StrokeOpacity  *int    `json:"stroke_opacity"`
	GraphicOpacity *int    `json:"graphic_opacity"`
	StrokeWidth    *int    `json:"stroke_width"`
	PointRadius    *int    `json:"point_radius"`

	MapFocus *string `json:"map_focus"`
	MapZoom  *int    `json:"map_zoom"`

	Records []Record `gorm:"foreignKey:ExhibitID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"records,omitempty"`
}

// BeforeSave keeps the modified timestamp current on direct exhibit saves.
func (e *Exhibit) BeforeSave(tx *gorm.DB) error {
	e.Modified = time.Now()
	return nil
}
