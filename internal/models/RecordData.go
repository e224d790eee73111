package models

import (
	"strconv"

	"github.com/twpayne/go-geom"

	"map_exhibits/internal/coverage"
)

// RecordData is the record payload exchanged between the server and the
// map application.
type RecordData struct {
	ID     uint  `json:"id"`
	ItemID *uint `json:"item_id"`

	Title *string `json:"title"`
	Body  *string `json:"body"`
	Slug  *string `json:"slug"`

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

	MapFocus   *string `json:"map_focus"`
	MapZoom    *int    `json:"map_zoom"`
	Coverage   string  `json:"coverage"`
	WMSAddress *string `json:"wmsAddress"`
	Layers     *string `json:"layers"`

	MapActive bool `json:"map_active"`
}

// Geometry parses the WKT coverage. A record without coverage yields nil.
func (d RecordData) Geometry() (geom.T, error) {
	return coverage.ParseWKT(d.Coverage)
}

// Focus returns the stored map focus point, if it parses.
func (d RecordData) Focus() (coverage.Point, bool) {
	if d.MapFocus == nil {
		return coverage.Point{}, false
	}
	p, err := coverage.ParsePoint(*d.MapFocus)
	if err != nil {
		return coverage.Point{}, false
	}
	return p, true
}

// Values flattens the payload into the attribute map accepted by
// Record.Update. Unset fields map to "".
func (d RecordData) Values() map[string]string {
	v := map[string]string{
		"title":           str(d.Title),
		"body":            str(d.Body),
		"slug":            str(d.Slug),
		"vector_color":    str(d.VectorColor),
		"stroke_color":    str(d.StrokeColor),
		"select_color":    str(d.SelectColor),
		"vector_opacity":  num(d.VectorOpacity),
		"select_opacity":  num(d.SelectOpacity),
		"stroke_opacity":  num(d.StrokeOpacity),
		"graphic_opacity": num(d.GraphicOpacity),
		"stroke_width":    num(d.StrokeWidth),
		"point_radius":    num(d.PointRadius),
		"point_image":     str(d.PointImage),
		"min_zoom":        num(d.MinZoom),
		"max_zoom":        num(d.MaxZoom),
		"map_focus":       str(d.MapFocus),
		"map_zoom":        num(d.MapZoom),
		"coverage":        d.Coverage,
		"wms_address":     str(d.WMSAddress),
		"layers":          str(d.Layers),
		"map_active":      "0",
	}
	if d.ItemID != nil {
		v["item_id"] = strconv.FormatUint(uint64(*d.ItemID), 10)
	} else {
		v["item_id"] = ""
	}
	if d.MapActive {
		v["map_active"] = "1"
	}
	return v
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
