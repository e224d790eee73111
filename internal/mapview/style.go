package mapview

import "map_exhibits/internal/models"

// Style is the fully resolved rendering style of a layer.
type Style struct {
	VectorColor    string `json:"vector_color"`
	StrokeColor    string `json:"stroke_color"`
	SelectColor    string `json:"select_color"`
	VectorOpacity  int    `json:"vector_opacity"`
	SelectOpacity  int    `json:"select_opacity"`
	StrokeOpacity  int    `json:"stroke_opacity"`
	GraphicOpacity int    `json:"graphic_opacity"`
	StrokeWidth    int    `json:"stroke_width"`
	PointRadius    int    `json:"point_radius"`
	PointImage     string `json:"point_image,omitempty"`
}

// DefaultStyle applies when neither the record nor the exhibit sets a value.
var DefaultStyle = Style{
	VectorColor:    "#ffb80e",
	StrokeColor:    "#ffb80e",
	SelectColor:    "#ff0000",
	VectorOpacity:  30,
	SelectOpacity:  40,
	StrokeOpacity:  90,
	GraphicOpacity: 100,
	StrokeWidth:    2,
	PointRadius:    6,
}

// ExhibitStyle overlays an exhibit's defaults on DefaultStyle.
func ExhibitStyle(e *models.Exhibit) Style {
	s := DefaultStyle
	if e == nil {
		return s
	}
	setStr(&s.VectorColor, e.VectorColor)
	setStr(&s.StrokeColor, e.StrokeColor)
	setStr(&s.SelectColor, e.SelectColor)
	setInt(&s.VectorOpacity, e.VectorOpacity)
	setInt(&s.SelectOpacity, e.SelectOpacity)
	setInt(&s.StrokeOpacity, e.StrokeOpacity)
	setInt(&s.GraphicOpacity, e.GraphicOpacity)
	setInt(&s.StrokeWidth, e.StrokeWidth)
	setInt(&s.PointRadius, e.PointRadius)
	return s
}

// resolve overlays the record's own style values on base.
func (base Style) resolve(r models.RecordData) Style {
	s := base
	setStr(&s.VectorColor, r.VectorColor)
	setStr(&s.StrokeColor, r.StrokeColor)
	setStr(&s.SelectColor, r.SelectColor)
	setInt(&s.VectorOpacity, r.VectorOpacity)
	setInt(&s.SelectOpacity, r.SelectOpacity)
	setInt(&s.StrokeOpacity, r.StrokeOpacity)
	setInt(&s.GraphicOpacity, r.GraphicOpacity)
	setInt(&s.StrokeWidth, r.StrokeWidth)
	setInt(&s.PointRadius, r.PointRadius)
	setStr(&s.PointImage, r.PointImage)
	return s
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
