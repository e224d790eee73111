// Package mapview owns the map surface: the viewport, the vector layers
// built from records and the editable geometry overlay.
package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"

	"map_exhibits/internal/bus"
	"map_exhibits/internal/coverage"
	"map_exhibits/internal/models"
)

// ErrNoEditLayer is returned when geometry is edited with no overlay open.
var ErrNoEditLayer = errors.New("no edit layer")

// Source fetches the records rendered on the map.
type Source interface {
	Records(ctx context.Context, q models.RecordQuery) ([]models.RecordData, error)
}

// Viewport is the visible map center and zoom level.
type Viewport struct {
	Center coverage.Point `json:"center"`
	Zoom   int            `json:"zoom"`
}

// Layer is the rendering of one record. Layers are rebuilt on every ingest
// and must be treated as read-only by callers.
type Layer struct {
	Record      models.RecordData
	Geometry    geom.T
	Style       Style
	Transient   bool
	Selected    bool
	Highlighted bool
}

// RecordID returns the id of the record the layer renders.
func (l *Layer) RecordID() uint { return l.Record.ID }

// Map is the viewport controller for one exhibit.
type Map struct {
	mu       sync.Mutex
	bus      *bus.Bus
	source   Source
	defaults Style
	log      *logrus.Entry

	layers      []*Layer
	byID        map[uint]*Layer
	viewport    Viewport
	selected    uint
	highlighted uint
	edit        *Layer
	query       models.RecordQuery

	// generation identifies the newest Load; older results are dropped.
	generation uint64
	fetches    int
}

// New creates a map for exhibit and subscribes it to b.
func New(b *bus.Bus, src Source, exhibit *models.Exhibit, log *logrus.Entry) *Map {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Map{
		bus:      b,
		source:   src,
		defaults: ExhibitStyle(exhibit),
		log:      log.WithField("component", "map"),
		byID:     make(map[uint]*Layer),
		query:    models.RecordQuery{ActiveOnly: true},
	}
	if exhibit != nil {
		if exhibit.MapFocus != nil {
			if p, err := coverage.ParsePoint(*exhibit.MapFocus); err == nil {
				m.viewport.Center = p
			}
		}
		if exhibit.MapZoom != nil {
			m.viewport.Zoom = *exhibit.MapZoom
		}
	}

	bus.On(b, m.onSelect)
	bus.On(b, m.onUnselect)
	bus.On(b, m.onHighlight)
	bus.On(b, m.onUnhighlight)
	bus.On(b, m.onRefresh)
	bus.On(b, m.onEditStart)
	bus.On(b, m.onEditEnd)
	return m
}

// Ingest replaces every layer with fresh ones built from records. A record
// that was selected before is selected again once the new layers exist; when
// it is gone, an unselect is published for it.
func (m *Map) Ingest(ctx context.Context, records []models.RecordData) error {
	m.mu.Lock()
	dropped := m.ingestLocked(records)
	m.mu.Unlock()
	return m.publishDropped(ctx, dropped)
}

// ingestLocked returns the id of a prior selection that could not be
// restored, or 0.
func (m *Map) ingestLocked(records []models.RecordData) uint {
	prior := m.selected
	m.selected = 0
	m.highlighted = 0
	m.layers = nil
	m.byID = make(map[uint]*Layer, len(records))

	for _, r := range records {
		if !r.MapActive || r.Coverage == "" {
			continue
		}
		l, err := m.newLayer(r, false)
		if err != nil {
			m.log.WithError(err).WithField("record_id", r.ID).Warn("Skipping record with unreadable coverage.")
			continue
		}
		m.addLocked(l)
	}

	var dropped uint
	if prior != 0 {
		if l, ok := m.byID[prior]; ok {
			l.Selected = true
			m.selected = prior
		} else {
			dropped = prior
		}
	}
	m.log.WithFields(logrus.Fields{"layers": len(m.layers), "restored": m.selected, "dropped": dropped}).Debug("Ingested records.")
	return dropped
}

// publishDropped unselects a record whose layer vanished on ingest.
func (m *Map) publishDropped(ctx context.Context, id uint) error {
	if id == 0 {
		return nil
	}
	return m.bus.Publish(ctx, bus.Unselect{RecordID: id, Source: bus.SourceMap})
}

func (m *Map) newLayer(r models.RecordData, transient bool) (*Layer, error) {
	g, err := r.Geometry()
	if err != nil {
		return nil, err
	}
	return &Layer{
		Record:    r,
		Geometry:  g,
		Style:     m.defaults.resolve(r),
		Transient: transient,
	}, nil
}

func (m *Map) addLocked(l *Layer) {
	m.layers = append(m.layers, l)
	m.byID[l.RecordID()] = l
}

// Focus centers the viewport on r's stored focus and zoom. A record with no
// resident layer gets a transient one built from its in-memory coverage;
// Focus never fetches.
func (m *Map) Focus(r models.RecordData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.focusLocked(r)
	return err
}

func (m *Map) focusLocked(r models.RecordData) (*Layer, error) {
	l, ok := m.byID[r.ID]
	if !ok {
		var err error
		l, err = m.newLayer(r, true)
		if err != nil {
			return nil, fmt.Errorf("focus record %d: %w", r.ID, err)
		}
		if l.Geometry != nil {
			m.addLocked(l)
		}
	}

	if p, ok := r.Focus(); ok {
		m.viewport.Center = p
	} else if env, ok := coverage.Envelope(l.Geometry); ok {
		m.viewport.Center = env.Center()
	}
	if r.MapZoom != nil {
		m.viewport.Zoom = *r.MapZoom
	}
	return l, nil
}

// SetViewport moves the map without touching layers or selection.
func (m *Map) SetViewport(center coverage.Point, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewport = Viewport{Center: center, Zoom: zoom}
}

// Viewport returns the current center and zoom.
func (m *Map) Viewport() Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport
}

// SetQuery changes the query used by Load.
func (m *Map) SetQuery(q models.RecordQuery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.query = q
}

// Layers returns the current layers in ingest order.
func (m *Map) Layers() []*Layer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Layer(nil), m.layers...)
}

// Layer returns the layer of a record, if resident.
func (m *Map) Layer(recordID uint) (*Layer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[recordID]
	return l, ok
}

// VisibleLayers returns the layers whose zoom range includes the current zoom.
func (m *Map) VisibleLayers() []*Layer {
	m.mu.Lock()
	defer m.mu.Unlock()
	zoom := m.viewport.Zoom
	var out []*Layer
	for _, l := range m.layers {
		if l.Record.MinZoom != nil && zoom < *l.Record.MinZoom {
			continue
		}
		if l.Record.MaxZoom != nil && zoom > *l.Record.MaxZoom {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Selected returns the id of the selected record.
func (m *Map) Selected() (uint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected, m.selected != 0
}

// Fetches returns how many record fetches the map has issued.
func (m *Map) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// Load fetches records and ingests them. When a newer Load starts before
// this one's fetch returns, the older result is discarded. Failures leave
// the layers untouched and are published as FetchFailed.
func (m *Map) Load(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.fetches++
	q := m.query
	m.mu.Unlock()

	records, err := m.source.Records(ctx, q)
	if err != nil {
		m.log.WithError(err).WithField("generation", gen).Error("Record fetch failed.")
		if perr := m.bus.Publish(ctx, bus.FetchFailed{Source: bus.SourceMap, Err: err}); perr != nil {
			m.log.WithError(perr).Warn("Publishing fetch failure failed.")
		}
		return fmt.Errorf("load records: %w", err)
	}

	m.mu.Lock()
	if current := m.generation; gen != current {
		m.mu.Unlock()
		m.log.WithFields(logrus.Fields{"generation": gen, "current": current}).Debug("Discarding stale record fetch.")
		return nil
	}
	dropped := m.ingestLocked(records)
	m.mu.Unlock()
	return m.publishDropped(ctx, dropped)
}

func (m *Map) record(id uint) (models.RecordData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok {
		return models.RecordData{}, false
	}
	return l.Record, true
}

// Hover reports the cursor entering a record's feature.
func (m *Map) Hover(ctx context.Context, recordID uint) error {
	r, ok := m.record(recordID)
	if !ok {
		return nil
	}
	return m.bus.Publish(ctx, bus.Highlight{Record: r})
}

// Unhover reports the cursor leaving the highlighted feature.
func (m *Map) Unhover(ctx context.Context) error {
	m.mu.Lock()
	id := m.highlighted
	m.mu.Unlock()
	return m.bus.Publish(ctx, bus.Unhighlight{RecordID: id})
}

// Click selects a record's feature. Clicking never moves the viewport.
func (m *Map) Click(ctx context.Context, recordID uint) error {
	r, ok := m.record(recordID)
	if !ok {
		return nil
	}
	return m.bus.Publish(ctx, bus.Select{Record: r, Source: bus.SourceMap})
}

// ClickOff unselects the selected feature.
func (m *Map) ClickOff(ctx context.Context) error {
	id, ok := m.Selected()
	if !ok {
		return nil
	}
	return m.bus.Publish(ctx, bus.Unselect{RecordID: id, Source: bus.SourceMap})
}

// MouseMove reports the cursor position in screen pixels.
func (m *Map) MouseMove(ctx context.Context, x, y float64) error {
	return m.bus.Publish(ctx, bus.CursorMove{X: x, Y: y})
}

// MouseOut reports the cursor leaving the viewport.
func (m *Map) MouseOut(ctx context.Context) error {
	return m.bus.Publish(ctx, bus.CursorOut{})
}

// EditLayer returns the editable overlay, if open.
func (m *Map) EditLayer() (*Layer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edit, m.edit != nil
}

// MoveEditGeometry replaces the overlay geometry, as at the end of a drag,
// and publishes the new coverage.
func (m *Map) MoveEditGeometry(ctx context.Context, g geom.T) error {
	m.mu.Lock()
	if m.edit == nil {
		m.mu.Unlock()
		return ErrNoEditLayer
	}
	wkt, err := coverage.FormatWKT(g)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("edit geometry: %w", err)
	}
	m.edit.Geometry = g
	id := m.edit.RecordID()
	m.mu.Unlock()

	return m.bus.Publish(ctx, bus.CoverageChanged{RecordID: id, Coverage: wkt})
}

func (m *Map) onSelect(ctx context.Context, msg bus.Select) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var l *Layer
	if msg.Source == bus.SourceMap {
		l = m.byID[msg.Record.ID]
	} else {
		var err error
		if l, err = m.focusLocked(msg.Record); err != nil {
			return err
		}
	}

	if prev, ok := m.byID[m.selected]; ok {
		prev.Selected = false
	}
	m.selected = msg.Record.ID
	if l != nil {
		l.Selected = true
	}
	return nil
}

func (m *Map) onUnselect(ctx context.Context, msg bus.Unselect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.byID[msg.RecordID]; ok {
		l.Selected = false
	}
	if m.selected == msg.RecordID {
		m.selected = 0
	}
	return nil
}

func (m *Map) onHighlight(ctx context.Context, msg bus.Highlight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.byID[m.highlighted]; ok {
		prev.Highlighted = false
	}
	m.highlighted = msg.Record.ID
	if l, ok := m.byID[msg.Record.ID]; ok {
		l.Highlighted = true
	}
	return nil
}

func (m *Map) onUnhighlight(ctx context.Context, msg bus.Unhighlight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.byID[m.highlighted]; ok {
		l.Highlighted = false
	}
	m.highlighted = 0
	return nil
}

// onRefresh reloads layers. Only the record form's own refresh discards the
// edit overlay; a refresh from elsewhere leaves an open edit in place.
func (m *Map) onRefresh(ctx context.Context, msg bus.Refresh) error {
	if msg.Source == bus.SourceRecordForm {
		m.EndEdit()
	}
	m.log.WithField("source", msg.Source).Debug("Refreshing map.")
	return m.Load(ctx)
}

// StartEdit opens the editable overlay on a copy of r's geometry.
func (m *Map) StartEdit(r models.RecordData) error {
	g, err := r.Geometry()
	if err != nil {
		return fmt.Errorf("edit record %d: %w", r.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edit = &Layer{Record: r, Geometry: g, Style: m.defaults.resolve(r)}
	return nil
}

// EndEdit drops the overlay and any geometry changes made on it.
func (m *Map) EndEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edit = nil
}

func (m *Map) onEditStart(ctx context.Context, msg bus.EditStart) error {
	return m.StartEdit(msg.Record)
}

func (m *Map) onEditEnd(ctx context.Context, msg bus.EditEnd) error {
	m.EndEdit()
	return nil
}
