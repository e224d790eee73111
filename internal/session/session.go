// Package session runs one exhibit viewer: the bus, the map, the indicator
// and the editor panels, driven by client frames.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"map_exhibits/internal/bubble"
	"map_exhibits/internal/bus"
	"map_exhibits/internal/coverage"
	"map_exhibits/internal/editor"
	"map_exhibits/internal/mapview"
	"map_exhibits/internal/models"
)

// ErrUnknownCommand is returned for frames naming no known command.
var ErrUnknownCommand = errors.New("unknown command")

// Frame is one client instruction.
type Frame struct {
	Command  string  `json:"command"`
	RecordID uint    `json:"record_id,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Zoom     int     `json:"zoom,omitempty"`
	Field    string  `json:"field,omitempty"`
	Value    string  `json:"value,omitempty"`
	Query    string  `json:"query,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}

// LayerView is the client rendering of one map layer.
type LayerView struct {
	RecordID    uint          `json:"record_id"`
	Title       string        `json:"title"`
	Coverage    string        `json:"coverage"`
	Style       mapview.Style `json:"style"`
	Transient   bool          `json:"transient"`
	Selected    bool          `json:"selected"`
	Highlighted bool          `json:"highlighted"`
	Visible     bool          `json:"visible"`
}

// Snapshot is the full viewer state sent after every frame.
type Snapshot struct {
	Type      string              `json:"type"`
	ExhibitID uint                `json:"exhibit_id"`
	Indicator bubble.Indicator    `json:"indicator"`
	Viewport  mapview.Viewport    `json:"viewport"`
	Layers    []LayerView         `json:"layers"`
	Edit      *LayerView          `json:"edit,omitempty"`
	Selected  uint                `json:"selected,omitempty"`
	View      editor.View         `json:"view"`
	Route     string              `json:"route"`
	Records   []models.RecordData `json:"records"`
	Total     int64               `json:"total"`
	Form      *models.RecordData  `json:"form,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Session is the viewer runtime for one exhibit. Frames are applied one at
// a time.
type Session struct {
	Exhibit   *models.Exhibit
	Bus       *bus.Bus
	Map       *mapview.Map
	Bubble    *bubble.Bubble
	Container *editor.Container
	Records   *editor.Records
	Form      *editor.Form

	store *Store
	log   *logrus.Entry

	mu        sync.Mutex
	lastError string
}

// New wires a session for exhibit backed by db.
func New(db *gorm.DB, exhibit *models.Exhibit, log *logrus.Entry) (*Session, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("exhibit_id", exhibit.ID)

	b, err := bus.New(log)
	if err != nil {
		return nil, fmt.Errorf("create bus: %w", err)
	}
	store := NewStore(db, exhibit.ID)
	container := &editor.Container{}

	s := &Session{
		Exhibit:   exhibit,
		Bus:       b,
		Map:       mapview.New(b, store, exhibit, log),
		Bubble:    bubble.New(b, bubble.DefaultPadding, log),
		Container: container,
		Records:   editor.NewRecords(b, store, container, log),
		Form:      editor.NewForm(b, store, container, log),
		store:     store,
		log:       log.WithField("component", "session"),
	}
	bus.On(b, s.onFetchFailed)
	return s, nil
}

// Start loads the map and shows the record list.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Map.Load(ctx); err != nil {
		return err
	}
	return s.Bus.Publish(ctx, bus.RecordsNavToList{})
}

func (s *Session) onFetchFailed(ctx context.Context, msg bus.FetchFailed) error {
	// Called from inside Handle, which already holds s.mu.
	s.lastError = fmt.Sprintf("%s: %v", msg.Source, msg.Err)
	return nil
}

// Handle applies one client frame.
func (s *Session) Handle(ctx context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""

	switch f.Command {
	case "hover":
		return s.Map.Hover(ctx, f.RecordID)
	case "unhover":
		return s.Map.Unhover(ctx)
	case "click":
		return s.Map.Click(ctx, f.RecordID)
	case "clickoff":
		return s.Map.ClickOff(ctx)
	case "mousemove":
		return s.Map.MouseMove(ctx, f.X, f.Y)
	case "mouseout":
		return s.Map.MouseOut(ctx)
	case "viewport":
		s.Map.SetViewport(coverage.Point{X: f.X, Y: f.Y}, f.Zoom)
		return nil
	case "select":
		r, err := s.record(ctx, f.RecordID)
		if err != nil {
			return err
		}
		return s.Bus.Publish(ctx, bus.Select{Record: r, Source: bus.SourceRecordList})
	case "unselect":
		return s.Bus.Publish(ctx, bus.Unselect{RecordID: f.RecordID, Source: bus.SourceRecordList})
	case "search":
		return s.Bus.Publish(ctx, bus.RecordsLoad{Query: models.RecordQuery{
			Query:  f.Query,
			Offset: f.Offset,
			Limit:  models.DefaultPageSize,
		}})
	case "list":
		return s.Bus.Publish(ctx, bus.RecordsNavToList{})
	case "open":
		r, err := s.record(ctx, f.RecordID)
		if err != nil {
			return err
		}
		return s.Form.Open(ctx, r)
	case "set":
		return s.Form.SetField(f.Field, f.Value)
	case "drag":
		g, err := coverage.ParseWKT(f.Value)
		if err != nil {
			return err
		}
		return s.Map.MoveEditGeometry(ctx, g)
	case "save":
		_, err := s.Form.Save(ctx)
		return err
	case "close":
		return s.Form.Close(ctx)
	case "refresh":
		return s.Bus.Publish(ctx, bus.Refresh{Source: bus.SourceServer})
	case "activate":
		return s.Bus.Publish(ctx, bus.PresenterActivate{})
	case "deactivate":
		return s.Bus.Publish(ctx, bus.PresenterDeactivate{})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, f.Command)
	}
}

// Refresh reloads the map after records changed elsewhere.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Bus.Publish(ctx, bus.Refresh{Source: bus.SourceServer})
}

// record finds a record in memory first and falls back to the store.
func (s *Session) record(ctx context.Context, id uint) (models.RecordData, error) {
	if r, ok := s.Records.Find(id); ok {
		return r, nil
	}
	if l, ok := s.Map.Layer(id); ok {
		return l.Record, nil
	}
	return s.store.Record(ctx, id)
}

// Snapshot renders the viewer state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := make(map[uint]bool)
	for _, l := range s.Map.VisibleLayers() {
		visible[l.RecordID()] = true
	}
	layers := s.Map.Layers()
	views := make([]LayerView, 0, len(layers))
	for _, l := range layers {
		views = append(views, s.layerView(l, visible[l.RecordID()]))
	}

	records, total := s.Records.List()
	snap := Snapshot{
		Type:      "snapshot",
		ExhibitID: s.Exhibit.ID,
		Indicator: s.Bubble.Indicator(),
		Viewport:  s.Map.Viewport(),
		Layers:    views,
		View:      s.Container.View(),
		Route:     s.Container.Route(),
		Records:   records,
		Total:     total,
		Error:     s.lastError,
	}
	if id, ok := s.Map.Selected(); ok {
		snap.Selected = id
	}
	if edit, ok := s.Map.EditLayer(); ok {
		v := s.layerView(edit, true)
		snap.Edit = &v
	}
	if r, ok := s.Form.Record(); ok {
		snap.Form = &r
	}
	return snap
}

func (s *Session) layerView(l *mapview.Layer, visible bool) LayerView {
	wkt, err := coverage.FormatWKT(l.Geometry)
	if err != nil {
		s.log.WithError(err).WithField("record_id", l.RecordID()).Warn("Failed to render layer geometry.")
	}
	title := ""
	if l.Record.Title != nil {
		title = *l.Record.Title
	}
	return LayerView{
		RecordID:    l.RecordID(),
		Title:       title,
		Coverage:    wkt,
		Style:       l.Style,
		Transient:   l.Transient,
		Selected:    l.Selected,
		Highlighted: l.Highlighted,
		Visible:     visible,
	}
}
