package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"map_exhibits/internal/bus"
	"map_exhibits/internal/coverage"
	"map_exhibits/internal/models"
)

// ErrFormClosed is returned by form operations when no record is open.
var ErrFormClosed = errors.New("record form is not open")

// Saver persists an edited record and returns its stored state.
type Saver interface {
	SaveRecord(ctx context.Context, r models.RecordData) (models.RecordData, error)
}

// Form edits one record at a time. Changes live on a working copy until
// Save; Close discards them.
type Form struct {
	bus       *bus.Bus
	saver     Saver
	container *Container
	log       *logrus.Entry

	mu      sync.Mutex
	open    bool
	working models.RecordData
}

// NewForm creates a closed form subscribed to b.
func NewForm(b *bus.Bus, saver Saver, container *Container, log *logrus.Entry) *Form {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	f := &Form{
		bus:       b,
		saver:     saver,
		container: container,
		log:       log.WithField("component", "form"),
	}
	bus.On(b, f.onCoverageChanged)
	return f
}

// Open binds the form to r, shows it and starts geometry editing.
func (f *Form) Open(ctx context.Context, r models.RecordData) error {
	f.mu.Lock()
	f.open = true
	f.working = r
	f.mu.Unlock()

	f.container.Navigate("records/" + strconv.FormatUint(uint64(r.ID), 10))
	f.container.Show(ViewRecord)
	f.log.WithField("record_id", r.ID).Debug("Opened record form.")

	if err := f.bus.Publish(ctx, bus.Select{Record: r, Source: bus.SourceRecordForm}); err != nil {
		return err
	}
	return f.bus.Publish(ctx, bus.EditStart{Record: r})
}

// Record returns the working copy.
func (f *Form) Record() (models.RecordData, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.working, f.open
}

// IsOpen reports whether a record is bound.
func (f *Form) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// SetField sets a form input on the working copy. Empty values unset.
func (f *Form) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return ErrFormClosed
	}
	return setField(&f.working, name, value)
}

// Close discards unsaved edits, returns to the record list and asks the
// map to reload the saved state.
func (f *Form) Close(ctx context.Context) error {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return ErrFormClosed
	}
	id := f.working.ID
	f.open = false
	f.working = models.RecordData{}
	f.mu.Unlock()

	f.log.WithField("record_id", id).Debug("Closed record form.")
	if err := f.bus.Publish(ctx, bus.EditEnd{}); err != nil {
		return err
	}
	if err := f.bus.Publish(ctx, bus.RecordsNavToList{}); err != nil {
		return err
	}
	return f.bus.Publish(ctx, bus.Refresh{Source: bus.SourceRecordForm})
}

// Save persists the working copy and refreshes the map. The form stays open
// on the saved record.
func (f *Form) Save(ctx context.Context) (models.RecordData, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return models.RecordData{}, ErrFormClosed
	}
	working := f.working
	f.mu.Unlock()

	saved, err := f.saver.SaveRecord(ctx, working)
	if err != nil {
		f.log.WithError(err).WithField("record_id", working.ID).Error("Failed to save record.")
		return models.RecordData{}, fmt.Errorf("save record %d: %w", working.ID, err)
	}

	f.mu.Lock()
	if f.open && f.working.ID == saved.ID {
		f.working = saved
	}
	f.mu.Unlock()

	if err := f.bus.Publish(ctx, bus.Refresh{Source: bus.SourceRecordForm}); err != nil {
		return saved, err
	}
	// Refresh drops the overlay; reopen it on the saved geometry.
	return saved, f.bus.Publish(ctx, bus.EditStart{Record: saved})
}

func (f *Form) onCoverageChanged(ctx context.Context, msg bus.CoverageChanged) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open && f.working.ID == msg.RecordID {
		f.working.Coverage = msg.Coverage
	}
	return nil
}

func setField(r *models.RecordData, name, value string) error {
	value = strings.TrimSpace(value)
	switch name {
	case "title":
		r.Title = optString(value)
	case "body":
		r.Body = optString(value)
	case "slug":
		r.Slug = optString(value)
	case "vector-color":
		r.VectorColor = optString(value)
	case "stroke-color":
		r.StrokeColor = optString(value)
	case "select-color":
		r.SelectColor = optString(value)
	case "point-image":
		r.PointImage = optString(value)
	case "map-focus":
		if value != "" {
			if _, err := coverage.ParsePoint(value); err != nil {
				return err
			}
		}
		r.MapFocus = optString(value)
	case "coverage":
		if _, err := coverage.ParseWKT(value); err != nil {
			return err
		}
		r.Coverage = value
	case "vector-opacity":
		return optInt(&r.VectorOpacity, name, value)
	case "select-opacity":
		return optInt(&r.SelectOpacity, name, value)
	case "stroke-opacity":
		return optInt(&r.StrokeOpacity, name, value)
	case "graphic-opacity":
		return optInt(&r.GraphicOpacity, name, value)
	case "stroke-width":
		return optInt(&r.StrokeWidth, name, value)
	case "point-radius":
		return optInt(&r.PointRadius, name, value)
	case "min-zoom":
		return optInt(&r.MinZoom, name, value)
	case "max-zoom":
		return optInt(&r.MaxZoom, name, value)
	case "map-zoom":
		return optInt(&r.MapZoom, name, value)
	default:
		return fmt.Errorf("%w: %s", models.ErrNoSuchField, name)
	}
	return nil
}

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optInt(dst **int, name, v string) error {
	if v == "" {
		*dst = nil
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", name, v)
	}
	*dst = &n
	return nil
}
