package editor

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"map_exhibits/internal/bus"
	"map_exhibits/internal/models"
)

// Lister queries the records shown in the list.
type Lister interface {
	ListRecords(ctx context.Context, q models.RecordQuery) ([]models.RecordData, int64, error)
}

// Records is the browsable record list.
type Records struct {
	bus       *bus.Bus
	lister    Lister
	container *Container
	log       *logrus.Entry

	mu      sync.Mutex
	records []models.RecordData
	total   int64
	query   models.RecordQuery
}

// NewRecords creates the list and registers its commands on b.
func NewRecords(b *bus.Bus, lister Lister, container *Container, log *logrus.Entry) *Records {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &Records{
		bus:       b,
		lister:    lister,
		container: container,
		log:       log.WithField("component", "records"),
		query:     models.RecordQuery{Limit: models.DefaultPageSize},
	}
	bus.On(b, r.onDisplay)
	bus.On(b, r.onLoad)
	bus.On(b, r.onIngest)
	bus.On(b, r.onNavToList)
	return r
}

func (r *Records) onDisplay(ctx context.Context, _ bus.RecordsDisplay) error {
	r.container.Show(ViewRecords)
	return nil
}

func (r *Records) onLoad(ctx context.Context, msg bus.RecordsLoad) error {
	return r.Load(ctx, msg.Query)
}

func (r *Records) onIngest(ctx context.Context, msg bus.RecordsIngest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = msg.Records
	r.total = msg.Total
	return nil
}

func (r *Records) onNavToList(ctx context.Context, _ bus.RecordsNavToList) error {
	r.container.Navigate(string(ViewRecords))
	if err := r.bus.Publish(ctx, bus.RecordsDisplay{}); err != nil {
		return err
	}
	return r.Load(ctx, r.Query())
}

// Load queries the list and ingests the result.
func (r *Records) Load(ctx context.Context, q models.RecordQuery) error {
	r.mu.Lock()
	r.query = q
	r.mu.Unlock()

	records, total, err := r.lister.ListRecords(ctx, q)
	if err != nil {
		r.log.WithError(err).Error("Record list query failed.")
		if perr := r.bus.Publish(ctx, bus.FetchFailed{Source: bus.SourceRecordList, Err: err}); perr != nil {
			r.log.WithError(perr).Warn("Publishing fetch failure failed.")
		}
		return fmt.Errorf("list records: %w", err)
	}
	return r.bus.Publish(ctx, bus.RecordsIngest{Records: records, Total: total})
}

// Select selects a listed record on the map.
func (r *Records) Select(ctx context.Context, id uint) error {
	rec, ok := r.Find(id)
	if !ok {
		return fmt.Errorf("record %d is not listed", id)
	}
	return r.bus.Publish(ctx, bus.Select{Record: rec, Source: bus.SourceRecordList})
}

// Find returns a listed record by id.
func (r *Records) Find(id uint) (models.RecordData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.RecordData{}, false
}

// List returns the records of the current page and the total match count.
func (r *Records) List() ([]models.RecordData, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RecordData(nil), r.records...), r.total
}

// Query returns the last query loaded.
func (r *Records) Query() models.RecordQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query
}
