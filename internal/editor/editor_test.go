package editor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"map_exhibits/internal/bus"
	"map_exhibits/internal/coverage"
	"map_exhibits/internal/mapview"
	"map_exhibits/internal/models"
)

func ptr[T any](v T) *T { return &v }

// memStore serves the map, the list and the form from one slice.
type memStore struct {
	mu      sync.Mutex
	records []models.RecordData
	listErr error
	saves   int
}

func (s *memStore) Records(ctx context.Context, q models.RecordQuery) ([]models.RecordData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RecordData(nil), s.records...), nil
}

func (s *memStore) ListRecords(ctx context.Context, q models.RecordQuery) ([]models.RecordData, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return append([]models.RecordData(nil), s.records...), int64(len(s.records)), nil
}

func (s *memStore) SaveRecord(ctx context.Context, r models.RecordData) (models.RecordData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	for i := range s.records {
		if s.records[i].ID == r.ID {
			s.records[i] = r
			return r, nil
		}
	}
	return models.RecordData{}, errors.New("not found")
}

type fixture struct {
	ctx       context.Context
	bus       *bus.Bus
	store     *memStore
	container *Container
	mv        *mapview.Map
	records   *Records
	form      *Form
	refreshes []bus.Refresh
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b, err := bus.New(nil)
	require.NoError(t, err)

	f := &fixture{
		ctx: context.Background(),
		bus: b,
		store: &memStore{records: []models.RecordData{
			{ID: 1, Title: ptr("Harbor"), Coverage: "POINT(1 2)", MapActive: true},
			{ID: 2, Title: ptr("Lighthouse"), Coverage: "POINT(10 10)", MapActive: true},
		}},
		container: &Container{},
	}
	f.mv = mapview.New(b, f.store, nil, nil)
	f.records = NewRecords(b, f.store, f.container, nil)
	f.form = NewForm(b, f.store, f.container, nil)
	bus.On(b, func(ctx context.Context, msg bus.Refresh) error {
		f.refreshes = append(f.refreshes, msg)
		return nil
	})

	require.NoError(t, f.mv.Load(f.ctx))
	require.NoError(t, b.Publish(f.ctx, bus.RecordsNavToList{}))
	return f
}

func layerXY(t *testing.T, m *mapview.Map, id uint) []float64 {
	t.Helper()
	l, ok := m.Layer(id)
	require.True(t, ok)
	return l.Geometry.FlatCoords()
}

func TestNavToListDisplaysAndLoads(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, ViewRecords, f.container.View())
	assert.Equal(t, "records", f.container.Route())
	list, total := f.records.List()
	assert.Len(t, list, 2)
	assert.Equal(t, int64(2), total)
}

func TestListLoadFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.store.listErr = errors.New("timeout")

	var failures []bus.FetchFailed
	bus.On(f.bus, func(ctx context.Context, msg bus.FetchFailed) error {
		failures = append(failures, msg)
		return nil
	})

	err := f.bus.Publish(f.ctx, bus.RecordsLoad{Query: models.RecordQuery{Query: "harbor"}})
	assert.ErrorIs(t, err, f.store.listErr)
	require.Len(t, failures, 1)
	assert.Equal(t, bus.SourceRecordList, failures[0].Source)

	list, _ := f.records.List()
	assert.Len(t, list, 2)
}

func TestListSelectFocusesMap(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.records.Select(f.ctx, 2))

	id, ok := f.mv.Selected()
	assert.True(t, ok)
	assert.Equal(t, uint(2), id)
	assert.Equal(t, coverage.Point{X: 10, Y: 10}, f.mv.Viewport().Center)
	assert.Error(t, f.records.Select(f.ctx, 42))
}

func TestOpenShowsFormAndStartsEditing(t *testing.T) {
	f := newFixture(t)
	r, ok := f.records.Find(1)
	require.True(t, ok)

	require.NoError(t, f.form.Open(f.ctx, r))

	assert.Equal(t, ViewRecord, f.container.View())
	assert.Equal(t, "records/1", f.container.Route())
	_, editing := f.mv.EditLayer()
	assert.True(t, editing)
	id, _ := f.mv.Selected()
	assert.Equal(t, uint(1), id)
}

func TestCloseDiscardsGeometryEdits(t *testing.T) {
	f := newFixture(t)
	r, _ := f.records.Find(1)
	require.NoError(t, f.form.Open(f.ctx, r))

	require.NoError(t, f.mv.MoveEditGeometry(f.ctx, coverage.NewPoint(3, 4)))
	working, _ := f.form.Record()
	g, err := coverage.ParseWKT(working.Coverage)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, g.FlatCoords())

	fetches := f.mv.Fetches()
	require.NoError(t, f.form.Close(f.ctx))

	require.Len(t, f.refreshes, 1)
	assert.Equal(t, bus.SourceRecordForm, f.refreshes[0].Source)
	assert.Equal(t, fetches+1, f.mv.Fetches())
	assert.Equal(t, []float64{1, 2}, layerXY(t, f.mv, 1))
	assert.Equal(t, ViewRecords, f.container.View())
	assert.False(t, f.form.IsOpen())
	_, editing := f.mv.EditLayer()
	assert.False(t, editing)
	assert.Equal(t, 0, f.store.saves)
}

func TestSavePersistsGeometry(t *testing.T) {
	f := newFixture(t)
	r, _ := f.records.Find(1)
	require.NoError(t, f.form.Open(f.ctx, r))
	require.NoError(t, f.mv.MoveEditGeometry(f.ctx, coverage.NewPoint(3, 4)))

	saved, err := f.form.Save(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, []float64{3, 4}, layerXY(t, f.mv, 1))
	assert.True(t, f.form.IsOpen())
	edit, ok := f.mv.EditLayer()
	require.True(t, ok)
	assert.Equal(t, saved.ID, edit.RecordID())
}

func TestSetFieldEmptyUnsets(t *testing.T) {
	f := newFixture(t)
	r, _ := f.records.Find(1)
	require.NoError(t, f.form.Open(f.ctx, r))

	require.NoError(t, f.form.SetField("title", "Title"))
	require.NoError(t, f.form.SetField("stroke-width", "4"))
	working, _ := f.form.Record()
	assert.Equal(t, "Title", *working.Title)
	assert.Equal(t, 4, *working.StrokeWidth)

	require.NoError(t, f.form.SetField("title", ""))
	require.NoError(t, f.form.SetField("stroke-width", ""))
	working, _ = f.form.Record()
	assert.Nil(t, working.Title)
	assert.Nil(t, working.StrokeWidth)
}

func TestSetFieldRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	r, _ := f.records.Find(1)

	assert.ErrorIs(t, f.form.SetField("title", "x"), ErrFormClosed)

	require.NoError(t, f.form.Open(f.ctx, r))
	assert.ErrorIs(t, f.form.SetField("nope", "x"), models.ErrNoSuchField)
	assert.Error(t, f.form.SetField("map-zoom", "ten"))
	assert.ErrorIs(t, f.form.SetField("coverage", "POINT(oops"), coverage.ErrInvalidCoverage)
	assert.Error(t, f.form.SetField("map-focus", "1;2"))
	require.NoError(t, f.form.SetField("map-focus", "5,6"))
}

func TestClosedFormOperations(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.form.Close(f.ctx), ErrFormClosed)
	_, err := f.form.Save(f.ctx)
	assert.ErrorIs(t, err, ErrFormClosed)
}
