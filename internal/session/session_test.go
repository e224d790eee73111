package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"map_exhibits/internal/bubble"
	"map_exhibits/internal/coverage"
	"map_exhibits/internal/editor"
	"map_exhibits/internal/models"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*gorm.DB, *models.Exhibit) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "session.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Exhibit{}, &models.Record{}))

	exhibit := &models.Exhibit{Title: "Waterfront", Slug: "waterfront", MapFocus: ptr("0,0"), MapZoom: ptr(3)}
	require.NoError(t, db.Create(exhibit).Error)

	for _, seed := range []struct {
		title, body, wkt string
	}{
		{"_title1", "_body1", "POINT(1 2)"},
		{"_title2", "_body2", "POINT(3 4)"},
	} {
		r := models.NewRecord(nil, exhibit)
		r.Title = ptr(seed.title)
		r.Body = ptr(seed.body)
		r.MapActive = true
		require.NoError(t, r.SetCoverage(seed.wkt))
		require.NoError(t, db.Create(r).Error)
	}
	return db, exhibit
}

func start(t *testing.T) (*Session, *gorm.DB) {
	t.Helper()
	db, exhibit := setup(t)
	s, err := New(db, exhibit, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	return s, db
}

func TestStartLoadsMapAndList(t *testing.T) {
	s, _ := start(t)

	snap := s.Snapshot()
	assert.Equal(t, "snapshot", snap.Type)
	assert.Len(t, snap.Layers, 2)
	assert.Len(t, snap.Records, 2)
	assert.Equal(t, int64(2), snap.Total)
	assert.Equal(t, editor.ViewRecords, snap.View)
	assert.Equal(t, coverage.Point{X: 0, Y: 0}, snap.Viewport.Center)
	assert.Equal(t, 3, snap.Viewport.Zoom)
}

func TestPointerFramesDriveIndicator(t *testing.T) {
	s, _ := start(t)
	ctx := context.Background()
	id1 := s.Snapshot().Layers[0].RecordID
	id2 := s.Snapshot().Layers[1].RecordID

	require.NoError(t, s.Handle(ctx, Frame{Command: "hover", RecordID: id1}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "click", RecordID: id1}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "hover", RecordID: id2}))

	snap := s.Snapshot()
	assert.Equal(t, "_title1", snap.Indicator.Title)
	assert.True(t, snap.Indicator.Frozen)
	assert.Equal(t, id1, snap.Selected)
	assert.Equal(t, 3, snap.Viewport.Zoom)

	require.NoError(t, s.Handle(ctx, Frame{Command: "clickoff"}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "hover", RecordID: id2}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "mousemove", X: 3, Y: 4}))

	snap = s.Snapshot()
	assert.Equal(t, "_title2", snap.Indicator.Title)
	assert.Equal(t, 3+bubble.DefaultPadding.X, snap.Indicator.Left)
}

func TestCloseRestoresSavedGeometry(t *testing.T) {
	s, _ := start(t)
	ctx := context.Background()
	id := s.Snapshot().Layers[0].RecordID

	require.NoError(t, s.Handle(ctx, Frame{Command: "open", RecordID: id}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "drag", Value: "POINT(3 4)"}))
	snap := s.Snapshot()
	require.NotNil(t, snap.Edit)
	assert.Equal(t, editor.ViewRecord, snap.View)

	require.NoError(t, s.Handle(ctx, Frame{Command: "close"}))

	l, ok := s.Map.Layer(id)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, l.Geometry.FlatCoords())
	snap = s.Snapshot()
	assert.Nil(t, snap.Edit)
	assert.Nil(t, snap.Form)
	assert.Equal(t, editor.ViewRecords, snap.View)
}

func TestSavePersistsThroughStore(t *testing.T) {
	s, db := start(t)
	ctx := context.Background()
	id := s.Snapshot().Layers[0].RecordID

	require.NoError(t, s.Handle(ctx, Frame{Command: "open", RecordID: id}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "set", Field: "title", Value: ""}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "set", Field: "slug", Value: "harbor"}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "drag", Value: "POINT(5 6)"}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "save"}))

	var stored models.Record
	require.NoError(t, db.First(&stored, id).Error)
	assert.Nil(t, stored.Title)
	require.NotNil(t, stored.Slug)
	assert.Equal(t, "harbor", *stored.Slug)
	g, err := coverage.FromWKB(stored.Coverage)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, g.FlatCoords())

	l, ok := s.Map.Layer(id)
	require.True(t, ok)
	assert.Equal(t, []float64{5, 6}, l.Geometry.FlatCoords())
}

func TestRefreshPicksUpExternalChanges(t *testing.T) {
	s, db := start(t)
	ctx := context.Background()

	r := models.NewRecord(nil, s.Exhibit)
	r.MapActive = true
	require.NoError(t, r.SetCoverage("POINT(7 7)"))
	require.NoError(t, db.Create(r).Error)

	require.NoError(t, s.Refresh(ctx))
	assert.Len(t, s.Snapshot().Layers, 3)
}

func TestRefreshReleasesSelectionOfDeletedRecord(t *testing.T) {
	s, db := start(t)
	ctx := context.Background()
	id1 := s.Snapshot().Layers[0].RecordID
	id2 := s.Snapshot().Layers[1].RecordID

	require.NoError(t, s.Handle(ctx, Frame{Command: "click", RecordID: id1}))
	require.NoError(t, db.Delete(&models.Record{}, id1).Error)
	require.NoError(t, s.Refresh(ctx))

	state, _ := s.Bubble.State()
	assert.Equal(t, bubble.Idle, state)
	assert.False(t, s.Snapshot().Indicator.Frozen)

	require.NoError(t, s.Handle(ctx, Frame{Command: "clickoff"}))
	require.NoError(t, s.Handle(ctx, Frame{Command: "hover", RecordID: id2}))

	snap := s.Snapshot()
	assert.Zero(t, snap.Selected)
	assert.True(t, snap.Indicator.Visible)
	assert.False(t, snap.Indicator.Frozen)
	assert.Equal(t, "_title2", snap.Indicator.Title)
}

func TestServerRefreshKeepsOpenFormEditable(t *testing.T) {
	s, _ := start(t)
	ctx := context.Background()
	id := s.Snapshot().Layers[0].RecordID

	require.NoError(t, s.Handle(ctx, Frame{Command: "open", RecordID: id}))
	require.NoError(t, s.Refresh(ctx))

	snap := s.Snapshot()
	require.NotNil(t, snap.Form)
	require.NotNil(t, snap.Edit)

	require.NoError(t, s.Handle(ctx, Frame{Command: "drag", Value: "POINT(9 9)"}))
	edit, ok := s.Map.EditLayer()
	require.True(t, ok)
	assert.Equal(t, []float64{9, 9}, edit.Geometry.FlatCoords())
	r, ok := s.Form.Record()
	require.True(t, ok)
	g, err := coverage.ParseWKT(r.Coverage)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 9}, g.FlatCoords())
}

func TestSelectFrameFocusesWithoutFetch(t *testing.T) {
	s, _ := start(t)
	ctx := context.Background()
	id := s.Snapshot().Layers[1].RecordID
	fetches := s.Map.Fetches()

	require.NoError(t, s.Handle(ctx, Frame{Command: "select", RecordID: id}))

	snap := s.Snapshot()
	assert.Equal(t, fetches, s.Map.Fetches())
	assert.Equal(t, coverage.Point{X: 3, Y: 4}, snap.Viewport.Center)
	assert.Equal(t, id, snap.Selected)
}

func TestSearchFrameFiltersList(t *testing.T) {
	s, _ := start(t)

	require.NoError(t, s.Handle(context.Background(), Frame{Command: "search", Query: "_body2"}))

	snap := s.Snapshot()
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "_title2", *snap.Records[0].Title)
	assert.Len(t, snap.Layers, 2)
}

func TestUnknownFrame(t *testing.T) {
	s, _ := start(t)
	assert.ErrorIs(t, s.Handle(context.Background(), Frame{Command: "explode"}), ErrUnknownCommand)
}

func TestStoreRejectsForeignRecord(t *testing.T) {
	db, exhibit := setup(t)
	other := &models.Exhibit{Title: "Other", Slug: "other"}
	require.NoError(t, db.Create(other).Error)
	foreign := models.NewRecord(nil, other)
	require.NoError(t, db.Create(foreign).Error)

	_, err := NewStore(db, exhibit.ID).SaveRecord(context.Background(), models.RecordData{ID: foreign.ID})
	assert.ErrorIs(t, err, ErrForeignRecord)
}
