package session

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"map_exhibits/internal/models"
)

// ErrForeignRecord is returned when a record outside the exhibit is saved.
var ErrForeignRecord = errors.New("record belongs to another exhibit")

// Store reads and writes one exhibit's records through GORM. It serves the
// map, the record list and the record form.
type Store struct {
	db        *gorm.DB
	exhibitID uint
}

func NewStore(db *gorm.DB, exhibitID uint) *Store {
	return &Store{db: db, exhibitID: exhibitID}
}

// Records returns the records the map renders.
func (s *Store) Records(ctx context.Context, q models.RecordQuery) ([]models.RecordData, error) {
	records, _, err := models.QueryRecords(s.db.WithContext(ctx), s.exhibitID, q)
	if err != nil {
		return nil, err
	}
	return models.BuildJSONList(records)
}

// ListRecords returns one page of the record list and the match count.
func (s *Store) ListRecords(ctx context.Context, q models.RecordQuery) ([]models.RecordData, int64, error) {
	records, total, err := models.QueryRecords(s.db.WithContext(ctx), s.exhibitID, q)
	if err != nil {
		return nil, 0, err
	}
	data, err := models.BuildJSONList(records)
	if err != nil {
		return nil, 0, err
	}
	return data, total, nil
}

// Record loads one record of the exhibit.
func (s *Store) Record(ctx context.Context, id uint) (models.RecordData, error) {
	var r models.Record
	if err := s.db.WithContext(ctx).Where("exhibit_id = ?", s.exhibitID).First(&r, id).Error; err != nil {
		return models.RecordData{}, err
	}
	return r.BuildJSONData()
}

// SaveRecord writes the payload onto the stored record in a transaction and
// returns the saved state.
func (s *Store) SaveRecord(ctx context.Context, data models.RecordData) (models.RecordData, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return models.RecordData{}, tx.Error
	}

	var r models.Record
	if err := tx.First(&r, data.ID).Error; err != nil {
		tx.Rollback()
		return models.RecordData{}, err
	}
	if r.ExhibitID != s.exhibitID {
		tx.Rollback()
		return models.RecordData{}, fmt.Errorf("%w: record %d", ErrForeignRecord, r.ID)
	}
	if err := r.Update(tx, data.Values()); err != nil {
		tx.Rollback()
		return models.RecordData{}, err
	}
	if err := tx.Commit().Error; err != nil {
		return models.RecordData{}, err
	}
	return r.BuildJSONData()
}
