package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"map_exhibits/internal/config"
	"map_exhibits/internal/coverage"
	"map_exhibits/internal/middleware"
	"map_exhibits/internal/models"
)

const maxRecordLimit = 500

// loadRecord fetches the record named by :id together with its exhibit.
func loadRecord(c *gin.Context) (*models.Record, *models.Exhibit, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, nil, false
	}
	var record models.Record
	if err := config.DB.Preload("Exhibit").First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error: " + err.Error()})
		}
		return nil, nil, false
	}
	if record.Exhibit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return nil, nil, false
	}
	return &record, record.Exhibit, true
}

// ListRecords lists an exhibit's records. Query parameters: query, offset,
// limit, extent ("minx,miny,maxx,maxy") and active.
func ListRecords(c *gin.Context) {
	exhibit, ok := loadExhibit(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceRecord, middleware.PrivList, ownership(c, exhibit, nil)) {
		return
	}
	if !canView(c, exhibit) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Exhibit not found"})
		return
	}

	q := models.RecordQuery{Query: c.Query("query")}
	var err error
	if q.Offset, err = intParam(c, "offset", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit, err = intParam(c, "limit", models.DefaultPageSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// QueryRecords treats 0 as unlimited; never hand that to callers.
	if q.Limit == 0 {
		q.Limit = models.DefaultPageSize
	}
	if q.Limit > maxRecordLimit {
		q.Limit = maxRecordLimit
	}
	if raw := c.Query("extent"); raw != "" {
		extent, err := coverage.ParseBounds(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.Extent = &extent
	}
	q.ActiveOnly = c.Query("active") == "1" || c.Query("active") == "true"

	records, total, err := models.QueryRecords(config.DB, exhibit.ID, q)
	if err != nil {
		logrus.WithError(err).WithField("exhibit_id", exhibit.ID).Error("Failed to list records.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch records"})
		return
	}
	data, err := models.BuildJSONList(records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": data,
		"offset":  q.Offset,
		"limit":   q.Limit,
		"count":   total,
	})
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

// GetRecord returns one record payload
func GetRecord(c *gin.Context) {
	record, exhibit, ok := loadRecord(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceRecord, middleware.PrivGet, ownership(c, exhibit, record)) {
		return
	}
	if !canView(c, exhibit) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	data, err := record.BuildJSONData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, data)
}

// CreateRecord adds a record to an exhibit
func CreateRecord(c *gin.Context) {
	exhibit, ok := loadExhibit(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceRecord, middleware.PrivPost, ownership(c, exhibit, nil)) {
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	who, _ := middleware.CurrentUser(c)
	record := models.NewRecord(nil, exhibit)
	record.OwnerID = who.UserID

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start transaction"})
		return
	}
	if err := record.Assign(tx, formValues(body)); err != nil {
		tx.Rollback()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := tx.Create(record).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create record: " + err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not commit transaction: " + err.Error()})
		return
	}

	data, err := record.BuildJSONData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logrus.WithFields(logrus.Fields{"record_id": record.ID, "exhibit_id": exhibit.ID}).Info("Record created.")
	exhibitHub.Notify(exhibit.ID)
	c.JSON(http.StatusCreated, data)
}

// UpdateRecord applies the submitted attributes. Empty values unset
// optional columns; a slug taken by another record is left unset.
func UpdateRecord(c *gin.Context) {
	record, exhibit, ok := loadRecord(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceRecord, middleware.PrivPut, ownership(c, exhibit, record)) {
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start transaction"})
		return
	}
	record.Exhibit = nil
	if err := record.Update(tx, formValues(body)); err != nil {
		tx.Rollback()
		if errors.Is(err, coverage.ErrInvalidCoverage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update record: " + err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not commit transaction: " + err.Error()})
		return
	}

	data, err := record.BuildJSONData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	exhibitHub.Notify(exhibit.ID)
	c.JSON(http.StatusOK, data)
}

// DeleteRecord removes a record
func DeleteRecord(c *gin.Context) {
	record, exhibit, ok := loadRecord(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceRecord, middleware.PrivDelete, ownership(c, exhibit, record)) {
		return
	}

	if err := config.DB.Delete(&models.Record{}, record.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete record: " + err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{"record_id": record.ID, "exhibit_id": exhibit.ID}).Info("Record deleted.")
	exhibitHub.Notify(exhibit.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Record deleted"})
}
