package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"map_exhibits/internal/config"
	"map_exhibits/internal/coverage"
	"map_exhibits/internal/middleware"
	"map_exhibits/internal/models"
)

// exhibitInput is shared by create and update. Pointer fields left out of
// the body are not touched on update.
type exhibitInput struct {
	Title     *string `json:"title"`
	Slug      *string `json:"slug"`
	Narrative *string `json:"narrative"`
	Public    *bool   `json:"public"`

	VectorColor    *string `json:"vector_color"`
	StrokeColor    *string `json:"stroke_color"`
	SelectColor    *string `json:"select_color"`
	VectorOpacity  *int    `json:"vector_opacity"`
	SelectOpacity  *int    `json:"select_opacity"`
	StrokeOpacity  *int    `json:"stroke_opacity"`
	GraphicOpacity *int    `json:"graphic_opacity"`
	StrokeWidth    *int    `json:"stroke_width"`
	PointRadius    *int    `json:"point_radius"`

	MapFocus *string `json:"map_focus"`
	MapZoom  *int    `json:"map_zoom"`
}

func (in exhibitInput) apply(e *models.Exhibit) error {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Slug != nil {
		e.Slug = strings.TrimSpace(*in.Slug)
	}
	if in.Narrative != nil {
		e.Narrative = *in.Narrative
	}
	if in.Public != nil {
		e.Public = *in.Public
	}
	if in.MapFocus != nil && *in.MapFocus != "" {
		if _, err := coverage.ParsePoint(*in.MapFocus); err != nil {
			return err
		}
	}

	setOpt(&e.VectorColor, in.VectorColor)
	setOpt(&e.StrokeColor, in.StrokeColor)
	setOpt(&e.SelectColor, in.SelectColor)
	setOpt(&e.MapFocus, in.MapFocus)
	if in.VectorOpacity != nil {
		e.VectorOpacity = in.VectorOpacity
	}
	if in.SelectOpacity != nil {
		e.SelectOpacity = in.SelectOpacity
	}
	if in.StrokeOpacity != nil {
		e.StrokeOpacity = in.StrokeOpacity
	}
	if in.GraphicOpacity != nil {
		e.GraphicOpacity = in.GraphicOpacity
	}
	if in.StrokeWidth != nil {
		e.StrokeWidth = in.StrokeWidth
	}
	if in.PointRadius != nil {
		e.PointRadius = in.PointRadius
	}
	if in.MapZoom != nil {
		e.MapZoom = in.MapZoom
	}
	return nil
}

// setOpt stores v, turning an empty string into nil.
func setOpt(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}

// ListExhibits lists public exhibits plus the caller's own.
func ListExhibits(c *gin.Context) {
	q := config.DB.Model(&models.Exhibit{}).Order("id ASC")
	who, ok := middleware.CurrentUser(c)
	switch {
	case ok && (who.Role == models.RoleSuper || who.Role == models.RoleAdmin):
	case ok:
		q = q.Where("public = ? OR owner_id = ?", true, who.UserID)
	default:
		q = q.Where("public = ?", true)
	}

	var exhibits []models.Exhibit
	if err := q.Find(&exhibits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch exhibits"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": exhibits})
}

// GetExhibit retrieves an exhibit by ID
func GetExhibit(c *gin.Context) {
	exhibit, ok := loadExhibit(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceExhibit, middleware.PrivShow, ownership(c, exhibit, nil)) {
		return
	}
	if !canView(c, exhibit) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Exhibit not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exhibit": exhibit})
}

// CreateExhibit registers a new exhibit owned by the caller
func CreateExhibit(c *gin.Context) {
	if !middleware.Authorize(c, middleware.ResourceExhibit, middleware.PrivAdd, middleware.Ownership{}) {
		return
	}
	var input exhibitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	who, _ := middleware.CurrentUser(c)
	exhibit := models.Exhibit{OwnerID: who.UserID}
	if err := input.apply(&exhibit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if exhibit.Title == "" || exhibit.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and slug are required"})
		return
	}

	if err := config.DB.Create(&exhibit).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create exhibit: " + err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{"exhibit_id": exhibit.ID, "owner_id": exhibit.OwnerID}).Info("Exhibit created.")
	c.JSON(http.StatusCreated, gin.H{"exhibit": exhibit})
}

// UpdateExhibit modifies an existing exhibit
func UpdateExhibit(c *gin.Context) {
	exhibit, ok := loadExhibit(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceExhibit, middleware.PrivPut, ownership(c, exhibit, nil)) {
		return
	}

	var input exhibitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := input.apply(exhibit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if exhibit.Title == "" || exhibit.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and slug cannot be empty"})
		return
	}

	if err := config.DB.Save(exhibit).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update exhibit: " + err.Error()})
		return
	}

	exhibitHub.Notify(exhibit.ID)
	c.JSON(http.StatusOK, gin.H{"exhibit": exhibit})
}

// DeleteExhibit removes an exhibit and its records
func DeleteExhibit(c *gin.Context) {
	exhibit, ok := loadExhibit(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceExhibit, middleware.PrivDelete, ownership(c, exhibit, nil)) {
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start transaction"})
		return
	}
	if err := tx.Where("exhibit_id = ?", exhibit.ID).Delete(&models.Record{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete records: " + err.Error()})
		return
	}
	if err := tx.Delete(exhibit).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete exhibit: " + err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not commit transaction: " + err.Error()})
		return
	}

	logrus.WithField("exhibit_id", exhibit.ID).Info("Exhibit deleted.")
	exhibitHub.Notify(exhibit.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Exhibit deleted"})
}
