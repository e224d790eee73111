package controllers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"map_exhibits/internal/middleware"
	"map_exhibits/internal/storage"
)

const maxImageSize = 5 << 20

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true,
}

// UploadPointImage stores an image used as a point marker and returns its
// public URL for the point_image field.
func UploadPointImage(c *gin.Context) {
	exhibit, ok := loadExhibit(c)
	if !ok {
		return
	}
	if !middleware.Authorize(c, middleware.ResourceRecord, middleware.PrivPost, ownership(c, exhibit, nil)) {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if header.Size > maxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}
	defer src.Close()

	name := fmt.Sprintf("exhibit-%d-%d%s", exhibit.ID, time.Now().UnixNano(), ext)
	url, err := storage.GetAdapter().Store(name, src)
	if err != nil {
		logrus.WithError(err).WithField("exhibit_id", exhibit.ID).Error("Failed to store point image.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store image"})
		return
	}

	logrus.WithFields(logrus.Fields{"exhibit_id": exhibit.ID, "url": url}).Info("Point image stored.")
	c.JSON(http.StatusCreated, gin.H{"point_image": url})
}

// GetStorage reports the active storage web directory.
func GetStorage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"web_dir": storage.WebDir()})
}

// SetStorage swaps the storage adapter for one rooted at a new directory.
func SetStorage(c *gin.Context) {
	var body struct {
		WebDir string `json:"web_dir" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	storage.SetWebDir(body.WebDir)
	c.JSON(http.StatusOK, gin.H{"web_dir": storage.WebDir()})
}
