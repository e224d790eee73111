package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"map_exhibits/internal/config"
	"map_exhibits/internal/middleware"
	"map_exhibits/internal/models"
)

// isUniqueViolation matches the Postgres 23505 code and SQLite's message.
func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func parseID(c *gin.Context, param string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return uint(n), true
}

// loadExhibit fetches the exhibit named by the :id parameter and writes
// 404 or 500 itself when it cannot.
func loadExhibit(c *gin.Context) (*models.Exhibit, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	var exhibit models.Exhibit
	if err := config.DB.First(&exhibit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exhibit not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error: " + err.Error()})
		}
		return nil, false
	}
	return &exhibit, true
}

// ownership relates the caller to an exhibit and, optionally, a record.
func ownership(c *gin.Context, exhibit *models.Exhibit, record *models.Record) middleware.Ownership {
	who, ok := middleware.CurrentUser(c)
	if !ok {
		return middleware.Ownership{}
	}
	own := middleware.Ownership{OwnsExhibit: exhibit != nil && exhibit.OwnerID == who.UserID}
	if record == nil {
		// A record being created belongs to its creator.
		own.OwnsRecord = true
	} else {
		own.OwnsRecord = record.OwnerID == who.UserID
	}
	return own
}

// canView hides private exhibits from everyone but their owner and
// supers/admins.
func canView(c *gin.Context, exhibit *models.Exhibit) bool {
	if exhibit.Public {
		return true
	}
	who, ok := middleware.CurrentUser(c)
	if !ok {
		return false
	}
	return who.UserID == exhibit.OwnerID || who.Role == models.RoleSuper || who.Role == models.RoleAdmin
}

// formValues flattens a JSON body into the string attributes accepted by
// Record.Assign. null becomes "", which unsets the column.
func formValues(body map[string]interface{}) map[string]string {
	values := make(map[string]string, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case nil:
			values[k] = ""
		case string:
			values[k] = val
		case bool:
			if val {
				values[k] = "1"
			} else {
				values[k] = "0"
			}
		case float64:
			values[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			// nested objects are not record attributes
			continue
		}
	}
	return values
}
