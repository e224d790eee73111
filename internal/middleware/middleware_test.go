package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"map_exhibits/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAllowedMatrix(t *testing.T) {
	none := Ownership{}
	exhibitOwner := Ownership{OwnsExhibit: true}
	recordOwner := Ownership{OwnsRecord: true}

	tests := []struct {
		name string
		role string
		res  Resource
		priv Privilege
		own  Ownership
		want bool
	}{
		{"anonymous shows exhibit", "", ResourceExhibit, PrivShow, none, true},
		{"anonymous lists records", "", ResourceRecord, PrivList, none, true},
		{"anonymous cannot add exhibit", "", ResourceExhibit, PrivAdd, none, false},
		{"anonymous cannot put record", "", ResourceRecord, PrivPut, recordOwner, false},

		{"researcher adds exhibit", models.RoleResearcher, ResourceExhibit, PrivAdd, none, true},
		{"researcher edits own exhibit", models.RoleResearcher, ResourceExhibit, PrivPut, exhibitOwner, true},
		{"researcher cannot edit foreign exhibit", models.RoleResearcher, ResourceExhibit, PrivPut, none, false},
		{"researcher cannot delete foreign exhibit", models.RoleResearcher, ResourceExhibit, PrivDelete, none, false},
		{"researcher cannot open foreign editor", models.RoleResearcher, ResourceExhibit, PrivEditor, none, false},
		{"researcher edits any record in own exhibit", models.RoleResearcher, ResourceRecord, PrivPut, exhibitOwner, true},
		{"researcher cannot post into foreign exhibit", models.RoleResearcher, ResourceRecord, PrivPost, recordOwner, false},

		{"contributor opens any editor", models.RoleContributor, ResourceExhibit, PrivEditor, none, true},
		{"contributor cannot put foreign exhibit", models.RoleContributor, ResourceExhibit, PrivPut, none, false},
		{"contributor posts into foreign exhibit", models.RoleContributor, ResourceRecord, PrivPost, recordOwner, true},
		{"contributor edits own record in foreign exhibit", models.RoleContributor, ResourceRecord, PrivPut, recordOwner, true},
		{"contributor cannot edit foreign record", models.RoleContributor, ResourceRecord, PrivDelete, none, false},

		{"super does anything", models.RoleSuper, ResourceExhibit, PrivDelete, none, true},
		{"admin does anything", models.RoleAdmin, ResourceRecord, PrivDelete, none, true},
		{"unknown role", "driver", ResourceExhibit, PrivAdd, none, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.res, tt.priv, tt.own))
		})
	}
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		who, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user_id": who.UserID, "role": who.Role})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	token, err := GenerateToken(7, models.RoleContributor)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, models.RoleContributor, claims.Role)

	SetSecret("rotated")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	SetSecret("test-secret")
	r := newRouter(RequireAuth())

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)

	token, err := GenerateToken(3, models.RoleResearcher)
	require.NoError(t, err)
	w := do(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":3,"role":"researcher"}`, w.Body.String())
}

func TestRequireAuthWithRole(t *testing.T) {
	SetSecret("test-secret")
	r := newRouter(RequireAuthWithRole(models.RoleAdmin, models.RoleSuper))

	researcher, err := GenerateToken(3, models.RoleResearcher)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, researcher).Code)

	admin, err := GenerateToken(1, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(r, admin).Code)
}

func TestOptionalAuth(t *testing.T) {
	SetSecret("test-secret")
	r := newRouter(OptionalAuth())

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0,"role":""}`, w.Body.String())
}

func TestAuthorize(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuth(), func(c *gin.Context) {
		if !Authorize(c, ResourceExhibit, PrivAdd, Ownership{}) {
			return
		}
		c.Status(http.StatusNoContent)
	})
	SetSecret("test-secret")

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)

	token, err := GenerateToken(9, models.RoleResearcher)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do(r, token).Code)
}

func TestEnableCORS(t *testing.T) {
	h := EnableCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://maps.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://maps.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
}
