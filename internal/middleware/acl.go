package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"map_exhibits/internal/models"
)

type Resource string

const (
	ResourceExhibit Resource = "exhibit"
	ResourceRecord  Resource = "record"
)

type Privilege string

const (
	PrivIndex  Privilege = "index"
	PrivShow   Privilege = "show"
	PrivBrowse Privilege = "browse"
	PrivGet    Privilege = "get"
	PrivList   Privilege = "list"
	PrivAdd    Privilege = "add"
	PrivEdit   Privilege = "edit"
	PrivEditor Privilege = "editor"
	PrivPut    Privilege = "put"
	PrivImport Privilege = "import"
	PrivDelete Privilege = "delete"
	PrivPost   Privilege = "post"
)

// Ownership describes how the caller relates to the target. For a record
// being created, OwnsRecord is true.
type Ownership struct {
	OwnsExhibit bool
	OwnsRecord  bool
}

var publicPrivileges = map[Resource]map[Privilege]bool{
	ResourceExhibit: {PrivIndex: true, PrivShow: true, PrivBrowse: true, PrivGet: true},
	ResourceRecord:  {PrivIndex: true, PrivList: true, PrivGet: true},
}

// Allowed reports whether role may exercise priv on res.
//
// Researchers manage their own exhibits and any record inside them.
// Contributors can also manage their own records in other users' exhibits
// and open the editor of any exhibit. Supers and admins can do everything.
func Allowed(role string, res Resource, priv Privilege, own Ownership) bool {
	if publicPrivileges[res][priv] {
		return true
	}

	switch role {
	case models.RoleSuper, models.RoleAdmin:
		return true
	case models.RoleResearcher, models.RoleContributor:
	default:
		return false
	}
	contributor := role == models.RoleContributor

	switch res {
	case ResourceExhibit:
		switch priv {
		case PrivAdd:
			return true
		case PrivEditor:
			return contributor || own.OwnsExhibit
		case PrivEdit, PrivPut, PrivImport, PrivDelete:
			return own.OwnsExhibit
		}
	case ResourceRecord:
		switch priv {
		case PrivPost, PrivPut, PrivDelete:
			return own.OwnsExhibit || (contributor && own.OwnsRecord)
		}
	}
	return false
}

// Authorize checks the caller against the ACL and aborts with 401 or 403
// when the request is not allowed.
func Authorize(c *gin.Context, res Resource, priv Privilege, own Ownership) bool {
	who, authenticated := CurrentUser(c)
	if Allowed(who.Role, res, priv, own) {
		return true
	}
	if !authenticated {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	} else {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
	return false
}
