package models

import "gorm.io/gorm"

const (
	RoleResearcher  = "researcher"
	RoleContributor = "contributor"
	RoleSuper       = "super"
	RoleAdmin       = "admin"
)

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Role     string `json:"role"` // "researcher", "contributor", "super", "admin"

	Exhibits []Exhibit `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"exhibits,omitempty"`
}
