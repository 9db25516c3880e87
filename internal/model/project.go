package model

import "time"

type ProjectStatus string

const (
	ProjectActive  ProjectStatus = "active"
	ProjectDeleted ProjectStatus = "deleted"
)

// Valid reports whether s is one of the known project statuses.
func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectDeleted
}

const (
	DefaultProjectID   = "proj_0"
	DefaultProjectName = "General Tasks"
)

// Project groups tasks for one user. The pair (UserID, ID) is the key; ids are
// only unique per user.
type Project struct {
	UserID    uint          `gorm:"primaryKey;autoIncrement:false" json:"-"`
	ID        string        `gorm:"primaryKey;size:64" json:"id"`
	Name      string        `gorm:"size:255;not null" json:"name"`
	Status    ProjectStatus `gorm:"size:16;not null;default:active;index" json:"status"`
	IsDefault bool          `gorm:"not null;default:false" json:"isDefault"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	DeletedAt *time.Time    `json:"deletedAt"`
}

func (p Project) Active() bool {
	return p.Status == ProjectActive
}

// NewDefaultProject builds the reserved "General Tasks" project for a user.
func NewDefaultProject(userID uint, now time.Time) Project {
	return Project{
		UserID:    userID,
		ID:        DefaultProjectID,
		Name:      DefaultProjectName,
		Status:    ProjectActive,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
