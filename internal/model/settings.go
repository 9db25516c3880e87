package model

import "time"

const DefaultTheme = "light"

// AppSettings is the per-user singleton of UI preferences.
type AppSettings struct {
	UserID           uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Theme            string    `gorm:"size:32;not null;default:light" json:"theme"`
	CurrentProjectID *string   `gorm:"size:64" json:"currentProjectId"`
	UpdatedAt        time.Time `json:"-"`
}

func (AppSettings) TableName() string {
	return "user_app_settings"
}

// DefaultAppSettings is what a user sees before saving anything.
func DefaultAppSettings(userID uint) AppSettings {
	current := DefaultProjectID
	return AppSettings{UserID: userID, Theme: DefaultTheme, CurrentProjectID: &current}
}
