package settings

import "time"

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// Preferences are the display and notification settings of one user
type Preferences struct {
	UserID            string    `json:"user_id"`
	Theme             Theme     `json:"theme"`
	DynamicColor      bool      `json:"dynamic_color"`
	Language          string    `json:"language"`
	Timezone          string    `json:"timezone"`
	PushNotifications bool      `json:"push_notifications"`
	RecentWindowDays  int       `json:"recent_window_days"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpdatePreferencesRequest is the body of PUT /settings/preferences. Nil
// fields are left unchanged.
type UpdatePreferencesRequest struct {
	Theme             *Theme  `json:"theme"`
	DynamicColor      *bool   `json:"dynamic_color"`
	Language          *string `json:"language" binding:"omitempty,min=2,max=10"`
	Timezone          *string `json:"timezone"`
	PushNotifications *bool   `json:"push_notifications"`
	RecentWindowDays  *int    `json:"recent_window_days" binding:"omitempty,gte=1,lte=365"`
}
