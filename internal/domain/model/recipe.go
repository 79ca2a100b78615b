package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recipe is a generated recipe in a user's history.
type Recipe struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string                      `gorm:"size:128;not null;index:idx_recipes_user_created,priority:1" json:"user_id"`
	Title        string                      `gorm:"size:300;not null" json:"title"`
	Description  string                      `gorm:"type:text" json:"description"`
	Servings     string                      `gorm:"size:100" json:"servings"`
	Time         string                      `gorm:"size:100" json:"time"`
	Ingredients  datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"ingredients"`
	Instructions datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"instructions"`
	ImagePrompt  string                      `gorm:"type:text" json:"image_prompt"`
	CreatedAt    time.Time                   `gorm:"not null;index:idx_recipes_user_created,priority:2,sort:desc" json:"created_at"`
}

func (Recipe) TableName() string {
	return "recipes"
}
