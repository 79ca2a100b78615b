package entity

import "time"

// Recipe is a generated recipe as stored in a user's history.
type Recipe struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Servings     string    `json:"servings"`
	Time         string    `json:"time"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	ImagePrompt  string    `json:"imagePrompt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ConflictResolution tells the generator how to treat ingredients that
// conflict with the user's dietary preferences.
type ConflictResolution string

const (
	ConflictResolutionNone                ConflictResolution = ""
	ConflictResolutionAssumeCompliant     ConflictResolution = "assume_compliant"
	ConflictResolutionSuggestAlternatives ConflictResolution = "suggest_alternatives"
	ConflictResolutionIgnorePreference    ConflictResolution = "ignore_preference"
	ConflictResolutionSaveException       ConflictResolution = "save_exception"
)

// PreferenceConflict lists the ingredients that conflict with one preference.
type PreferenceConflict struct {
	Preference  PreferenceTag `json:"preference"`
	Ingredients []string      `json:"ingredients"`
}

// ConflictReport is the outcome of a dietary conflict check.
type ConflictReport struct {
	Conflict  bool                 `json:"conflict"`
	Conflicts []PreferenceConflict `json:"conflicts"`
}

// IngredientClassification separates edible items from everything else.
type IngredientClassification struct {
	Edible    []string `json:"edible"`
	NonEdible []string `json:"nonEdible"`
}
