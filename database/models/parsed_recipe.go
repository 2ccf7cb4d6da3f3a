package models

// ParsedRecipe is the validated output of the completion service, the only
// shape the parser is allowed to persist. Optional fields stay empty when the
// model omitted them; Ingredients and Instructions are never nil.
type ParsedRecipe struct {
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	PrepTime     string       `json:"prepTime,omitempty"`
	CookTime     string       `json:"cookTime,omitempty"`
	TotalTime    string       `json:"totalTime,omitempty"`
	Servings     string       `json:"servings,omitempty"`
	Cuisine      string       `json:"cuisine,omitempty"`
	Category     string       `json:"category,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
}
