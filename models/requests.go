package models

// CreateNoteRequest is the payload for creating a note. WantSummary asks the
// backend to generate a summary asynchronously after the note is stored.
type CreateNoteRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	WantSummary bool   `json:"want_summary"`
}

// UpdateNoteRequest is the payload for updating a note in place.
type UpdateNoteRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	WantSummary bool   `json:"want_summary"`
}

// CreateRecipeRequest carries the pasted free-text recipe to be parsed in the
// background.
type CreateRecipeRequest struct {
	RecipeText string `json:"recipe_text"`
}
