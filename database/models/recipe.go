package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ParseStatus string

const (
	ParsePending   ParseStatus = "pending"
	ParseSucceeded ParseStatus = "succeeded"
	ParseFailed    ParseStatus = "failed"
)

// Ingredient is one parsed ingredient line. Amount is free-form text and may
// be empty when the model could not separate it from the item.
type Ingredient struct {
	Item   string `json:"item"`
	Amount string `json:"amount,omitempty"`
}

type Recipe struct {
	bun.BaseModel `bun:"table:recipes"`

	ID           string       `bun:"id,pk" json:"id"`
	UserID       string       `bun:"user_id,notnull" json:"user_id"`
	Title        string       `bun:"title" json:"title"`
	Description  string       `bun:"description" json:"description,omitempty"`
	Ingredients  []Ingredient `bun:"ingredients,type:jsonb" json:"ingredients"`
	Instructions []string     `bun:"instructions,array" json:"instructions"`
	PrepTime     string       `bun:"prep_time" json:"prep_time,omitempty"`
	CookTime     string       `bun:"cook_time" json:"cook_time,omitempty"`
	TotalTime    string       `bun:"total_time" json:"total_time,omitempty"`
	Servings     string       `bun:"servings" json:"servings,omitempty"`
	Cuisine      string       `bun:"cuisine" json:"cuisine,omitempty"`
	Category     string       `bun:"category" json:"category,omitempty"`
	Tags         []string     `bun:"tags,array" json:"tags,omitempty"`
	OriginalText string       `bun:"original_text,notnull" json:"original_text"`

	// ParseStatus is the state of the background parse pipeline. ParseError
	// carries the failure detail; the description column is never overloaded
	// with error text.
	ParseStatus ParseStatus `bun:"parse_status,notnull,default:'pending'" json:"parse_status"`
	ParseError  string      `bun:"parse_error" json:"parse_error,omitempty"`

	// Generation fences asynchronous patches: a parse job carries the
	// generation it was scheduled against and its patch only applies while
	// the row still has that generation.
	Generation int64 `bun:"generation,notnull,default:1" json:"-"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
