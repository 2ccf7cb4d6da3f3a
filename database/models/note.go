package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Note struct {
	bun.BaseModel `bun:"table:notes"`

	ID         string    `bun:"id,pk" json:"id"`
	UserID     string    `bun:"user_id,notnull" json:"user_id"`
	Title      string    `bun:"title,notnull" json:"title"`
	Content    string    `bun:"content,notnull" json:"content"`
	Summary    *string   `bun:"summary" json:"summary,omitempty"`
	Generation int64     `bun:"generation,notnull,default:1" json:"-"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
