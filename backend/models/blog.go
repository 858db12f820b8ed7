package models

import (
	"time"

	"gorm.io/gorm"
)

type BlogPost struct {
	gorm.Model
	Title       string     `gorm:"not null" json:"title"`
	Slug        string     `gorm:"uniqueIndex;not null" json:"slug"`
	Excerpt     string     `json:"excerpt"`
	Body        string     `json:"body"` // raw markdown
	Published   bool       `gorm:"default:false" json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	AuthorID    uint       `json:"author_id"`
}
