package models

import "gorm.io/gorm"

type Course struct {
	gorm.Model
	Title       string   `gorm:"not null" json:"title"`
	ShortDesc   string   `json:"short_desc"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"` // beginner, intermediate, advanced
	Topic       string   `json:"topic"`
	LogoURL     string   `json:"logo_url"`
	AuthorID    uint     `json:"author_id"`
	Published   bool     `gorm:"default:false" json:"published"`
	PriceMinor  int64    `gorm:"default:0" json:"price_minor"`
	Currency    string   `gorm:"type:varchar(3);default:'INR'" json:"currency"`
	Lessons     []Lesson `gorm:"constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

type Lesson struct {
	gorm.Model
	CourseID      uint   `gorm:"index;not null" json:"course_id"`
	Title         string `gorm:"not null" json:"title"`
	Description   string `json:"description"`
	Content       string `json:"content"` // raw markdown
	SequenceOrder int    `json:"sequence_order"`
}
