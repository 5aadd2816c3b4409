package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
)

type Blog struct {
	Base
	Title      string         `gorm:"not null"                        json:"title"`
	Content    string         `gorm:"type:text;not null"              json:"content"`
	CoverImage string         `json:"cover_image"`
	Category   string         `gorm:"index;not null"                  json:"category"`
	AuthorID   uuid.UUID      `gorm:"type:uuid;index;not null"        json:"author_id"`
	Status     BlogStatus     `gorm:"size:16;not null;default:draft"  json:"status"`
	Tags       pq.StringArray `gorm:"type:text"                       json:"tags"`

	Author   *User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Comments []BlogComment `gorm:"foreignKey:BlogID"   json:"comments,omitempty"`
}

type BlogComment struct {
	Base
	BlogID  uuid.UUID `gorm:"type:uuid;index;not null" json:"blog_id"`
	Name    string    `gorm:"not null"                 json:"name"`
	Email   string    `gorm:"not null"                 json:"email"`
	Content string    `gorm:"type:text;not null"       json:"content"`
	Website string    `json:"website,omitempty"`
}
