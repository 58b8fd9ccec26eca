package models

import (
	"github.com/localnerve/jam-build-crm/internal/types"
)

// ContentBlock is one section of a blog post
type ContentBlock struct {
	Title   string   `json:"title"`
	Details string   `json:"details"`
	Image   string   `json:"image,omitempty"`
	List    []string `json:"list"`
}

// Blog is a CMS article. Thumbnail and every block image are asset references.
type Blog struct {
	Base
	Author           types.ObjectID         `gorm:"type:varchar(24);not null;index" json:"author"`
	Title            string                 `gorm:"size:100;not null;index" json:"title"`
	IntroDescription string                 `gorm:"size:1000" json:"introDescription"`
	Thumbnail        string                 `gorm:"size:512" json:"thumbnail"`
	ContentBlocks    JSONList[ContentBlock] `json:"contentBlocks"`
	Tags             JSONList[string]       `json:"tags"`
}

// Assets lists every asset reference the post holds
func (b *Blog) Assets() []string {
	var assets []string
	if b.Thumbnail != "" {
		assets = append(assets, b.Thumbnail)
	}
	for _, block := range b.ContentBlocks {
		if block.Image != "" {
			assets = append(assets, block.Image)
		}
	}
	return assets
}

// Announcement is a short notice, optionally illustrated
type Announcement struct {
	Base
	UploadedBy  types.ObjectID `gorm:"type:varchar(24);not null;index" json:"uploadedBy"`
	Title       string         `gorm:"size:100;not null;index" json:"title"`
	Description string         `gorm:"size:1000;not null" json:"description"`
	Image       string         `gorm:"size:512" json:"image,omitempty"`
	Active      bool           `gorm:"not null" json:"active"`
}

// FAQ is a question and answer pair, optionally scoped to a service
type FAQ struct {
	Base
	CreatedBy types.ObjectID  `gorm:"type:varchar(24);not null;index" json:"createdBy"`
	Question  string          `gorm:"size:100;not null;index" json:"question"`
	Answer    string          `gorm:"size:1000" json:"answer"`
	Service   *types.ObjectID `gorm:"type:varchar(24);index" json:"service"`
}

// TableName overrides the table name for Blog
func (Blog) TableName() string {
	return "blogs"
}

// TableName overrides the table name for Announcement
func (Announcement) TableName() string {
	return "announcements"
}

// TableName overrides the table name for FAQ
func (FAQ) TableName() string {
	return "faqs"
}
