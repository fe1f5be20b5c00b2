package webmodel

import (
	"time"

	"members/internal/model"
)

type PageView struct {
	ID          uint      `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html"`
	Published   bool      `json:"published"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (v *PageView) Copyable() []string {
	return []string{"id", "slug", "title", "content", "published", "updated_at"}
}

func (v *PageView) ProjectFrom(source any) error {
	page, err := sourceAs[model.Page](source)
	if err != nil {
		return err
	}
	v.ID = page.ID
	v.Slug = page.Slug
	v.Title = page.Title
	patchString(&v.Content, page.Content)
	v.Published = page.Published
	v.UpdatedAt = page.UpdatedAt

	v.ContentHTML, err = RenderMarkdown(v.Content)
	return err
}
