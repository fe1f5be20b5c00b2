// Package webmodel projects storage records into the views served to clients.
//
// Every view lists the fields it copies in Copyable. ProjectFrom copies those
// fields from the source record, skipping nil source values so that a view can
// be patched in place, and then computes derived fields.
package webmodel

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var ErrTypeMismatch = errors.New("webmodel: source has the wrong type")

// Projection is implemented by every client view.
type Projection interface {
	Copyable() []string
	ProjectFrom(source any) error
}

// projectable constrains PT to a pointer to P that implements Projection.
type projectable[P any] interface {
	*P
	Projection
}

// FromDBModel projects one storage record into a new view.
func FromDBModel[P any, PT projectable[P]](source any) (*P, error) {
	view := PT(new(P))
	if err := view.ProjectFrom(source); err != nil {
		return nil, err
	}
	return (*P)(view), nil
}

// FromDBModels projects every record, stopping at the first failure.
func FromDBModels[P any, PT projectable[P], S any](sources []S) ([]P, error) {
	views := make([]P, len(sources))
	for i := range sources {
		if err := PT(&views[i]).ProjectFrom(&sources[i]); err != nil {
			return nil, fmt.Errorf("project item %d: %w", i, err)
		}
	}
	return views, nil
}

// sourceAs accepts T or *T and returns the pointer.
func sourceAs[T any](source any) (*T, error) {
	switch s := source.(type) {
	case *T:
		if s == nil {
			return nil, fmt.Errorf("%w: nil %T", ErrTypeMismatch, source)
		}
		return s, nil
	case T:
		return &s, nil
	}
	var want *T
	return nil, fmt.Errorf("%w: want %T, got %T", ErrTypeMismatch, want, source)
}

func patchString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts markdown to HTML. Raw HTML in the source is omitted.
func RenderMarkdown(src string) (string, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
