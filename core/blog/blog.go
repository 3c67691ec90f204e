// Package blog manages the health articles published to parents.
package blog

import (
	"context"
	"path"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/listing"
)

const Collection = "blog"

// Blog statuses
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
)

type Blog struct {
	ID           core.ID   `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	ThumbnailURL string    `json:"image,omitempty"`
	Author       string    `json:"author,omitempty"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    core.Time `json:"created_at"`
	UpdatedAt    core.Time `json:"updated_at"`
}

func (b Blog) Key() core.ID         { return b.ID }
func (b Blog) StatusLabel() string  { return b.Status }
func (b Blog) SearchText() []string { return []string{b.Title, b.Author} }

func (b Blog) WithStatus(status string) Blog {
	b.Status = status
	return b
}

// UpdateBlog is the blog edit form. Image receives the uploaded thumbnail URL.
type UpdateBlog struct {
	Title   string `json:"title" validate:"required,notblank"`
	Content string `json:"content" validate:"required,notblank"`
	Image   string `json:"image"`
	Status  string `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
}

// Draft returns the edit form prefilled with b.
func (b Blog) Draft() UpdateBlog {
	return UpdateBlog{Title: b.Title, Content: b.Content, Image: b.ThumbnailURL, Status: b.Status}
}

type Service struct {
	client core.RESTClient
}

func NewService(client core.RESTClient) *Service {
	return &Service{client: client}
}

func blogPath(id core.ID) string {
	return path.Join("/", Collection, id.PathSegment())
}

func (svc *Service) List(ctx context.Context) ([]Blog, error) {
	var blogs []Blog
	if err := svc.client.Get(ctx, "/"+Collection, nil, &blogs); err != nil {
		return nil, errors.Wrap(err, "listing blogs")
	}
	return blogs, nil
}

func (svc *Service) Get(ctx context.Context, id core.ID) (Blog, error) {
	var b Blog
	err := svc.client.Get(ctx, blogPath(id), nil, &b)
	return b, err
}

func (svc *Service) Update(ctx context.Context, id core.ID, ub UpdateBlog) (Blog, error) {
	ub.Title = core.CleanString(ub.Title)
	var b Blog
	if err := svc.client.Put(ctx, blogPath(id), ub, &b); err != nil {
		return Blog{}, err
	}
	return b, nil
}

func (svc *Service) Delete(ctx context.Context, id core.ID) error {
	return svc.client.Delete(ctx, blogPath(id), nil, nil)
}

var Sorts = map[string]listing.Comparator[Blog]{
	"title":      listing.ByString(func(b Blog) string { return b.Title }),
	"created_at": listing.ByTime(func(b Blog) time.Time { return b.CreatedAt.Time }),
}
