package catalog

import "context"

// CategoryRepository is the source of truth for categories.
//
// Implementations return ErrNotFound for unknown IDs and ErrConflict for
// duplicate slugs or categories still referenced by products. Every write
// must be committed when the method returns without error.
type CategoryRepository interface {
	ListActive(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	Create(ctx context.Context, in CategoryInput) (Category, error)
	Update(ctx context.Context, id int64, in CategoryInput) (Category, error)
	Delete(ctx context.Context, id int64) error
}

// ProductRepository is the source of truth for products.
type ProductRepository interface {
	GetBySlug(ctx context.Context, slug string) (ProductDetail, error)
	Search(ctx context.Context, q Query) (Page[ProductSummary], error)
}

// HeroRepository stores the single hero banner document.
// Get returns ErrNotFound when nothing has been saved yet.
type HeroRepository interface {
	Get(ctx context.Context) (HeroSettings, error)
	Save(ctx context.Context, in HeroInput) (HeroSettings, error)
}

// Repositories groups the data sources the service reads and writes.
type Repositories struct {
	Categories CategoryRepository
	Products   ProductRepository
	Hero       HeroRepository
}
