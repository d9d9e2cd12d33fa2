// Package namecache resolves product ids to display names for every panel
// from one shared catalogue snapshot.
package namecache

import (
	"context"
	"fmt"
	"sync"

	"example.com/backstage/dashboard/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Source loads the product catalogue
type Source interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// Store is a second-level copy of the catalogue shared between replicas
type Store interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// Fallback is the display name of an id that is not in the catalogue
func Fallback(id int) string {
	return fmt.Sprintf("#%d", id)
}

// Cache is a read-through id→name cache. Lookups never fail.
type Cache struct {
	source Source
	store  Store
	key    string
	group  singleflight.Group

	mu       sync.RWMutex
	loaded   bool
	products []models.Product
	names    map[int]string
	byName   map[string]string
}

// New creates a cache over source. store may be nil.
func New(source Source, store Store, key string) *Cache {
	return &Cache{
		source: source,
		store:  store,
		key:    key,
		names:  map[int]string{},
		byName: map[string]string{},
	}
}

// Name returns the display name of id, loading the catalogue on first use
func (c *Cache) Name(ctx context.Context, id int) string {
	if !c.isLoaded() {
		if err := c.ensure(ctx); err != nil {
			log.Warn().Err(err).Int("product_id", id).Msg("product names unavailable")
		}
	}
	return c.Lookup(id)
}

// Lookup resolves id from the current snapshot without fetching
func (c *Cache) Lookup(id int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if name, ok := c.names[id]; ok {
		return name
	}
	return Fallback(id)
}

// ModelName resolves the model of a daily order to a product name, or the model itself
func (c *Cache) ModelName(model string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if name, ok := c.byName[model]; ok {
		return name
	}
	return model
}

// Products returns the catalogue snapshot
func (c *Cache) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Replace installs a catalogue fetched elsewhere, e.g. by a panel reload
func (c *Cache) Replace(ctx context.Context, products []models.Product) {
	c.install(products)
	if c.store != nil {
		if err := c.store.Set(ctx, c.key, products); err != nil {
			log.Debug().Err(err).Msg("product names not shared")
		}
	}
}

// Refresh reloads the catalogue from the backend
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		products, err := c.source.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		c.Replace(ctx, products)
		return nil, nil
	})
	return err
}

// Invalidate drops the snapshot and the shared copy after a product mutation
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(ctx, c.key); err != nil {
			log.Debug().Err(err).Msg("shared product names not dropped")
		}
	}
}

func (c *Cache) isLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Cache) ensure(ctx context.Context) error {
	_, err, _ := c.group.Do("load", func() (interface{}, error) {
		if c.isLoaded() {
			return nil, nil
		}
		if c.store != nil {
			var shared []models.Product
			if err := c.store.Get(ctx, c.key, &shared); err == nil {
				c.install(shared)
				return nil, nil
			}
		}
		products, err := c.source.ListProducts(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load product catalogue")
		}
		c.Replace(ctx, products)
		return nil, nil
	})
	return err
}

func (c *Cache) install(products []models.Product) {
	names := make(map[int]string, len(products))
	byName := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
		byName[p.Name] = p.Name
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = append([]models.Product(nil), products...)
	c.names = names
	c.byName = byName
	c.loaded = true
}
