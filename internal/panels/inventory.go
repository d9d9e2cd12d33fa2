package panels

import (
	"context"
	"sync"

	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/namecache"
	"example.com/backstage/dashboard/internal/notify"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// InventoryLine is one stock row with its product name resolved
type InventoryLine struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// Inventory is the stock panel
type Inventory struct {
	backend  Backend
	names    *namecache.Cache
	notifier notify.Notifier

	mu    sync.RWMutex
	items []models.InventoryItem
}

func NewInventory(backend Backend, names *namecache.Cache, notifier notify.Notifier) *Inventory {
	return &Inventory{backend: backend, names: names, notifier: notifier}
}

// Load fetches stock levels and product names together
func (p *Inventory) Load(ctx context.Context) error {
	var items []models.InventoryItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = p.backend.ListInventory(gctx)
		return err
	})
	g.Go(func() error {
		refreshNames(gctx, p.names, p.notifier)
		return nil
	})
	if err := g.Wait(); err != nil {
		p.notifier.Failure(err)
		return err
	}

	p.mu.Lock()
	p.items = items
	p.mu.Unlock()
	return nil
}

// ProductName resolves id, falling back to #<id>
func (p *Inventory) ProductName(ctx context.Context, id int) string {
	return p.names.Name(ctx, id)
}

// Snapshot returns the loaded stock rows
func (p *Inventory) Snapshot() []InventoryLine {
	p.mu.RLock()
	defer p.mu.RUnlock()

	lines := make([]InventoryLine, 0, len(p.items))
	for _, item := range p.items {
		lines = append(lines, InventoryLine{
			ProductID:   item.ProductID,
			ProductName: p.names.Lookup(item.ProductID),
			Quantity:    item.Quantity,
		})
	}
	return lines
}

// refreshNames reloads the shared catalogue. A failure is reported but the
// panel still loads; unknown ids then show as #<id>.
func refreshNames(ctx context.Context, names *namecache.Cache, notifier notify.Notifier) {
	if err := names.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("product names not refreshed")
		notifier.Failure(err)
	}
}
