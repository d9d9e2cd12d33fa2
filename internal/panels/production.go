package panels

import (
	"context"
	"sync"

	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/namecache"
	"example.com/backstage/dashboard/internal/notify"

	"golang.org/x/sync/errgroup"
)

// ProductionLine is a production order as displayed
type ProductionLine struct {
	models.ProductionOrder
	ProductName         string `json:"product_name"`
	FormattedCreation   string `json:"formatted_creation_date"`
	FormattedCompletion string `json:"formatted_expected_completion_date"`
}

// Production lists production orders
type Production struct {
	backend  Backend
	names    *namecache.Cache
	notifier notify.Notifier

	mu     sync.RWMutex
	orders []models.ProductionOrder
}

func NewProduction(backend Backend, names *namecache.Cache, notifier notify.Notifier) *Production {
	return &Production{backend: backend, names: names, notifier: notifier}
}

// Load fetches production orders and product names together
func (p *Production) Load(ctx context.Context) error {
	var orders []models.ProductionOrder

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = p.backend.ListProductionOrders(gctx)
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
	p.orders = orders
	p.mu.Unlock()
	return nil
}

// ProductName resolves id, falling back to #<id>
func (p *Production) ProductName(ctx context.Context, id int) string {
	return p.names.Name(ctx, id)
}

func (p *Production) Snapshot() []ProductionLine {
	p.mu.RLock()
	defer p.mu.RUnlock()

	lines := make([]ProductionLine, 0, len(p.orders))
	for _, o := range p.orders {
		lines = append(lines, ProductionLine{
			ProductionOrder:     o,
			ProductName:         p.names.Lookup(o.ProductID),
			FormattedCreation:   o.FormattedCreationDate(),
			FormattedCompletion: o.FormattedCompletionDate(),
		})
	}
	return lines
}
