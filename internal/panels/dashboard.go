package panels

import (
	"context"

	"example.com/backstage/dashboard/internal/inflight"
	"example.com/backstage/dashboard/internal/namecache"
	"example.com/backstage/dashboard/internal/notify"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Dashboard groups the panels that share one backend, name cache and notifier
type Dashboard struct {
	Inventory  *Inventory
	Production *Production
	Plan       *Plan
	Purchases  *Purchases
	Products   *Products
	Simulation *Simulation

	Names    *namecache.Cache
	Notifier notify.Notifier
}

// NewDashboard wires every panel. index may be nil.
func NewDashboard(backend Backend, names *namecache.Cache, notifier notify.Notifier, index EventIndex, bomConcurrency int) *Dashboard {
	registry := inflight.New()
	return &Dashboard{
		Inventory:  NewInventory(backend, names, notifier),
		Production: NewProduction(backend, names, notifier),
		Plan:       NewPlan(backend, names, notifier),
		Purchases:  NewPurchases(backend, names, notifier),
		Products:   NewProducts(backend, names, notifier, registry, bomConcurrency),
		Simulation: NewSimulation(backend, notifier, registry, index),
		Names:      names,
		Notifier:   notifier,
	}
}

// LoadAll loads every panel concurrently and returns the first failure
func (d *Dashboard) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return d.Inventory.Load(ctx) })
	g.Go(func() error { return d.Production.Load(ctx) })
	g.Go(func() error { return d.Plan.Load(ctx) })
	g.Go(func() error { return d.Purchases.Load(ctx) })
	g.Go(func() error { return d.Products.Load(ctx) })
	g.Go(func() error { return d.Simulation.Init(ctx) })

	err := g.Wait()
	if err != nil {
		log.Warn().Err(err).Msg("dashboard loaded with failures")
	}
	return err
}
