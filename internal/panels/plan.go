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

const opSendToProduction = "start_production"

// PlanOrderLine is one model line of a daily plan as displayed
type PlanOrderLine struct {
	models.DailyOrder
	ProductName string `json:"product_name"`
}

// PlanLine is a daily plan as displayed
type PlanLine struct {
	ID     int             `json:"id"`
	Day    string          `json:"day"`
	Orders []PlanOrderLine `json:"orders"`
}

// Plan is the daily plan panel (Pedidos)
type Plan struct {
	backend  Backend
	names    *namecache.Cache
	notifier notify.Notifier

	mu    sync.RWMutex
	plans []models.DailyPlan
}

func NewPlan(backend Backend, names *namecache.Cache, notifier notify.Notifier) *Plan {
	return &Plan{backend: backend, names: names, notifier: notifier}
}

// Load fetches the daily plans and product names together
func (p *Plan) Load(ctx context.Context) error {
	var plans []models.DailyPlan

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plans, err = p.backend.ListDailyPlan(gctx)
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
	p.plans = plans
	p.mu.Unlock()
	return nil
}

// ModelName resolves the model of a daily order
func (p *Plan) ModelName(model string) string {
	return p.names.ModelName(model)
}

// StartProduction sends a plan to production. When the backend accepts it every
// order of the plan is marked in production; a refusal leaves the plan untouched.
func (p *Plan) StartProduction(ctx context.Context, planID int) error {
	if err := p.backend.StartProduction(ctx, planID); err != nil {
		p.notifier.Failure(err)
		return err
	}

	p.mu.Lock()
	found := false
	for i := range p.plans {
		if p.plans[i].ID != planID {
			continue
		}
		found = true
		orders := make([]models.DailyOrder, len(p.plans[i].Orders))
		for j, o := range p.plans[i].Orders {
			o.Status = models.StatusInProduction
			orders[j] = o
		}
		p.plans[i].Orders = orders
	}
	p.mu.Unlock()

	if !found {
		log.Warn().Int("plan_id", planID).Msg("started a plan that is not loaded")
	}
	p.notifier.Info(opSendToProduction, "Pedido enviado a producción")
	return nil
}

func (p *Plan) Snapshot() []PlanLine {
	p.mu.RLock()
	defer p.mu.RUnlock()

	lines := make([]PlanLine, 0, len(p.plans))
	for _, plan := range p.plans {
		orders := make([]PlanOrderLine, 0, len(plan.Orders))
		for _, o := range plan.Orders {
			orders = append(orders, PlanOrderLine{DailyOrder: o, ProductName: p.names.ModelName(o.Model)})
		}
		lines = append(lines, PlanLine{ID: plan.ID, Day: plan.FormattedDay(), Orders: orders})
	}
	return lines
}
