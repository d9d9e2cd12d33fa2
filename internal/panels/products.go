package panels

import (
	"context"
	"fmt"
	"sync"

	"example.com/backstage/dashboard/internal/gateway"
	"example.com/backstage/dashboard/internal/inflight"
	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/namecache"
	"example.com/backstage/dashboard/internal/notify"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const finishedProductNotice = "Producto creado. Por favor, añada al menos un material a la lista de materiales (BOM) para poder producirlo."

// BOMLine is one component of a finished product as displayed
type BOMLine struct {
	MaterialID   int    `json:"material_id"`
	MaterialName string `json:"material_name"`
	Quantity     int    `json:"quantity"`
}

// FinishedProductView is a finished product with its BOM and add-material draft
type FinishedProductView struct {
	models.Product
	BOM   []BOMLine      `json:"bom"`
	Draft models.BOMItem `json:"draft"`
}

// ProductsSnapshot is a copy of the products panel state
type ProductsSnapshot struct {
	RawMaterials     []models.Product      `json:"raw_materials"`
	FinishedProducts []FinishedProductView `json:"finished_products"`
}

// Products is the product catalogue and BOM panel (Productos)
type Products struct {
	backend     Backend
	names       *namecache.Cache
	notifier    notify.Notifier
	inflight    *inflight.Registry
	concurrency int

	mu       sync.RWMutex
	raw      []models.Product
	finished []models.Product
	boms     map[int][]models.BOMItem
	drafts   map[int]models.BOMItem
}

// NewProducts creates the panel. concurrency bounds the BOM fetches of one reload.
func NewProducts(backend Backend, names *namecache.Cache, notifier notify.Notifier, registry *inflight.Registry, concurrency int) *Products {
	if registry == nil {
		registry = inflight.New()
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Products{
		backend:     backend,
		names:       names,
		notifier:    notifier,
		inflight:    registry,
		concurrency: concurrency,
		boms:        map[int][]models.BOMItem{},
		drafts:      map[int]models.BOMItem{},
	}
}

const keyProducts = "products"

func bomKey(productID int) string {
	return fmt.Sprintf("bom:%d", productID)
}

func newMaterialDraft() models.BOMItem {
	return models.BOMItem{MaterialID: 0, Quantity: 1}
}

// Load fetches the catalogue, then the BOM of every finished product. A
// catalogue overtaken by a later Load is dropped along with its BOM fetches.
func (p *Products) Load(ctx context.Context) error {
	gen := p.inflight.Begin(keyProducts)

	products, err := p.backend.ListProducts(ctx)
	if err != nil {
		p.notifier.Failure(err)
		return err
	}

	raw := lo.Filter(products, func(pr models.Product, _ int) bool { return pr.IsRaw() })
	finished := lo.Filter(products, func(pr models.Product, _ int) bool { return pr.IsFinished() })

	applied := p.inflight.Commit(keyProducts, gen, func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		p.raw = raw
		p.finished = finished
		keep := lo.SliceToMap(finished, func(pr models.Product) (int, struct{}) { return pr.ID, struct{}{} })
		for id := range p.boms {
			if _, ok := keep[id]; !ok {
				delete(p.boms, id)
				delete(p.drafts, id)
			}
		}
	})
	if !applied {
		log.Debug().Uint64("generation", gen).Msg("discarding superseded catalogue")
		return nil
	}
	p.names.Replace(ctx, products)

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, fp := range finished {
		id := fp.ID
		g.Go(func() error {
			return p.ReloadBOM(ctx, id)
		})
	}
	return g.Wait()
}

// ReloadBOM fetches the BOM of one finished product. An answer overtaken by a
// later reload of the same product is dropped.
func (p *Products) ReloadBOM(ctx context.Context, productID int) error {
	key := bomKey(productID)
	gen := p.inflight.Begin(key)

	items, err := p.backend.GetBOM(ctx, productID)
	if err != nil {
		p.notifier.Failure(err)
		return err
	}
	if items == nil {
		items = []models.BOMItem{}
	}

	applied := p.inflight.Commit(key, gen, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.boms[productID] = items
		p.drafts[productID] = newMaterialDraft()
	})
	if !applied {
		log.Debug().Int("product_id", productID).Uint64("generation", gen).Msg("discarding superseded BOM")
	}
	return nil
}

// CreateRawMaterial creates a raw material and reloads the catalogue
func (p *Products) CreateRawMaterial(ctx context.Context, name string) (models.Product, error) {
	return p.create(ctx, models.Product{Name: name, Type: models.ProductTypeRaw})
}

// CreateFinishedProduct creates a finished product, reminds the operator that it
// needs a BOM, and reloads the catalogue
func (p *Products) CreateFinishedProduct(ctx context.Context, name string) (models.Product, error) {
	created, err := p.create(ctx, models.Product{Name: name, Type: models.ProductTypeFinished})
	if err == nil {
		p.notifier.Info(gateway.OpCreateProduct, finishedProductNotice)
	}
	return created, err
}

func (p *Products) create(ctx context.Context, product models.Product) (models.Product, error) {
	if err := validateDraft(gateway.OpCreateProduct, product); err != nil {
		return models.Product{}, err
	}

	created, err := p.backend.CreateProduct(ctx, product)
	if err != nil {
		p.notifier.Failure(err)
		return models.Product{}, err
	}

	p.names.Invalidate(ctx)
	if err := p.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("reload after product creation failed")
	}
	return created, nil
}

// SetMaterialDraft replaces the add-material draft of a finished product
func (p *Products) SetMaterialDraft(productID int, item models.BOMItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isFinished(productID) {
		return invalid(gateway.OpAddBOMItem, "Producto final desconocido")
	}
	p.drafts[productID] = item
	return nil
}

// AddMaterial sends the add-material draft of a finished product
func (p *Products) AddMaterial(ctx context.Context, productID int) error {
	p.mu.RLock()
	draft, ok := p.drafts[productID]
	known := p.isFinished(productID)
	isRaw := lo.ContainsBy(p.raw, func(pr models.Product) bool { return pr.ID == draft.MaterialID })
	p.mu.RUnlock()

	if !known || !ok {
		return invalid(gateway.OpAddBOMItem, "Producto final desconocido")
	}
	if err := validateDraft(gateway.OpAddBOMItem, draft); err != nil {
		return err
	}
	if !isRaw {
		return invalid(gateway.OpAddBOMItem, "El material debe ser una materia prima")
	}

	if err := p.backend.AddBOMItem(ctx, productID, draft); err != nil {
		p.notifier.Failure(err)
		return err
	}
	return p.afterBOMChange(ctx)
}

// RemoveMaterial drops a component from a finished product
func (p *Products) RemoveMaterial(ctx context.Context, productID, materialID int) error {
	if err := p.backend.RemoveBOMItem(ctx, productID, materialID); err != nil {
		p.notifier.Failure(err)
		return err
	}
	return p.afterBOMChange(ctx)
}

func (p *Products) afterBOMChange(ctx context.Context) error {
	if err := p.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("reload after BOM change failed")
	}
	return nil
}

// MaterialName resolves a material id, falling back to #<id>
func (p *Products) MaterialName(ctx context.Context, id int) string {
	return p.names.Name(ctx, id)
}

// BOM returns the loaded components of a finished product
func (p *Products) BOM(productID int) []models.BOMItem {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.BOMItem(nil), p.boms[productID]...)
}

func (p *Products) Snapshot() ProductsSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	views := make([]FinishedProductView, 0, len(p.finished))
	for _, fp := range p.finished {
		items := p.boms[fp.ID]
		lines := make([]BOMLine, 0, len(items))
		for _, item := range items {
			lines = append(lines, BOMLine{
				MaterialID:   item.MaterialID,
				MaterialName: p.names.Lookup(item.MaterialID),
				Quantity:     item.Quantity,
			})
		}
		draft, ok := p.drafts[fp.ID]
		if !ok {
			draft = newMaterialDraft()
		}
		views = append(views, FinishedProductView{Product: fp, BOM: lines, Draft: draft})
	}

	return ProductsSnapshot{
		RawMaterials:     append([]models.Product{}, p.raw...),
		FinishedProducts: views,
	}
}

func (p *Products) isFinished(productID int) bool {
	return lo.ContainsBy(p.finished, func(pr models.Product) bool { return pr.ID == productID })
}
