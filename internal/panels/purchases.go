package panels

import (
	"context"
	"sync"

	"example.com/backstage/dashboard/internal/gateway"
	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/namecache"
	"example.com/backstage/dashboard/internal/notify"
	"example.com/backstage/dashboard/internal/simday"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// PurchaseDraft is the editable part of a new purchase order. The issue date is
// not editable: it always follows the simulated day.
type PurchaseDraft struct {
	SupplierID           int        `json:"supplier_id"`
	ProductID            int        `json:"product_id"`
	Quantity             int        `json:"quantity"`
	ExpectedDeliveryDate simday.Day `json:"expected_delivery_date"`
}

// PurchaseLine is a purchase order as displayed
type PurchaseLine struct {
	models.PurchaseOrder
	ProductName           string `json:"product_name"`
	SupplierName          string `json:"supplier_name"`
	FormattedIssueDate    string `json:"formatted_issue_date"`
	FormattedDeliveryDate string `json:"formatted_delivery_date"`
}

// PurchasesSnapshot is a copy of the purchases panel state
type PurchasesSnapshot struct {
	Orders       []PurchaseLine       `json:"orders"`
	RawMaterials []models.Product     `json:"raw_materials"`
	Suppliers    []models.Supplier    `json:"suppliers"`
	CurrentDay   simday.Day           `json:"current_day"`
	Draft        models.PurchaseOrder `json:"draft"`
}

// Purchases is the purchase order panel (Compras)
type Purchases struct {
	backend  Backend
	names    *namecache.Cache
	notifier notify.Notifier

	mu           sync.RWMutex
	orders       []models.PurchaseOrder
	rawMaterials []models.Product
	allSuppliers []models.Supplier
	suppliers    []models.Supplier
	currentDay   simday.Day
	draft        models.PurchaseOrder
}

func NewPurchases(backend Backend, names *namecache.Cache, notifier notify.Notifier) *Purchases {
	p := &Purchases{backend: backend, names: names, notifier: notifier}
	p.draft = emptyPurchaseDraft(simday.Day{})
	return p
}

// Load fetches orders, raw materials, suppliers and the simulated day together.
// Each fetch fills its own part of the panel: a failed one is notified and
// leaves that part as it was, the others are still applied. The first failure
// is returned.
func (p *Purchases) Load(ctx context.Context) error {
	var (
		orders    []models.PurchaseOrder
		products  []models.Product
		suppliers []models.Supplier
		rawDay    string

		ordersErr, productsErr, suppliersErr, dayErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		orders, ordersErr = p.backend.ListPurchaseOrders(ctx)
		return nil
	})
	g.Go(func() error {
		products, productsErr = p.backend.ListProducts(ctx)
		return nil
	})
	g.Go(func() error {
		suppliers, suppliersErr = p.backend.ListSuppliers(ctx)
		return nil
	})
	g.Go(func() error {
		rawDay, dayErr = p.backend.CurrentDay(ctx)
		return nil
	})
	_ = g.Wait()

	if productsErr == nil {
		p.names.Replace(ctx, products)
	}

	var day simday.Day
	if dayErr == nil {
		parsed, err := simday.Parse(rawDay)
		if err != nil {
			log.Warn().Err(err).Str("value", rawDay).Msg("backend current day is not a date")
		}
		day = parsed
	}

	p.mu.Lock()
	if ordersErr == nil {
		p.orders = orders
	}
	if productsErr == nil {
		p.rawMaterials = lo.Filter(products, func(pr models.Product, _ int) bool { return pr.IsRaw() })
	}
	if suppliersErr == nil {
		p.allSuppliers = suppliers
		p.suppliers = DedupSuppliers(suppliers)
	}
	if dayErr == nil {
		p.currentDay = day
		p.draft.IssueDate = stampOrZero(day)
	}
	p.mu.Unlock()

	var first error
	for _, err := range []error{ordersErr, productsErr, suppliersErr, dayErr} {
		if err == nil {
			continue
		}
		p.notifier.Failure(err)
		if first == nil {
			first = err
		}
	}
	return first
}

// DedupSuppliers keeps the first supplier of every name
func DedupSuppliers(suppliers []models.Supplier) []models.Supplier {
	return lo.UniqBy(suppliers, func(s models.Supplier) string { return s.Name })
}

// SetDraft replaces the editable fields of the draft
func (p *Purchases) SetDraft(d PurchaseDraft) models.PurchaseOrder {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.draft.SupplierID = d.SupplierID
	p.draft.ProductID = d.ProductID
	p.draft.Quantity = d.Quantity
	p.draft.ExpectedDeliveryDate = stampOrZero(d.ExpectedDeliveryDate)
	return p.draft
}

// SelectSupplier fills supplier and product from a supplier and proposes a
// delivery date of issue date plus the supplier's lead time
func (p *Purchases) SelectSupplier(id int) (models.PurchaseOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	supplier, ok := lo.Find(p.allSuppliers, func(s models.Supplier) bool { return s.ID == id })
	if !ok {
		return p.draft, invalid(gateway.OpCreatePurchaseOrder, "Proveedor desconocido")
	}

	p.draft.SupplierID = supplier.ID
	p.draft.ProductID = supplier.ProductID
	if !p.currentDay.IsZero() {
		p.draft.ExpectedDeliveryDate = simday.StampOf(p.currentDay.AddDays(supplier.LeadTimeDays))
	}
	return p.draft, nil
}

// Submit validates the draft locally and creates the order. Nothing is sent
// when the draft is invalid.
func (p *Purchases) Submit(ctx context.Context) (models.PurchaseOrder, error) {
	p.mu.RLock()
	draft := p.draft
	day := p.currentDay
	suppliers := p.allSuppliers
	p.mu.RUnlock()

	if err := validatePurchase(draft, day, suppliers); err != nil {
		return models.PurchaseOrder{}, err
	}

	draft.IssueDate = simday.StampOf(day)
	created, err := p.backend.CreatePurchaseOrder(ctx, draft)
	if err != nil {
		p.notifier.Failure(err)
		return models.PurchaseOrder{}, err
	}

	p.mu.Lock()
	p.orders = append(p.orders, created)
	p.draft = emptyPurchaseDraft(p.currentDay)
	p.mu.Unlock()

	log.Info().Int("order_id", created.ID).Int("supplier_id", created.SupplierID).Msg("purchase order created")
	return created, nil
}

// Draft returns the current draft
func (p *Purchases) Draft() models.PurchaseOrder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.draft
}

func (p *Purchases) Snapshot() PurchasesSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	supplierNames := lo.SliceToMap(p.allSuppliers, func(s models.Supplier) (int, string) { return s.ID, s.Name })

	orders := make([]PurchaseLine, 0, len(p.orders))
	for _, o := range p.orders {
		name, ok := supplierNames[o.SupplierID]
		if !ok {
			name = namecache.Fallback(o.SupplierID)
		}
		orders = append(orders, PurchaseLine{
			PurchaseOrder:         o,
			ProductName:           p.names.Lookup(o.ProductID),
			SupplierName:          name,
			FormattedIssueDate:    o.FormattedIssueDate(),
			FormattedDeliveryDate: o.FormattedDeliveryDate(),
		})
	}

	return PurchasesSnapshot{
		Orders:       orders,
		RawMaterials: append([]models.Product{}, p.rawMaterials...),
		Suppliers:    append([]models.Supplier{}, p.suppliers...),
		CurrentDay:   p.currentDay,
		Draft:        p.draft,
	}
}

func validatePurchase(draft models.PurchaseOrder, day simday.Day, suppliers []models.Supplier) error {
	op := gateway.OpCreatePurchaseOrder

	if err := validateDraft(op, draft); err != nil {
		return err
	}
	if day.IsZero() {
		return invalid(op, "Día actual de la simulación desconocido")
	}
	delivery := draft.ExpectedDeliveryDate.CalendarDay()
	if delivery.IsZero() || !delivery.After(day) {
		return invalid(op, "La fecha de entrega debe ser posterior al día actual de la simulación")
	}

	supplier, ok := lo.Find(suppliers, func(s models.Supplier) bool { return s.ID == draft.SupplierID })
	if !ok {
		return invalid(op, "Proveedor desconocido")
	}
	if supplier.ProductID != draft.ProductID {
		return invalid(op, "El proveedor no suministra el producto seleccionado")
	}
	return nil
}

func emptyPurchaseDraft(day simday.Day) models.PurchaseOrder {
	return models.PurchaseOrder{
		IssueDate: stampOrZero(day),
		Status:    models.StatusPending,
	}
}

func stampOrZero(day simday.Day) simday.Stamp {
	if day.IsZero() {
		return simday.Stamp{}
	}
	return simday.StampOf(day)
}
