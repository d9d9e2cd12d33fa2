package gateway

import (
	"context"
	"fmt"

	"example.com/backstage/dashboard/internal/models"
)

// ListProducts returns every raw and finished product
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.get(ctx, OpListProducts, "/app/products/", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct creates a product and returns the backend's copy
func (c *Client) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	payload := models.Product{ID: 0, Name: product.Name, Type: product.Type}

	var created models.Product
	if err := c.post(ctx, OpCreateProduct, "/app/products", payload, &created); err != nil {
		return models.Product{}, err
	}
	return created, nil
}

// GetBOM returns the components of a finished product
func (c *Client) GetBOM(ctx context.Context, productID int) ([]models.BOMItem, error) {
	var items []models.BOMItem
	if err := c.get(ctx, OpGetBOM, fmt.Sprintf("/app/bom/%d", productID), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddBOMItem adds or replaces a component of a finished product
func (c *Client) AddBOMItem(ctx context.Context, productID int, item models.BOMItem) error {
	return c.post(ctx, OpAddBOMItem, fmt.Sprintf("/app/bom/%d/add", productID), item, nil)
}

// RemoveBOMItem removes a component from a finished product
func (c *Client) RemoveBOMItem(ctx context.Context, productID, materialID int) error {
	return c.delete(ctx, OpRemoveBOMItem, fmt.Sprintf("/app/bom/%d/remove/%d", productID, materialID))
}

// ListInventory returns the stock of every product
func (c *Client) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := c.get(ctx, OpListInventory, "/app/inventory/", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListPurchaseOrders returns every purchase order
func (c *Client) ListPurchaseOrders(ctx context.Context) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	if err := c.get(ctx, OpListPurchaseOrders, "/app/purchases/orders/", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreatePurchaseOrder creates a purchase order; the backend assigns the id
func (c *Client) CreatePurchaseOrder(ctx context.Context, order models.PurchaseOrder) (models.PurchaseOrder, error) {
	order.ID = 0

	var created models.PurchaseOrder
	if err := c.post(ctx, OpCreatePurchaseOrder, "/app/purchases/orders", order, &created); err != nil {
		return models.PurchaseOrder{}, err
	}
	return created, nil
}

// ListSuppliers returns every supplier
func (c *Client) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if err := c.get(ctx, OpListSuppliers, "/app/suppliers/", &suppliers); err != nil {
		return nil, err
	}
	return suppliers, nil
}

// ListProductionOrders returns every production order
func (c *Client) ListProductionOrders(ctx context.Context) ([]models.ProductionOrder, error) {
	var orders []models.ProductionOrder
	if err := c.get(ctx, OpListProductionOrders, "/app/production/orders/", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// StartProduction sends an order to production. A result other than "ok"
// is returned as a KindBusiness error carrying the backend's message.
func (c *Client) StartProduction(ctx context.Context, orderID int) error {
	var result models.StartProductionResult
	if err := c.post(ctx, OpStartProduction, fmt.Sprintf("/app/production/start/%d", orderID), struct{}{}, &result); err != nil {
		return err
	}
	if !result.OK() {
		detail := result.Result
		if detail == "" {
			detail = "respuesta vacía del servidor"
		}
		return &Error{Op: OpStartProduction, Kind: KindBusiness, Detail: detail}
	}
	return nil
}

// ListDailyPlan returns the production plan of every simulated day
func (c *Client) ListDailyPlan(ctx context.Context) ([]models.DailyPlan, error) {
	var plans []models.DailyPlan
	if err := c.get(ctx, OpListDailyPlan, "/app/plan/", &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// AdvanceSimulation runs one simulated day and returns it with its events
func (c *Client) AdvanceSimulation(ctx context.Context) (models.SimulationStep, error) {
	var step models.SimulationStep
	if err := c.post(ctx, OpAdvanceSimulation, "/app/simulator/run", struct{}{}, &step); err != nil {
		return models.SimulationStep{}, err
	}
	return step, nil
}

// ListEvents returns the whole simulation log
func (c *Client) ListEvents(ctx context.Context) ([]models.ProductionEvent, error) {
	var events []models.ProductionEvent
	if err := c.get(ctx, OpListEvents, "/app/simulator/events/all", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CurrentDay returns the backend's current day exactly as sent. Callers
// decide what an unparsable value means.
func (c *Client) CurrentDay(ctx context.Context) (string, error) {
	var day models.CurrentDay
	if err := c.get(ctx, OpCurrentDay, "/app/simulator/current-day", &day); err != nil {
		return "", err
	}
	return day.Value(), nil
}
