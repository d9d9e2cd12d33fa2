package handlers

import (
	"net/http"

	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/panels"
	"example.com/backstage/dashboard/internal/tracing"

	"github.com/gin-gonic/gin"
)

// PanelsHandler exposes the panel view-models. Every GET reloads its panel
// before answering.
type PanelsHandler struct {
	dashboard *panels.Dashboard
	tracer    tracing.Tracer
}

// NewPanelsHandler creates a new panels handler
func NewPanelsHandler(dashboard *panels.Dashboard, tracer tracing.Tracer) *PanelsHandler {
	return &PanelsHandler{dashboard: dashboard, tracer: tracer}
}

// ProductRequest is the body of product creation
type ProductRequest struct {
	Name string `json:"name"`
}

// AdvanceResponse is the answer to a day advance
type AdvanceResponse struct {
	Step       models.SimulationStep     `json:"step"`
	Simulation panels.SimulationSnapshot `json:"simulation"`
}

// SearchResponse is the answer to an event search
type SearchResponse struct {
	Query  string                   `json:"query"`
	Events []models.ProductionEvent `json:"events"`
}

// HandleGetInventory reloads and returns the stock panel
func (h *PanelsHandler) HandleGetInventory(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "get-inventory")
	defer end()

	if err := h.dashboard.Inventory.Load(c.Request.Context()); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Inventory.Snapshot())
}

// HandleGetProduction reloads and returns the production orders panel
func (h *PanelsHandler) HandleGetProduction(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "get-production")
	defer end()

	if err := h.dashboard.Production.Load(c.Request.Context()); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Production.Snapshot())
}

// HandleGetPlan reloads and returns the daily plan panel
func (h *PanelsHandler) HandleGetPlan(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "get-plan")
	defer end()

	if err := h.dashboard.Plan.Load(c.Request.Context()); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Plan.Snapshot())
}

// HandleStartProduction sends one daily plan to production
func (h *PanelsHandler) HandleStartProduction(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "start-production")
	defer end()

	id, err := intParam(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}
	h.tracer.AddAttribute(txn, "plan_id", id)

	if err := h.dashboard.Plan.StartProduction(c.Request.Context(), id); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Plan.Snapshot())
}

// HandleGetPurchases reloads and returns the purchases panel
func (h *PanelsHandler) HandleGetPurchases(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "get-purchases")
	defer end()

	if err := h.dashboard.Purchases.Load(c.Request.Context()); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Purchases.Snapshot())
}

// HandleSetPurchaseDraft replaces the editable fields of the purchase draft
func (h *PanelsHandler) HandleSetPurchaseDraft(c *gin.Context) {
	var req panels.PurchaseDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Purchases.SetDraft(req))
}

// HandleSelectSupplier fills the purchase draft from a supplier
func (h *PanelsHandler) HandleSelectSupplier(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "select-supplier")
	defer end()

	id, err := intParam(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}

	draft, err := h.dashboard.Purchases.SelectSupplier(id)
	if err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// HandleSubmitPurchase creates a purchase order from the draft
func (h *PanelsHandler) HandleSubmitPurchase(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "create-purchase-order")
	defer end()

	created, err := h.dashboard.Purchases.Submit(c.Request.Context())
	if err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	h.tracer.AddAttribute(txn, "order_id", created.ID)
	c.JSON(http.StatusCreated, created)
}

// HandleGetProducts reloads and returns the products panel
func (h *PanelsHandler) HandleGetProducts(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "get-products")
	defer end()

	if err := h.dashboard.Products.Load(c.Request.Context()); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Products.Snapshot())
}

// HandleCreateRawMaterial creates a raw material
func (h *PanelsHandler) HandleCreateRawMaterial(c *gin.Context) {
	h.createProduct(c, models.ProductTypeRaw)
}

// HandleCreateFinishedProduct creates a finished product
func (h *PanelsHandler) HandleCreateFinishedProduct(c *gin.Context) {
	h.createProduct(c, models.ProductTypeFinished)
}

func (h *PanelsHandler) createProduct(c *gin.Context, kind string) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "create-product")
	defer end()

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.tracer.AddAttribute(txn, "product_type", kind)

	var (
		created models.Product
		err     error
	)
	if kind == models.ProductTypeFinished {
		created, err = h.dashboard.Products.CreateFinishedProduct(c.Request.Context(), req.Name)
	} else {
		created, err = h.dashboard.Products.CreateRawMaterial(c.Request.Context(), req.Name)
	}
	if err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// HandleSetMaterialDraft replaces the add-material draft of a finished product
func (h *PanelsHandler) HandleSetMaterialDraft(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "set-material-draft")
	defer end()

	id, err := intParam(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}
	var item models.BOMItem
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.dashboard.Products.SetMaterialDraft(id, item); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Products.Snapshot())
}

// HandleAddMaterial sends the add-material draft of a finished product. A body,
// when present, replaces the draft first.
func (h *PanelsHandler) HandleAddMaterial(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "add-bom-item")
	defer end()

	id, err := intParam(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}

	if c.Request.ContentLength != 0 {
		var item models.BOMItem
		if err := c.ShouldBindJSON(&item); err != nil {
			badRequest(c, err)
			return
		}
		if err := h.dashboard.Products.SetMaterialDraft(id, item); err != nil {
			fail(c, h.tracer, txn, err)
			return
		}
	}

	if err := h.dashboard.Products.AddMaterial(c.Request.Context(), id); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Products.Snapshot())
}

// HandleRemoveMaterial drops a component from a finished product
func (h *PanelsHandler) HandleRemoveMaterial(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "remove-bom-item")
	defer end()

	id, err := intParam(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}
	materialID, err := intParam(c, "materialId")
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.dashboard.Products.RemoveMaterial(c.Request.Context(), id, materialID); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Products.Snapshot())
}

// HandleGetSimulation reloads the current day and history
func (h *PanelsHandler) HandleGetSimulation(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "get-simulation")
	defer end()

	if err := h.dashboard.Simulation.Init(c.Request.Context()); err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Simulation.Snapshot())
}

// HandleAdvance runs one simulated day. The history reload it starts keeps
// running after the response.
func (h *PanelsHandler) HandleAdvance(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "advance-simulation")
	defer end()

	step, err := h.dashboard.Simulation.Advance(c.Request.Context())
	if err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	h.tracer.AddAttribute(txn, "day", step.Day.CalendarDay().ISO())
	c.JSON(http.StatusOK, AdvanceResponse{Step: step, Simulation: h.dashboard.Simulation.Snapshot()})
}

// HandleSearchEvents finds events by text
func (h *PanelsHandler) HandleSearchEvents(c *gin.Context) {
	txn, end := h.tracer.StartTransaction(c.Request.Context(), "search-events")
	defer end()

	q := c.Query("q")
	events, err := h.dashboard.Simulation.SearchEvents(c.Request.Context(), q)
	if err != nil {
		fail(c, h.tracer, txn, err)
		return
	}
	c.JSON(http.StatusOK, SearchResponse{Query: q, Events: events})
}

// RegisterRoutes registers the handler's routes
func (h *PanelsHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")

	api.GET("/inventory", h.HandleGetInventory)
	api.GET("/production", h.HandleGetProduction)

	api.GET("/plan", h.HandleGetPlan)
	api.POST("/plan/:id/start", h.HandleStartProduction)

	api.GET("/purchases", h.HandleGetPurchases)
	api.PUT("/purchases/draft", h.HandleSetPurchaseDraft)
	api.POST("/purchases/draft/supplier/:id", h.HandleSelectSupplier)
	api.POST("/purchases", h.HandleSubmitPurchase)

	api.GET("/products", h.HandleGetProducts)
	api.POST("/products/raw", h.HandleCreateRawMaterial)
	api.POST("/products/finished", h.HandleCreateFinishedProduct)
	api.PUT("/products/:id/draft", h.HandleSetMaterialDraft)
	api.POST("/products/:id/materials", h.HandleAddMaterial)
	api.DELETE("/products/:id/materials/:materialId", h.HandleRemoveMaterial)

	api.GET("/simulation", h.HandleGetSimulation)
	api.POST("/simulation/advance", h.HandleAdvance)
	api.GET("/simulation/search", h.HandleSearchEvents)
}
