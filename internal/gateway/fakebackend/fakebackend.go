// Package fakebackend serves an in-memory simulation backend over HTTP for tests.
package fakebackend

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"example.com/backstage/dashboard/config"
	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/simday"

	"github.com/gin-gonic/gin"
)

// Backend is a fake of the simulation REST backend. Exported fields may be
// changed between calls while holding no other reference; use Lock/Unlock when
// requests may be in flight.
type Backend struct {
	mu sync.Mutex

	Products         []models.Product
	BOMs             map[int][]models.BOMItem
	Inventory        []models.InventoryItem
	PurchaseOrders   []models.PurchaseOrder
	Suppliers        []models.Supplier
	ProductionOrders []models.ProductionOrder
	Plans            []models.DailyPlan
	Events           []models.ProductionEvent
	// CurrentDay is written verbatim into {"current_day": ...}
	CurrentDay string
	// StepEvents are returned, dated on the new day, by the next advance
	StepEvents []models.ProductionEvent
	// StartResults maps an order id to the result string of start-production; "ok" by default
	StartResults map[int]string

	failures map[string]int
	hook     func(r *http.Request)
	requests []string
	nextID   int

	server *httptest.Server
}

// Start launches the fake on a random local port
func Start() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		BOMs:         map[int][]models.BOMItem{},
		StartResults: map[int]string{},
		failures:     map[string]int{},
		nextID:       1000,
	}

	router := gin.New()
	router.Use(b.intercept)

	app := router.Group("/app")
	app.GET("/products/", b.listProducts)
	app.POST("/products", b.createProduct)
	app.GET("/bom/:id", b.getBOM)
	app.POST("/bom/:id/add", b.addBOMItem)
	app.DELETE("/bom/:id/remove/:material", b.removeBOMItem)
	app.GET("/inventory/", b.list(func() interface{} { return b.Inventory }))
	app.GET("/purchases/orders/", b.list(func() interface{} { return b.PurchaseOrders }))
	app.POST("/purchases/orders", b.createPurchaseOrder)
	app.GET("/suppliers/", b.list(func() interface{} { return b.Suppliers }))
	app.GET("/production/orders/", b.list(func() interface{} { return b.ProductionOrders }))
	app.POST("/production/start/:id", b.startProduction)
	app.GET("/plan/", b.list(func() interface{} { return b.Plans }))
	app.POST("/simulator/run", b.advance)
	app.GET("/simulator/events/all", b.list(func() interface{} { return b.Events }))
	app.GET("/simulator/current-day", b.currentDay)

	b.server = httptest.NewServer(router)
	return b
}

// Close stops the server
func (b *Backend) Close() {
	b.server.Close()
}

// URL is the base address of the fake
func (b *Backend) URL() string {
	return b.server.URL
}

// Config returns a backend configuration pointing at the fake
func (b *Backend) Config() config.BackendConfig {
	return config.BackendConfig{
		BrowserURL:   b.server.URL,
		ContainerURL: b.server.URL,
		Context:      config.ContextBrowser,
	}
}

func (b *Backend) Lock()   { b.mu.Lock() }
func (b *Backend) Unlock() { b.mu.Unlock() }

// Fail makes every request matching route ("GET /app/bom/:id") answer status
func (b *Backend) Fail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = status
}

// Recover clears a failure installed with Fail
func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// OnRequest installs a hook run before each request is served, outside the lock.
// Hooks may block to reorder responses.
func (b *Backend) OnRequest(hook func(r *http.Request)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = hook
}

// Requests returns "METHOD /path" for every request served so far
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.requests))
	copy(out, b.requests)
	return out
}

// Count returns how many requests matched "METHOD /path"
func (b *Backend) Count(request string) int {
	n := 0
	for _, r := range b.Requests() {
		if r == request {
			n++
		}
	}
	return n
}

func (b *Backend) intercept(c *gin.Context) {
	b.mu.Lock()
	b.requests = append(b.requests, c.Request.Method+" "+c.Request.URL.Path)
	hook := b.hook
	status, failing := b.failures[c.Request.Method+" "+c.FullPath()]
	b.mu.Unlock()

	if hook != nil {
		hook(c.Request)
	}
	if failing {
		c.AbortWithStatusJSON(status, gin.H{"detail": "fallo simulado"})
		return
	}
	c.Next()
}

func (b *Backend) list(source func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		c.JSON(http.StatusOK, source())
	}
}

func (b *Backend) listProducts(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.Products)
}

func (b *Backend) createProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.Products {
		if existing.Name == p.Name {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "El producto ya existe (nombre duplicado)."})
			return
		}
	}
	b.nextID++
	p.ID = b.nextID
	b.Products = append(b.Products, p)
	c.JSON(http.StatusOK, p)
}

func (b *Backend) getBOM(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.BOMs[id]
	if items == nil {
		items = []models.BOMItem{}
	}
	c.JSON(http.StatusOK, items)
}

func (b *Backend) addBOMItem(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	var item models.BOMItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.BOMs[id]
	for i := range items {
		if items[i].MaterialID == item.MaterialID {
			items[i].Quantity = item.Quantity
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
	}
	b.BOMs[id] = append(items, item)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (b *Backend) removeBOMItem(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	material, _ := strconv.Atoi(c.Param("material"))

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.BOMs[id][:0]
	for _, item := range b.BOMs[id] {
		if item.MaterialID != material {
			kept = append(kept, item)
		}
	}
	b.BOMs[id] = kept
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (b *Backend) createPurchaseOrder(c *gin.Context) {
	var order models.PurchaseOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	order.ID = b.nextID
	b.PurchaseOrders = append(b.PurchaseOrders, order)
	c.JSON(http.StatusOK, order)
}

func (b *Backend) startProduction(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	b.mu.Lock()
	defer b.mu.Unlock()
	result, ok := b.StartResults[id]
	if !ok {
		result = models.StartResultOK
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (b *Backend) advance(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	day, err := simday.Parse(b.CurrentDay)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "simulation has no current day"})
		return
	}
	next := day.AddDays(1)

	events := make([]models.ProductionEvent, 0, len(b.StepEvents))
	for _, e := range b.StepEvents {
		b.nextID++
		id := b.nextID
		e.ID = &id
		if e.SimDate.IsZero() {
			e.SimDate = simday.StampOf(next)
		}
		events = append(events, e)
	}
	b.StepEvents = nil
	b.Events = append(b.Events, events...)
	b.CurrentDay = next.ISO()

	c.JSON(http.StatusOK, gin.H{"day": next.ISO(), "events": events})
}

func (b *Backend) currentDay(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"current_day": b.CurrentDay})
}
