package panels

import (
	"context"
	"net/http"
	"testing"

	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/simday"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupSuppliersFirstOccurrenceWins(t *testing.T) {
	got := DedupSuppliers([]models.Supplier{
		{Name: "A", ID: 1},
		{Name: "A", ID: 2},
		{Name: "B", ID: 3},
	})
	assert.Equal(t, []models.Supplier{{Name: "A", ID: 1}, {Name: "B", ID: 3}}, got)
}

func loadPurchases(t *testing.T, env *testEnv) *Purchases {
	t.Helper()
	env.fb.Lock()
	env.fb.CurrentDay = "2024-05-10"
	env.fb.Products = []models.Product{
		{ID: 1, Name: "acero", Type: models.ProductTypeRaw},
		{ID: 2, Name: "P3", Type: models.ProductTypeFinished},
		{ID: 3, Name: "tornillo", Type: models.ProductTypeRaw},
	}
	env.fb.Suppliers = []models.Supplier{
		{ID: 10, Name: "Aceros SA", ProductID: 1, UnitCost: decimal.RequireFromString("12.50"), LeadTimeDays: 3},
		{ID: 11, Name: "Aceros SA", ProductID: 3, UnitCost: decimal.RequireFromString("0.10"), LeadTimeDays: 1},
		{ID: 12, Name: "Tornillos SL", ProductID: 3, UnitCost: decimal.RequireFromString("0.08"), LeadTimeDays: 2},
	}
	env.fb.Unlock()

	p := NewPurchases(env.client, env.names, env.center)
	require.NoError(t, p.Load(context.Background()))
	return p
}

func TestPurchasesLoad(t *testing.T) {
	env := newEnv(t)
	p := loadPurchases(t, env)

	snap := p.Snapshot()
	assert.Equal(t, simday.MustParse("2024-05-10"), snap.CurrentDay)
	assert.Len(t, snap.RawMaterials, 2)
	require.Len(t, snap.Suppliers, 2)
	assert.Equal(t, 10, snap.Suppliers[0].ID)
	assert.Equal(t, 12, snap.Suppliers[1].ID)

	// issue date tracks the simulated day, not the wall clock, and has no +1
	assert.Equal(t, "10/05/2024", snap.Draft.FormattedIssueDate())
	assert.Equal(t, models.StatusPending, snap.Draft.Status)
}

func TestPurchasesLoadKeepsWhatSucceeded(t *testing.T) {
	env := newEnv(t)
	env.fb.Lock()
	env.fb.CurrentDay = "2024-05-10"
	env.fb.Products = []models.Product{{ID: 1, Name: "acero", Type: models.ProductTypeRaw}}
	env.fb.PurchaseOrders = []models.PurchaseOrder{{ID: 5, SupplierID: 10, ProductID: 1, Quantity: 20}}
	env.fb.Unlock()
	env.fb.Fail("GET /app/suppliers/", http.StatusInternalServerError)

	p := NewPurchases(env.client, env.names, env.center)
	err := p.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list_suppliers")

	snap := p.Snapshot()
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, "acero", snap.Orders[0].ProductName)
	assert.Len(t, snap.RawMaterials, 1)
	assert.Empty(t, snap.Suppliers)
	assert.Equal(t, simday.MustParse("2024-05-10"), snap.CurrentDay)
	assert.Equal(t, "10/05/2024", snap.Draft.FormattedIssueDate())

	notes := env.center.List()
	require.Len(t, notes, 1)
	assert.Equal(t, "No se pudieron obtener los datos de proveedores", notes[0].Message)

	// a later successful load fills the missing part
	env.fb.Recover("GET /app/suppliers/")
	env.fb.Lock()
	env.fb.Suppliers = []models.Supplier{{ID: 10, Name: "Aceros SA", ProductID: 1, LeadTimeDays: 3}}
	env.fb.Unlock()
	require.NoError(t, p.Load(context.Background()))
	assert.Len(t, p.Snapshot().Suppliers, 1)
	assert.Len(t, p.Snapshot().Orders, 1)
}

func TestSelectSupplierFillsDraft(t *testing.T) {
	env := newEnv(t)
	p := loadPurchases(t, env)

	draft, err := p.SelectSupplier(11)
	require.NoError(t, err)
	assert.Equal(t, 11, draft.SupplierID)
	assert.Equal(t, 3, draft.ProductID)
	assert.Equal(t, "11/05/2024", draft.FormattedDeliveryDate())

	_, err = p.SelectSupplier(99)
	assert.True(t, IsValidation(err))
}

func TestSubmitRejectsLocally(t *testing.T) {
	env := newEnv(t)
	p := loadPurchases(t, env)
	day := simday.MustParse("2024-05-10")

	cases := map[string]PurchaseDraft{
		"zero quantity":         {SupplierID: 10, ProductID: 1, Quantity: 0, ExpectedDeliveryDate: day.AddDays(3)},
		"delivery on today":     {SupplierID: 10, ProductID: 1, Quantity: 5, ExpectedDeliveryDate: day},
		"delivery before today": {SupplierID: 10, ProductID: 1, Quantity: 5, ExpectedDeliveryDate: day.AddDays(-1)},
		"no delivery date":      {SupplierID: 10, ProductID: 1, Quantity: 5},
		"no supplier":           {ProductID: 1, Quantity: 5, ExpectedDeliveryDate: day.AddDays(3)},
		"no product":            {SupplierID: 10, Quantity: 5, ExpectedDeliveryDate: day.AddDays(3)},
		"wrong product":         {SupplierID: 10, ProductID: 3, Quantity: 5, ExpectedDeliveryDate: day.AddDays(3)},
		"unknown supplier":      {SupplierID: 77, ProductID: 1, Quantity: 5, ExpectedDeliveryDate: day.AddDays(3)},
	}
	for name, draft := range cases {
		p.SetDraft(draft)
		_, err := p.Submit(context.Background())
		assert.True(t, IsValidation(err), name)
	}

	assert.Zero(t, env.fb.Count("POST /app/purchases/orders"))
	assert.Empty(t, env.center.List())
}

func TestSubmitRejectsWhenDayUnknown(t *testing.T) {
	env := newEnv(t)
	p := loadPurchases(t, env)

	env.fb.Lock()
	env.fb.CurrentDay = "garbage"
	env.fb.Unlock()
	require.NoError(t, p.Load(context.Background()))

	p.SetDraft(PurchaseDraft{SupplierID: 10, ProductID: 1, Quantity: 5, ExpectedDeliveryDate: simday.MustParse("2024-06-01")})
	_, err := p.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Día actual")
	assert.Zero(t, env.fb.Count("POST /app/purchases/orders"))
}

func TestSubmitAppendsServerRecordAndResetsDraft(t *testing.T) {
	env := newEnv(t)
	p := loadPurchases(t, env)

	p.SetDraft(PurchaseDraft{SupplierID: 10, ProductID: 1, Quantity: 30, ExpectedDeliveryDate: simday.MustParse("2024-05-13")})
	created, err := p.Submit(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "10/05/2024", created.FormattedIssueDate())

	snap := p.Snapshot()
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, created, snap.Orders[0].PurchaseOrder)
	assert.Equal(t, "acero", snap.Orders[0].ProductName)
	assert.Equal(t, "Aceros SA", snap.Orders[0].SupplierName)
	assert.Equal(t, "13/05/2024", snap.Orders[0].FormattedDeliveryDate)

	assert.Zero(t, snap.Draft.Quantity)
	assert.Zero(t, snap.Draft.SupplierID)
	assert.True(t, snap.Draft.ExpectedDeliveryDate.IsZero())
	assert.Equal(t, "10/05/2024", snap.Draft.FormattedIssueDate())
}

func TestSubmitServerFailureKeepsDraft(t *testing.T) {
	env := newEnv(t)
	p := loadPurchases(t, env)
	env.fb.Fail("POST /app/purchases/orders", http.StatusBadRequest)

	p.SetDraft(PurchaseDraft{SupplierID: 10, ProductID: 1, Quantity: 30, ExpectedDeliveryDate: simday.MustParse("2024-05-13")})
	_, err := p.Submit(context.Background())
	require.Error(t, err)
	assert.False(t, IsValidation(err))

	assert.Equal(t, 30, p.Draft().Quantity)
	assert.Empty(t, p.Snapshot().Orders)
	notes := env.center.List()
	require.Len(t, notes, 1)
	assert.Equal(t, "Error al crear la orden de compra: fallo simulado", notes[0].Message)
}

func TestUnknownReferencesFallBackToId(t *testing.T) {
	env := newEnv(t)
	env.fb.Lock()
	env.fb.PurchaseOrders = []models.PurchaseOrder{{ID: 1, SupplierID: 55, ProductID: 66, Quantity: 1}}
	env.fb.Unlock()
	p := loadPurchases(t, env)

	line := p.Snapshot().Orders[0]
	assert.Equal(t, "#66", line.ProductName)
	assert.Equal(t, "#55", line.SupplierName)
}
