package panels

import (
	"context"
	"net/http"
	"testing"

	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/notify"
	"example.com/backstage/dashboard/internal/simday"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryResolvesNamesWithFallback(t *testing.T) {
	env := newEnv(t)
	env.fb.Lock()
	env.fb.Products = []models.Product{{ID: 1, Name: "acero", Type: models.ProductTypeRaw}}
	env.fb.Inventory = []models.InventoryItem{{ProductID: 1, Quantity: 40}, {ProductID: 42, Quantity: 3}}
	env.fb.Unlock()

	inv := NewInventory(env.client, env.names, env.center)
	require.NoError(t, inv.Load(context.Background()))

	assert.Equal(t, []InventoryLine{
		{ProductID: 1, ProductName: "acero", Quantity: 40},
		{ProductID: 42, ProductName: "#42", Quantity: 3},
	}, inv.Snapshot())
	assert.Equal(t, "#42", inv.ProductName(context.Background(), 42))
}

func TestInventoryLoadsWhenNamesFail(t *testing.T) {
	env := newEnv(t)
	env.fb.Lock()
	env.fb.Inventory = []models.InventoryItem{{ProductID: 1, Quantity: 40}}
	env.fb.Unlock()
	env.fb.Fail("GET /app/products/", http.StatusInternalServerError)

	inv := NewInventory(env.client, env.names, env.center)
	require.NoError(t, inv.Load(context.Background()))

	assert.Equal(t, "#1", inv.Snapshot()[0].ProductName)
	notes := env.center.List()
	require.Len(t, notes, 1)
	assert.Equal(t, "No se pudieron obtener los datos de productos", notes[0].Message)
}

func TestInventoryFailureKeepsPreviousState(t *testing.T) {
	env := newEnv(t)
	env.fb.Lock()
	env.fb.Inventory = []models.InventoryItem{{ProductID: 1, Quantity: 40}}
	env.fb.Unlock()

	inv := NewInventory(env.client, env.names, env.center)
	require.NoError(t, inv.Load(context.Background()))

	env.fb.Fail("GET /app/inventory/", http.StatusBadGateway)
	require.Error(t, inv.Load(context.Background()))
	assert.Len(t, inv.Snapshot(), 1)
}

func TestProductionSnapshotFormatsDates(t *testing.T) {
	env := newEnv(t)
	env.fb.Lock()
	env.fb.Products = []models.Product{{ID: 2, Name: "P3", Type: models.ProductTypeFinished}}
	env.fb.ProductionOrders = []models.ProductionOrder{{
		ID:                     5,
		ProductID:              2,
		Quantity:               4,
		Status:                 models.StatusPending,
		CreationDate:           simday.StampOf(simday.MustParse("2024-05-10")),
		ExpectedCompletionDate: simday.StampOf(simday.MustParse("2024-05-11")),
	}}
	env.fb.Unlock()

	prod := NewProduction(env.client, env.names, env.center)
	require.NoError(t, prod.Load(context.Background()))

	lines := prod.Snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, "P3", lines[0].ProductName)
	assert.Equal(t, "10/05/2024", lines[0].FormattedCreation)
	assert.Equal(t, "11/05/2024", lines[0].FormattedCompletion)
	assert.Equal(t, "#9", prod.ProductName(context.Background(), 9))
}

func loadPlan(t *testing.T, env *testEnv) *Plan {
	t.Helper()
	env.fb.Lock()
	env.fb.Products = []models.Product{{ID: 2, Name: "P3", Type: models.ProductTypeFinished}}
	env.fb.Plans = []models.DailyPlan{
		{ID: 1, Day: simday.StampOf(simday.MustParse("2024-05-11")), Orders: []models.DailyOrder{
			{Model: "P3", Quantity: 2, Status: models.StatusPending},
			{Model: "P9", Quantity: 1, Status: models.StatusPending},
		}},
		{ID: 2, Day: simday.StampOf(simday.MustParse("2024-05-12")), Orders: []models.DailyOrder{
			{Model: "P3", Quantity: 1, Status: models.StatusPending},
		}},
	}
	env.fb.Unlock()

	plan := NewPlan(env.client, env.names, env.center)
	require.NoError(t, plan.Load(context.Background()))
	return plan
}

func TestPlanStartProductionMarksOrders(t *testing.T) {
	env := newEnv(t)
	plan := loadPlan(t, env)

	require.NoError(t, plan.StartProduction(context.Background(), 1))

	lines := plan.Snapshot()
	assert.Equal(t, "11/05/2024", lines[0].Day)
	for _, o := range lines[0].Orders {
		assert.Equal(t, models.StatusInProduction, o.Status)
	}
	assert.Equal(t, models.StatusPending, lines[1].Orders[0].Status)
	assert.Equal(t, "P3", lines[0].Orders[0].ProductName)
	assert.Equal(t, "P9", lines[0].Orders[1].ProductName)
	assert.Equal(t, "P9", plan.ModelName("P9"))

	notes := env.center.List()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelInfo, notes[0].Level)
	assert.Equal(t, "Pedido enviado a producción", notes[0].Message)
	assert.Equal(t, 1, env.fb.Count("POST /app/production/start/1"))
}

func TestPlanBusinessRefusalLeavesStateUntouched(t *testing.T) {
	env := newEnv(t)
	plan := loadPlan(t, env)
	env.fb.Lock()
	env.fb.StartResults[1] = "Stock insuficiente de acero"
	env.fb.Unlock()

	require.Error(t, plan.StartProduction(context.Background(), 1))

	for _, o := range plan.Snapshot()[0].Orders {
		assert.Equal(t, models.StatusPending, o.Status)
	}
	notes := env.center.List()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelBusiness, notes[0].Level)
	assert.Equal(t, "Stock insuficiente de acero", notes[0].Message)
}
