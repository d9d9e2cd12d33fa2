// Package panels holds one view-model per dashboard panel. View-models fetch
// through the gateway, keep the latest state in memory and hand out copies.
package panels

import (
	"context"
	"strings"

	"example.com/backstage/dashboard/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Backend is the subset of gateway operations the panels use
type Backend interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, product models.Product) (models.Product, error)
	GetBOM(ctx context.Context, productID int) ([]models.BOMItem, error)
	AddBOMItem(ctx context.Context, productID int, item models.BOMItem) error
	RemoveBOMItem(ctx context.Context, productID, materialID int) error
	ListInventory(ctx context.Context) ([]models.InventoryItem, error)
	ListPurchaseOrders(ctx context.Context) ([]models.PurchaseOrder, error)
	CreatePurchaseOrder(ctx context.Context, order models.PurchaseOrder) (models.PurchaseOrder, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	ListProductionOrders(ctx context.Context) ([]models.ProductionOrder, error)
	StartProduction(ctx context.Context, orderID int) error
	ListDailyPlan(ctx context.Context) ([]models.DailyPlan, error)
	AdvanceSimulation(ctx context.Context) (models.SimulationStep, error)
	ListEvents(ctx context.Context) ([]models.ProductionEvent, error)
	CurrentDay(ctx context.Context) (string, error)
}

// ValidationError is a draft rejected before anything is sent to the backend
type ValidationError struct {
	Op      string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Op + ": " + e.Message
}

// IsValidation reports whether err is a local draft rejection
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func invalid(op, message string) error {
	return &ValidationError{Op: op, Message: message}
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// fieldMessages are shown when a struct tag fails on the named field
var fieldMessages = map[string]string{
	"SupplierID": "Debe seleccionar un proveedor",
	"ProductID":  "Debe seleccionar un producto",
	"MaterialID": "Debe seleccionar un material",
	"Quantity":   "La cantidad debe ser mayor que 0",
	"Name":       "El nombre es obligatorio",
	"Type":       "Tipo de producto no válido",
}

// validateDraft checks struct tags and turns the first failure into a ValidationError
func validateDraft(op string, draft interface{}) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(err, "validate draft")
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Error()
		}
		messages = append(messages, msg)
	}
	log.Debug().Str("op", op).Strs("errors", messages).Msg("draft rejected")
	return invalid(op, strings.Join(messages, "; "))
}
