package gateway

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why a backend call failed
type Kind string

const (
	// KindTransport means the backend could not be reached or the request could not be built
	KindTransport Kind = "transport"
	// KindServer means the backend answered with a non-2xx status
	KindServer Kind = "server"
	// KindDecode means the backend answered 2xx with a body that is not the expected JSON
	KindDecode Kind = "decode"
	// KindBusiness means the backend answered 2xx but refused the operation in its payload
	KindBusiness Kind = "business"
)

// Backend operations
const (
	OpListProducts         = "list_products"
	OpCreateProduct        = "create_product"
	OpGetBOM               = "get_bom"
	OpAddBOMItem           = "add_bom_item"
	OpRemoveBOMItem        = "remove_bom_item"
	OpListInventory        = "list_inventory"
	OpListPurchaseOrders   = "list_purchase_orders"
	OpCreatePurchaseOrder  = "create_purchase_order"
	OpListSuppliers        = "list_suppliers"
	OpListProductionOrders = "list_production_orders"
	OpStartProduction      = "start_production"
	OpListDailyPlan        = "list_daily_plan"
	OpAdvanceSimulation    = "advance_simulation"
	OpListEvents           = "list_events"
	OpCurrentDay           = "current_day"
)

// userMessages are shown to the operator when an operation fails
var userMessages = map[string]string{
	OpListProducts:         "No se pudieron obtener los datos de productos",
	OpCreateProduct:        "Error al crear el producto",
	OpGetBOM:               "Error al cargar la lista de materiales",
	OpAddBOMItem:           "No se pudo añadir el material",
	OpRemoveBOMItem:        "No se pudo eliminar el material",
	OpListInventory:        "No se pudieron obtener los datos de inventario",
	OpListPurchaseOrders:   "No se pudieron obtener los datos de compras",
	OpCreatePurchaseOrder:  "Error al crear la orden de compra",
	OpListSuppliers:        "No se pudieron obtener los datos de proveedores",
	OpListProductionOrders: "No se pudieron obtener los datos de producción",
	OpStartProduction:      "No se pudo iniciar la producción",
	OpListDailyPlan:        "No se pudieron obtener los datos de pedidos",
	OpAdvanceSimulation:    "Error al avanzar la simulación",
	OpListEvents:           "No se pudieron cargar los eventos históricos",
	OpCurrentDay:           "No se pudo obtener el día actual de la simulación",
}

// Error is the failure outcome of every gateway call
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Operation names the backend operation that failed
func (e *Error) Operation() string { return e.Op }

// Business reports whether the backend refused the operation in a 2xx payload
func (e *Error) Business() bool { return e.Kind == KindBusiness }

// UserMessage is the text shown to the operator
func (e *Error) UserMessage() string {
	if e.Kind == KindBusiness && e.Detail != "" {
		return e.Detail
	}

	msg, ok := userMessages[e.Op]
	if !ok {
		msg = "Error de comunicación con el servidor"
	}

	if e.Op == OpCreatePurchaseOrder {
		reason := e.Detail
		if reason == "" && e.Err != nil {
			reason = e.Err.Error()
		}
		if reason != "" {
			msg += ": " + reason
		}
	}
	return msg
}

// IsKind reports whether err is a gateway error of the given kind
func IsKind(err error, kind Kind) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind == kind
	}
	return false
}
