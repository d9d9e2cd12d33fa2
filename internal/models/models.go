package models

import (
	"encoding/json"

	"example.com/backstage/dashboard/internal/simday"

	"github.com/shopspring/decimal"
)

// Product types
const (
	ProductTypeRaw      = "raw"
	ProductTypeFinished = "finished"
)

// Order statuses the dashboard sets or defaults to
const (
	StatusPending      = "pending"
	StatusInProduction = "in_production"
	StartResultOK      = "ok"
)

// Product is a raw material or a finished good
type Product struct {
	ID   int    `json:"id"`
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"oneof=raw finished"`
}

// IsRaw reports whether p is a raw material
func (p Product) IsRaw() bool { return p.Type == ProductTypeRaw }

// IsFinished reports whether p is a finished product
func (p Product) IsFinished() bool { return p.Type == ProductTypeFinished }

// BOMItem is one component line of a finished product's bill of materials
type BOMItem struct {
	MaterialID int `json:"material_id" validate:"required,gt=0"`
	Quantity   int `json:"quantity" validate:"gt=0"`
}

// BOM groups the components of one finished product
type BOM struct {
	ID                *int      `json:"id,omitempty"`
	FinishedProductID int       `json:"finished_product_id"`
	Components        []BOMItem `json:"components"`
}

// InventoryItem is the stock level of one product
type InventoryItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// Supplier sells exactly one product
type Supplier struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	ProductID    int             `json:"product_id"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	LeadTimeDays int             `json:"lead_time_days"`
}

// PurchaseOrder is an order of raw material to a supplier
type PurchaseOrder struct {
	ID                   int          `json:"id"`
	SupplierID           int          `json:"supplier_id" validate:"required,gt=0"`
	ProductID            int          `json:"product_id" validate:"required,gt=0"`
	Quantity             int          `json:"quantity" validate:"gt=0"`
	IssueDate            simday.Stamp `json:"issue_date"`
	ExpectedDeliveryDate simday.Stamp `json:"expected_delivery_date"`
	Status               string       `json:"status"`
}

func (o PurchaseOrder) FormattedIssueDate() string    { return o.IssueDate.Formatted() }
func (o PurchaseOrder) FormattedDeliveryDate() string { return o.ExpectedDeliveryDate.Formatted() }

// ProductionOrder is a request to manufacture a finished product
type ProductionOrder struct {
	ID                     int          `json:"id"`
	CreationDate           simday.Stamp `json:"creation_date"`
	ProductID              int          `json:"product_id"`
	Quantity               int          `json:"quantity"`
	Status                 string       `json:"status"`
	ExpectedCompletionDate simday.Stamp `json:"expected_completion_date"`
	DailyPlanID            *int         `json:"daily_plan_id,omitempty"`
}

func (o ProductionOrder) FormattedCreationDate() string { return o.CreationDate.Formatted() }
func (o ProductionOrder) FormattedCompletionDate() string {
	return o.ExpectedCompletionDate.Formatted()
}

// ProductionEvent is an immutable entry of the simulation log
type ProductionEvent struct {
	ID      *int         `json:"id,omitempty"`
	Type    string       `json:"type"`
	SimDate simday.Stamp `json:"sim_date"`
	Detail  string       `json:"detail"`
}

// Day is the calendar day the event belongs to
func (e ProductionEvent) Day() simday.Day { return e.SimDate.CalendarDay() }

func (e ProductionEvent) FormattedDate() string { return e.SimDate.Formatted() }

// DailyOrder is one model line of a daily plan
type DailyOrder struct {
	Model    string `json:"model"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
}

// DailyPlan lists what has to be produced on one simulated day
type DailyPlan struct {
	ID     int          `json:"id"`
	Day    simday.Stamp `json:"day"`
	Orders []DailyOrder `json:"orders"`
}

func (p DailyPlan) FormattedDay() string { return p.Day.Formatted() }

// ModelBOM is the raw material consumption of one model in the simulation config
type ModelBOM struct {
	BOM map[string]int `json:"bom"`
}

// SimulationConfig is the configuration document the backend simulation runs from
type SimulationConfig struct {
	CapacityPerDay int                 `json:"capacity_per_day"`
	Models         map[string]ModelBOM `json:"models"`
	Plan           []DailyPlan         `json:"plan"`
}

// SimulationStep is the answer to advancing the simulation one day
type SimulationStep struct {
	Day    simday.Stamp      `json:"day"`
	Events []ProductionEvent `json:"events"`
}

// CurrentDay is the answer of the current-day endpoint. Backends have used both
// keys and have sent non-date values, so both are kept raw.
type CurrentDay struct {
	CurrentDay json.RawMessage `json:"current_day,omitempty"`
	Day        json.RawMessage `json:"day,omitempty"`
}

// Value returns whichever key the backend filled, unquoted when it is a string
func (c CurrentDay) Value() string {
	for _, raw := range []json.RawMessage{c.CurrentDay, c.Day} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		return string(raw)
	}
	return ""
}

// StartProductionResult is the answer of the start-production endpoint
type StartProductionResult struct {
	Result string `json:"result"`
}

// OK reports whether the backend accepted the order
func (r StartProductionResult) OK() bool { return r.Result == StartResultOK }
