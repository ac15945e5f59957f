package service

import "strings"

// AccuLynx trade type ids for the services offered in the booking catalog
const (
	TradeTypeRoofing     = "7d2b2c8e-4f0a-4c43-9a3e-1f6a5b0e2c11"
	TradeTypeGutters     = "a3c91e54-2b7d-4e8f-8c1a-5d9e0f3b7a22"
	TradeTypeSiding      = "c5e8f1a2-9d3b-4a6c-b7e0-2f4d8a1c6b33"
	TradeTypeWindows     = "e1f4a7b0-3c6d-4f9e-a2b5-8c0d3e6f9a44"
	TradeTypeRepair      = "f2a5b8c1-4d7e-4a0f-b3c6-9d1e4f7a0b55"
	TradeTypeMaintenance = "0b3c6d9e-5f8a-4b1c-8d4e-7a0b3c6d9e66"
	TradeTypeInspection  = "1c4d7e0f-6a9b-4c2d-9e5f-8b1c4d7e0f77"

	// DefaultTradeTypeID is used when a category is missing or unknown
	DefaultTradeTypeID = TradeTypeRoofing
)

var tradeTypeIDs = map[string]string{
	"roofing":          TradeTypeRoofing,
	"roof_replacement": TradeTypeRoofing,
	"roof_repair":      TradeTypeRepair,
	"repair":           TradeTypeRepair,
	"storm_damage":     TradeTypeRepair,
	"gutters":          TradeTypeGutters,
	"gutter_guards":    TradeTypeGutters,
	"gutter_cleaning":  TradeTypeMaintenance,
	"siding":           TradeTypeSiding,
	"windows":          TradeTypeWindows,
	"maintenance":      TradeTypeMaintenance,
	"inspection":       TradeTypeInspection,
}

// TradeTypeFor maps a service category onto an AccuLynx trade type id.
// Unknown or missing categories fall back to roofing.
func TradeTypeFor(category *string) string {
	if category == nil {
		return DefaultTradeTypeID
	}
	key := strings.ToLower(strings.TrimSpace(*category))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if id, ok := tradeTypeIDs[key]; ok {
		return id
	}
	return DefaultTradeTypeID
}
