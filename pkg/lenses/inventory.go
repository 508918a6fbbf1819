package lenses

import "github.com/bosun-marine/bosun-engine/pkg/models"

// QuantityOnHand is the part column availability rules read.
const QuantityOnHand = "quantity_on_hand"

func init() {
	register(NewStatic("inventory",
		[]models.CapabilityMapping{
			{EntityType: "part_number", CapabilityID: "part_by_number", Table: "pms_parts", Column: "part_number", ResultType: models.EntityTypePart},
			{EntityType: "part_name", CapabilityID: "part_by_name", Table: "pms_parts", Column: "name", ResultType: models.EntityTypePart},
			{EntityType: "stock_location", CapabilityID: "part_by_location", Table: "pms_parts", Column: "location", ResultType: models.EntityTypePart},
		},
		map[string][]models.LensMicroaction{
			models.EntityTypePart: {
				micro("view_part", 10),
				microWhenZero("consume_part", 50, QuantityOnHand, models.AvailabilityHideWhenZero),
				microWhenZero("restock_part", 30, QuantityOnHand, models.AvailabilityBoostWhenZero),
				micro("create_purchase_request", 40),
				micro("adjust_stock_count", 20),
			},
		},
	))
}
