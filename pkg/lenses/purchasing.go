package lenses

import "github.com/bosun-marine/bosun-engine/pkg/models"

func init() {
	register(NewStatic("purchasing",
		[]models.CapabilityMapping{
			{EntityType: "purchase_request_number", CapabilityID: "purchase_request_by_number", Table: "pms_purchase_requests", Column: "request_number", ResultType: models.EntityTypePurchaseRequest},
			{EntityType: "supplier_name", CapabilityID: "purchase_request_by_supplier", Table: "pms_purchase_requests", Column: "supplier", ResultType: models.EntityTypePurchaseRequest},
			{EntityType: "order_reference", CapabilityID: "purchase_request_by_order", Table: "pms_purchase_requests", Column: "order_reference", ResultType: models.EntityTypePurchaseRequest},
		},
		map[string][]models.LensMicroaction{
			models.EntityTypePurchaseRequest: {
				micro("view_purchase_request", 10),
				micro("submit_request", 50),
				micro("approve_request", 55),
				micro("reject_request", 30),
				micro("mark_request_ordered", 50),
				micro("receive_request", 55),
				micro("cancel_request", 15),
			},
		},
	))
}
