package lenses

import "github.com/bosun-marine/bosun-engine/pkg/models"

func init() {
	register(NewStatic("work_orders",
		[]models.CapabilityMapping{
			{EntityType: "work_order_number", CapabilityID: "work_order_by_number", Table: "pms_work_orders", Column: "wo_number", ResultType: models.EntityTypeWorkOrder},
			{EntityType: "work_order_title", CapabilityID: "work_order_by_title", Table: "pms_work_orders", Column: "title", ResultType: models.EntityTypeWorkOrder},
			{EntityType: "fault_description", CapabilityID: "work_order_by_description", Table: "pms_work_orders", Column: "description", ResultType: models.EntityTypeWorkOrder},
		},
		map[string][]models.LensMicroaction{
			models.EntityTypeWorkOrder: {
				micro("view_work_order", 10),
				micro("start_work_order", 50),
				micro("resume_work_order", 50),
				micro("complete_work_order", 55),
				micro("close_work_order", 60),
				micro("add_work_order_note", 30),
				micro("attach_work_order_photo", 20),
				micro("put_work_order_on_hold", 25),
				micro("cancel_work_order", 15),
				micro("reopen_work_order", 15),
			},
		},
	))
}
