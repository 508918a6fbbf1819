package lenses

import "github.com/bosun-marine/bosun-engine/pkg/models"

func init() {
	register(NewStatic("equipment",
		[]models.CapabilityMapping{
			{EntityType: "equipment_name", CapabilityID: "equipment_by_name", Table: "pms_equipment", Column: "name", ResultType: models.EntityTypeEquipment},
			{EntityType: "manufacturer", CapabilityID: "equipment_by_manufacturer", Table: "pms_equipment", Column: "manufacturer", ResultType: models.EntityTypeEquipment},
			{EntityType: "serial_number", CapabilityID: "equipment_by_serial", Table: "pms_equipment", Column: "serial_number", ResultType: models.EntityTypeEquipment},
		},
		map[string][]models.LensMicroaction{
			models.EntityTypeEquipment: {
				micro("view_equipment", 10),
				micro("create_work_order", 50),
			},
		},
	))
}
