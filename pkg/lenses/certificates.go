package lenses

import "github.com/bosun-marine/bosun-engine/pkg/models"

func init() {
	register(NewStatic("certificates",
		[]models.CapabilityMapping{
			{EntityType: "certificate_number", CapabilityID: "certificate_by_number", Table: "pms_certificates", Column: "certificate_number", ResultType: models.EntityTypeCertificate},
			{EntityType: "certificate_type", CapabilityID: "certificate_by_type", Table: "pms_certificates", Column: "certificate_type", ResultType: models.EntityTypeCertificate},
			{EntityType: "issuing_authority", CapabilityID: "certificate_by_authority", Table: "pms_certificates", Column: "issuing_authority", ResultType: models.EntityTypeCertificate},
		},
		map[string][]models.LensMicroaction{
			models.EntityTypeCertificate: {
				micro("view_certificate", 10),
				micro("upload_certificate_document", 40),
				micro("supersede_certificate", 30),
				micro("reinstate_certificate", 30),
				micro("revoke_certificate", 15),
			},
		},
	))
}
