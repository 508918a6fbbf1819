package statemachine

import (
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// Work order statuses.
//
//	open → in_progress ⇄ on_hold
//	in_progress → completed → closed
//	open, on_hold → cancelled
//	completed → in_progress (reopen), cancelled → open (reopen)
//	closed is final.
const (
	WorkOrderOpen       = "open"
	WorkOrderInProgress = "in_progress"
	WorkOrderOnHold     = "on_hold"
	WorkOrderCompleted  = "completed"
	WorkOrderClosed     = "closed"
	WorkOrderCancelled  = "cancelled"
)

// Purchase request statuses.
const (
	RequestDraft     = "draft"
	RequestSubmitted = "submitted"
	RequestApproved  = "approved"
	RequestRejected  = "rejected"
	RequestOrdered   = "ordered"
	RequestReceived  = "received"
	RequestCancelled = "cancelled"
)

// Certificate statuses.
const (
	CertificateValid      = "valid"
	CertificateSuperseded = "superseded"
	CertificateRevoked    = "revoked"
)

// WorkOrderMachine returns the work order transition table.
func WorkOrderMachine() *Machine {
	return &Machine{
		Domain:    models.EntityTypeWorkOrder,
		Initial:   WorkOrderOpen,
		Statuses:  []string{WorkOrderOpen, WorkOrderInProgress, WorkOrderOnHold, WorkOrderCompleted, WorkOrderClosed, WorkOrderCancelled},
		Terminal:  []string{WorkOrderClosed, WorkOrderCancelled},
		Reversals: []string{"reopen_work_order"},
		Transitions: map[string]map[string]string{
			WorkOrderOpen: {
				"start_work_order":        WorkOrderInProgress,
				"add_work_order_note":     WorkOrderOpen,
				"attach_work_order_photo": WorkOrderOpen,
				"cancel_work_order":       WorkOrderCancelled,
			},
			WorkOrderInProgress: {
				"add_work_order_note":     WorkOrderInProgress,
				"attach_work_order_photo": WorkOrderInProgress,
				"put_work_order_on_hold":  WorkOrderOnHold,
				"complete_work_order":     WorkOrderCompleted,
			},
			WorkOrderOnHold: {
				"resume_work_order":       WorkOrderInProgress,
				"add_work_order_note":     WorkOrderOnHold,
				"attach_work_order_photo": WorkOrderOnHold,
				"cancel_work_order":       WorkOrderCancelled,
			},
			WorkOrderCompleted: {
				"add_work_order_note":     WorkOrderCompleted,
				"attach_work_order_photo": WorkOrderCompleted,
				"close_work_order":        WorkOrderClosed,
				"reopen_work_order":       WorkOrderInProgress,
			},
			WorkOrderCancelled: {
				"reopen_work_order": WorkOrderOpen,
			},
		},
	}
}

// PurchaseRequestMachine returns the purchase request transition table.
func PurchaseRequestMachine() *Machine {
	return &Machine{
		Domain:   models.EntityTypePurchaseRequest,
		Initial:  RequestDraft,
		Statuses: []string{RequestDraft, RequestSubmitted, RequestApproved, RequestRejected, RequestOrdered, RequestReceived, RequestCancelled},
		Terminal: []string{RequestRejected, RequestReceived, RequestCancelled},
		Transitions: map[string]map[string]string{
			RequestDraft: {
				"submit_request": RequestSubmitted,
				"cancel_request": RequestCancelled,
			},
			RequestSubmitted: {
				"approve_request": RequestApproved,
				"reject_request":  RequestRejected,
				"cancel_request":  RequestCancelled,
			},
			RequestApproved: {
				"mark_request_ordered": RequestOrdered,
				"cancel_request":       RequestCancelled,
			},
			RequestOrdered: {
				"receive_request": RequestReceived,
			},
		},
	}
}

// CertificateMachine returns the certificate transition table.
func CertificateMachine() *Machine {
	return &Machine{
		Domain:    models.EntityTypeCertificate,
		Initial:   CertificateValid,
		Statuses:  []string{CertificateValid, CertificateSuperseded, CertificateRevoked},
		Terminal:  []string{CertificateSuperseded, CertificateRevoked},
		Reversals: []string{"reinstate_certificate"},
		Transitions: map[string]map[string]string{
			CertificateValid: {
				"upload_certificate_document": CertificateValid,
				"supersede_certificate":       CertificateSuperseded,
				"revoke_certificate":          CertificateRevoked,
			},
			CertificateRevoked: {
				"reinstate_certificate": CertificateValid,
			},
		},
	}
}

// Default returns the machines for every stateful domain.
func Default() (*Set, error) {
	return NewSet(WorkOrderMachine(), PurchaseRequestMachine(), CertificateMachine())
}

// MustDefault is Default for process startup.
func MustDefault() *Set {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}
