package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/catalog"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

func TestWorkOrderTransitions(t *testing.T) {
	s := MustDefault()

	tests := []struct {
		current string
		action  string
		want    string
		legal   bool
	}{
		{WorkOrderOpen, "start_work_order", WorkOrderInProgress, true},
		{WorkOrderOpen, "add_work_order_note", WorkOrderOpen, true},
		{WorkOrderOpen, "complete_work_order", "", false},
		{WorkOrderInProgress, "put_work_order_on_hold", WorkOrderOnHold, true},
		{WorkOrderOnHold, "resume_work_order", WorkOrderInProgress, true},
		{WorkOrderInProgress, "complete_work_order", WorkOrderCompleted, true},
		{WorkOrderCompleted, "close_work_order", WorkOrderClosed, true},
		{WorkOrderCompleted, "reopen_work_order", WorkOrderInProgress, true},
		{WorkOrderCancelled, "reopen_work_order", WorkOrderOpen, true},
		{WorkOrderClosed, "reopen_work_order", "", false},
		{WorkOrderClosed, "add_work_order_note", "", false},
		{"unknown_status", "start_work_order", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.current+"/"+tt.action, func(t *testing.T) {
			next, err := s.CanTransition(models.EntityTypeWorkOrder, tt.current, tt.action)
			if !tt.legal {
				require.Error(t, err)
				actionErr, ok := apperrors.AsActionError(err)
				require.True(t, ok)
				assert.Equal(t, apperrors.KindInvalidTransition, actionErr.Kind)
				assert.Contains(t, actionErr.Message, tt.current)
				assert.Contains(t, actionErr.Message, tt.action)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestPurchaseRequestTransitions(t *testing.T) {
	s := MustDefault()

	next, err := s.CanTransition(models.EntityTypePurchaseRequest, RequestSubmitted, "approve_request")
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, next)

	assert.False(t, s.IsLegal(models.EntityTypePurchaseRequest, RequestDraft, "approve_request"))
	assert.False(t, s.IsLegal(models.EntityTypePurchaseRequest, RequestReceived, "cancel_request"))
	assert.True(t, s.IsLegal(models.EntityTypePurchaseRequest, RequestOrdered, "receive_request"))
}

func TestCertificateTransitions(t *testing.T) {
	s := MustDefault()

	assert.True(t, s.IsLegal(models.EntityTypeCertificate, CertificateValid, "supersede_certificate"))
	assert.True(t, s.IsLegal(models.EntityTypeCertificate, CertificateRevoked, "reinstate_certificate"))
	assert.False(t, s.IsLegal(models.EntityTypeCertificate, CertificateSuperseded, "reinstate_certificate"))
}

func TestDomainWithoutMachine(t *testing.T) {
	s := MustDefault()

	next, err := s.CanTransition(models.EntityTypePart, "", "restock_part")
	require.NoError(t, err)
	assert.Equal(t, "", next)
}

func TestTerminalStatusesOnlyAllowReversal(t *testing.T) {
	reversals := map[string]bool{
		"reopen_work_order":     true,
		"reinstate_certificate": true,
	}
	s := MustDefault()
	for _, domain := range s.Domains() {
		m, _ := s.Machine(domain)
		for _, status := range m.Terminal {
			for _, action := range m.Legal(status) {
				assert.True(t, reversals[action], "%s: terminal %q permits %q", domain, status, action)
			}
		}
	}
}

func TestMachinesOnlyNameCatalogActions(t *testing.T) {
	c := catalog.MustDefault()
	s := MustDefault()

	for _, domain := range s.Domains() {
		m, _ := s.Machine(domain)
		for status, actions := range m.Transitions {
			for action := range actions {
				def, err := c.Lookup(action)
				require.NoError(t, err, "%s/%s", domain, status)
				assert.Equal(t, domain, def.Domain)
			}
		}
	}
}

func TestNewSet_Rejects(t *testing.T) {
	_, err := NewSet(&Machine{Domain: "x", Initial: "a", Statuses: []string{"b"}})
	require.Error(t, err)

	_, err = NewSet(&Machine{
		Domain:      "x",
		Initial:     "a",
		Statuses:    []string{"a"},
		Transitions: map[string]map[string]string{"a": {"go": "z"}},
	})
	require.Error(t, err)

	_, err = NewSet(WorkOrderMachine(), WorkOrderMachine())
	require.Error(t, err)
}

func TestNewSet_RejectsExitFromTerminalStatus(t *testing.T) {
	m := WorkOrderMachine()
	m.Transitions[WorkOrderClosed] = map[string]string{"add_work_order_note": WorkOrderClosed}

	_, err := NewSet(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add_work_order_note")

	m = CertificateMachine()
	m.Reversals = nil
	_, err = NewSet(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reinstate_certificate")
}

func TestIsTerminal(t *testing.T) {
	m := WorkOrderMachine()
	assert.True(t, m.IsTerminal(WorkOrderClosed))
	assert.True(t, m.IsTerminal(WorkOrderCancelled))
	assert.False(t, m.IsTerminal(WorkOrderCompleted))
	assert.True(t, m.IsReversal("reopen_work_order"))
	assert.False(t, m.IsReversal("close_work_order"))
}

func TestLegalIsSorted(t *testing.T) {
	m := WorkOrderMachine()
	assert.Equal(t, []string{"add_work_order_note", "attach_work_order_photo", "cancel_work_order", "start_work_order"}, m.Legal(WorkOrderOpen))
	assert.Empty(t, m.Legal(WorkOrderClosed))
}
