package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/audit"
	"github.com/bosun-marine/bosun-engine/pkg/catalog"
	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/logging"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/statemachine"
	"github.com/bosun-marine/bosun-engine/pkg/validation"
)

// Dispatcher is the single entry point for invoking catalog actions.
type Dispatcher interface {
	// Execute runs LOOKUP, ROLE_CHECK, INPUT_VALIDATE, OWNERSHIP_CHECK,
	// STATE_CHECK, SIGNATURE_CHECK (SIGNED only), HANDLER_CALL and
	// AUDIT_WRITE in order. The first failing stage ends the invocation with
	// an *apperrors.ActionError.
	Execute(ctx context.Context, caller models.Caller, req *models.ActionRequest) (*models.ActionResult, error)
}

// ActionContext is everything the pipeline established before the handler runs.
type ActionContext struct {
	Caller     models.Caller
	Definition *models.ActionDefinition
	Payload    map[string]any

	// Target is the entity the action acts on; nil for creation actions.
	Target *models.Entity
	// References holds the other entities named in the payload, keyed by id field.
	References map[string]*models.Entity
	// NextStatus is the status STATE_CHECK resolved for Target.
	NextStatus string
	// StoragePath is set for actions with a storage policy.
	StoragePath string
	Signature   *models.SignatureEnvelope
}

// Outcome is what a handler reports back.
type Outcome struct {
	// Entity is the state after the handler ran, or the existing entity for a duplicate.
	Entity *models.Entity
	// Data is returned to the caller as-is.
	Data any
	// Duplicate marks a creation that matched an existing natural key.
	// Nothing was written, so nothing is audited.
	Duplicate bool
}

// ActionHandler carries out one catalog action. It is the only stage that
// writes to the store. Returning an *apperrors.ActionError passes it through
// unchanged; any other error becomes HANDLER_FAILURE.
type ActionHandler func(ctx context.Context, ac *ActionContext) (*Outcome, error)

// DispatcherDeps groups the collaborators of the dispatcher.
type DispatcherDeps struct {
	Catalog   *catalog.Catalog
	Machines  *statemachine.Set
	Handlers  map[string]ActionHandler
	Ownership OwnershipValidator
	Signature *SignatureVerifier
	Ledger    AuditLedger
	Tx        database.TxRunner
	Replay    *ReplayCache
	Security  *audit.SecurityAuditor
	Logger    *zap.Logger
}

type dispatcher struct {
	DispatcherDeps
	logger *zap.Logger
}

// NewDispatcher checks that every catalog action has exactly one handler and
// every handler names a catalog action.
func NewDispatcher(deps DispatcherDeps) (Dispatcher, error) {
	var missing, unknown []string
	for _, def := range deps.Catalog.All() {
		if deps.Handlers[def.ID] == nil {
			missing = append(missing, def.ID)
		}
	}
	for id := range deps.Handlers {
		if _, err := deps.Catalog.Lookup(id); err != nil {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	if len(missing) > 0 {
		return nil, fmt.Errorf("catalog actions without a handler: %v", missing)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("handlers for unregistered actions: %v", unknown)
	}

	return &dispatcher{DispatcherDeps: deps, logger: deps.Logger.Named("dispatcher")}, nil
}

var _ Dispatcher = (*dispatcher)(nil)

func (d *dispatcher) Execute(ctx context.Context, caller models.Caller, req *models.ActionRequest) (*models.ActionResult, error) {
	result, err := d.execute(ctx, caller, req)
	if err != nil {
		d.logFailure(caller, req.ActionID, err)
		return nil, err
	}
	return result, nil
}

func (d *dispatcher) execute(ctx context.Context, caller models.Caller, req *models.ActionRequest) (*models.ActionResult, error) {
	// LOOKUP
	def, err := d.Catalog.Lookup(req.ActionID)
	if err != nil {
		return nil, apperrors.NotRegistered(req.ActionID)
	}

	// ROLE_CHECK
	if !def.AllowsRole(caller.Role) {
		d.Security.LogAccessDenied(ctx, caller, def.ID)
		return nil, apperrors.Forbidden()
	}

	// INPUT_VALIDATE
	payload, rawSignature, err := d.preparePayload(def, caller, req.Payload)
	if err != nil {
		return nil, err
	}
	if err := validation.Validate(def, payload); err != nil {
		d.auditInjection(ctx, caller, def.ID, payload, err)
		return nil, err
	}

	replayKey := repositories.IdempotencyKey{
		YachtID: caller.YachtID, UserID: caller.UserID, ActionID: def.ID, Key: req.IdempotencyKey,
	}
	var payloadHash string
	if def.Variant.IsMutating() && d.Replay.Enabled() && req.IdempotencyKey != "" {
		if payloadHash, err = PayloadHash(req.Payload); err != nil {
			return nil, apperrors.Validation("payload", "payload could not be encoded")
		}
		replayed, err := d.replay(ctx, def, caller, replayKey, payloadHash, rawSignature)
		if err != nil || replayed != nil {
			return replayed, err
		}
	}

	ac := &ActionContext{
		Caller:     caller,
		Definition: def,
		Payload:    payload,
		References: make(map[string]*models.Entity),
	}

	// OWNERSHIP_CHECK
	if err := d.checkOwnership(ctx, ac); err != nil {
		return nil, err
	}

	if def.Storage != nil {
		entityID := uuid.Nil
		if ac.Target != nil {
			entityID = ac.Target.ID
		}
		if ac.StoragePath, err = ResolveStoragePath(def.Storage, caller.YachtID, entityID, payload); err != nil {
			return nil, err
		}
	}

	// STATE_CHECK
	if ac.Target != nil && def.Variant.IsMutating() {
		next, err := d.Machines.CanTransition(def.Domain, ac.Target.Status, def.ID)
		if err != nil {
			return nil, err
		}
		ac.NextStatus = next
	}

	// SIGNATURE_CHECK
	if def.Variant == models.VariantSigned {
		if ac.Signature, err = d.verifySignature(ctx, def, caller, rawSignature); err != nil {
			return nil, err
		}
	}

	// HANDLER_CALL and AUDIT_WRITE
	var outcome *Outcome
	var auditID *uuid.UUID
	if def.Variant.IsMutating() {
		outcome, auditID, err = d.runMutating(ctx, ac)
	} else {
		outcome, err = d.callHandler(ctx, ac)
	}
	if err != nil {
		return nil, err
	}

	result := &models.ActionResult{
		ActionID:  def.ID,
		Variant:   def.Variant,
		Data:      outcome.Data,
		Duplicate: outcome.Duplicate,
		AuditID:   auditID,
	}
	if outcome.Entity != nil {
		id := outcome.Entity.ID
		result.EntityID = &id
		if result.Data == nil {
			result.Data = outcome.Entity
		}
	}

	if payloadHash != "" {
		d.Replay.Store(ctx, replayKey, payloadHash, result)
	}
	return result, nil
}

// replay returns the cached result for key, or nil when there is none. A
// signed action's envelope is verified again before its result is served,
// and a key reused with a different payload is rejected.
func (d *dispatcher) replay(ctx context.Context, def *models.ActionDefinition, caller models.Caller, key repositories.IdempotencyKey, payloadHash string, rawSignature any) (*models.ActionResult, error) {
	cached := d.Replay.Lookup(ctx, key)
	if cached == nil {
		return nil, nil
	}
	if def.Variant == models.VariantSigned {
		if _, err := d.verifySignature(ctx, def, caller, rawSignature); err != nil {
			return nil, err
		}
	}
	if cached.PayloadHash != payloadHash {
		return nil, apperrors.Validation("idempotency_key", "idempotency key was already used with a different payload")
	}
	result := *cached.Result
	result.Replayed = true
	return &result, nil
}

func (d *dispatcher) verifySignature(ctx context.Context, def *models.ActionDefinition, caller models.Caller, raw any) (*models.SignatureEnvelope, error) {
	env, err := d.Signature.Verify(raw, caller)
	if err != nil {
		if ae, ok := apperrors.AsActionError(err); ok {
			d.Security.LogSignatureRejected(ctx, caller, def.ID, ae.Field, ae.Message)
		}
		return nil, err
	}
	return env, nil
}

// preparePayload copies the caller's payload, detaches the signature
// envelope and drops a yacht_id pre-filled by the suggestion engine.
func (d *dispatcher) preparePayload(def *models.ActionDefinition, caller models.Caller, in map[string]any) (map[string]any, any, error) {
	payload := make(map[string]any, len(in))
	for k, v := range in {
		payload[k] = v
	}

	raw, hasSignature := payload[SignatureKey]
	delete(payload, SignatureKey)
	if hasSignature && def.Variant != models.VariantSigned {
		return nil, nil, apperrors.Validation(SignatureKey, "signature is only accepted on signed actions")
	}

	if v, ok := payload["yacht_id"]; ok {
		if _, declared := def.Field("yacht_id"); !declared {
			if s, _ := v.(string); s != caller.YachtID.String() {
				return nil, nil, apperrors.Validation("yacht_id", "yacht_id does not match the caller's yacht")
			}
			delete(payload, "yacht_id")
		}
	}
	return payload, raw, nil
}

// checkOwnership verifies the target and every reference present in the payload.
func (d *dispatcher) checkOwnership(ctx context.Context, ac *ActionContext) error {
	def := ac.Definition
	for i, ref := range def.EntityRefs() {
		id, ok := validation.UUID(ac.Payload, ref.IDField)
		if !ok {
			// Optional reference not supplied; required ones were caught by validation.
			continue
		}
		entity, err := d.Ownership.Verify(ctx, ref.EntityType, id, ac.Caller.YachtID)
		if err != nil {
			if ae, ok := apperrors.AsActionError(err); ok && ae.Kind == apperrors.KindNotFound {
				d.Security.LogEntityNotFound(ctx, ac.Caller, def.ID, ref.EntityType, id)
			}
			return err
		}
		if i == 0 && def.Target != nil {
			ac.Target = entity
		} else {
			ac.References[ref.IDField] = entity
		}
	}
	return nil
}

func (d *dispatcher) callHandler(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	handler := d.Handlers[ac.Definition.ID]
	outcome, err := handler(ctx, ac)
	if err != nil {
		if _, ok := apperrors.AsActionError(err); ok {
			return nil, err
		}
		return nil, apperrors.HandlerFailure(err)
	}
	if outcome == nil {
		outcome = &Outcome{}
	}
	return outcome, nil
}

// runMutating runs the handler and the audit append in one transaction. An
// audit failure rolls back the handler's writes.
func (d *dispatcher) runMutating(ctx context.Context, ac *ActionContext) (*Outcome, *uuid.UUID, error) {
	var outcome *Outcome
	var auditID *uuid.UUID

	err := d.Tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if outcome, err = d.callHandler(ctx, ac); err != nil {
			return err
		}
		if outcome.Duplicate {
			return nil
		}

		entry := d.auditEntry(ac, outcome)
		if err := d.Ledger.Append(ctx, entry); err != nil {
			return apperrors.AuditWriteFailure(err)
		}
		auditID = &entry.ID
		return nil
	})
	if err != nil {
		if _, ok := apperrors.AsActionError(err); ok {
			return nil, nil, err
		}
		if errors.Is(err, database.ErrCommitFailed) {
			return nil, nil, apperrors.AuditWriteFailure(err)
		}
		return nil, nil, apperrors.HandlerFailure(err)
	}
	return outcome, auditID, nil
}

func (d *dispatcher) auditEntry(ac *ActionContext, outcome *Outcome) *models.AuditEntry {
	entry := &models.AuditEntry{
		ID:         uuid.New(),
		ActionID:   ac.Definition.ID,
		ActorID:    ac.Caller.UserID,
		ActorRole:  ac.Caller.Role,
		YachtID:    ac.Caller.YachtID,
		EntityType: ac.Definition.Domain,
		Signature:  ac.Signature,
	}
	if ac.Target != nil {
		id := ac.Target.ID
		entry.EntityID = &id
		entry.PriorState = ac.Target.Snapshot()
	}
	if outcome.Entity != nil {
		id := outcome.Entity.ID
		entry.EntityID = &id
		entry.EntityType = outcome.Entity.Type
		entry.NewState = outcome.Entity.Snapshot()
	}
	return entry
}

func (d *dispatcher) auditInjection(ctx context.Context, caller models.Caller, actionID string, payload map[string]any, err error) {
	var injection *validation.InjectionCheckResult
	if !errors.As(err, &injection) {
		return
	}
	value, _ := payload[injection.Field].(string)
	d.Security.LogInjectionAttempt(ctx, caller, actionID, audit.InjectionDetails{
		Field:       injection.Field,
		Value:       value,
		Fingerprint: injection.Fingerprint,
	})
}

func (d *dispatcher) logFailure(caller models.Caller, actionID string, err error) {
	fields := []zap.Field{
		zap.String("action_id", actionID),
		zap.String("yacht_id", caller.YachtID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("role", caller.Role),
	}

	ae, ok := apperrors.AsActionError(err)
	if !ok {
		d.logger.Error("Action failed with untyped error", append(fields, zap.String("error", logging.SanitizeError(err)))...)
		return
	}
	fields = append(fields, zap.String("kind", string(ae.Kind)))
	if ae.Kind.IsClient() {
		d.logger.Debug("Action rejected", append(fields, zap.String("field", ae.Field), zap.String("reason", ae.Message))...)
		return
	}
	d.logger.Error("Action failed", append(fields, zap.String("error", logging.SanitizeError(ae.Cause)))...)
}
