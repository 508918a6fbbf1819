package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
)

// fakeStore is an in-memory stand-in for the PMS tables. InTx snapshots the
// whole store and restores it when fn fails, which is enough to observe
// rollback from the dispatcher's point of view.
type fakeStore struct {
	entities    map[uuid.UUID]*models.Entity
	notes       []fakeNote
	attachments map[string]uuid.UUID
	audit       []*models.AuditEntry

	auditErr  error // returned by every Append when set
	commitErr error // returned by the outermost InTx after fn succeeds
	depth     int
	getCalls  int
}

type fakeNote struct {
	WorkOrderID uuid.UUID
	AuthorID    uuid.UUID
	Body        string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities:    make(map[uuid.UUID]*models.Entity),
		attachments: make(map[string]uuid.UUID),
	}
}

type fakeSnapshot struct {
	entities    map[uuid.UUID]*models.Entity
	notes       []fakeNote
	attachments map[string]uuid.UUID
	audit       []*models.AuditEntry
}

func (s *fakeStore) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		entities:    make(map[uuid.UUID]*models.Entity, len(s.entities)),
		notes:       append([]fakeNote(nil), s.notes...),
		attachments: make(map[string]uuid.UUID, len(s.attachments)),
		audit:       append([]*models.AuditEntry(nil), s.audit...),
	}
	for id, e := range s.entities {
		snap.entities[id] = cloneEntity(e)
	}
	for k, v := range s.attachments {
		snap.attachments[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.entities = snap.entities
	s.notes = snap.notes
	s.attachments = snap.attachments
	s.audit = snap.audit
}

func cloneEntity(e *models.Entity) *models.Entity {
	c := *e
	c.Fields = make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		c.Fields[k] = v
	}
	return &c
}

// put seeds an entity and returns it.
func (s *fakeStore) put(entityType string, yachtID uuid.UUID, status string, fields map[string]any) *models.Entity {
	if fields == nil {
		fields = map[string]any{}
	}
	e := &models.Entity{Type: entityType, ID: uuid.New(), YachtID: yachtID, Status: status, Fields: fields}
	s.entities[e.ID] = e
	return cloneEntity(e)
}

func (s *fakeStore) entity(id uuid.UUID) *models.Entity {
	e, ok := s.entities[id]
	if !ok {
		return nil
	}
	return cloneEntity(e)
}

func (s *fakeStore) countType(entityType string) int {
	n := 0
	for _, e := range s.entities {
		if e.Type == entityType {
			n++
		}
	}
	return n
}

// database.TxRunner

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := s.snapshot()
	s.depth++
	err := fn(ctx)
	s.depth--
	if err == nil && s.depth == 0 && s.commitErr != nil {
		err = errors.Join(database.ErrCommitFailed, s.commitErr)
	}
	if err != nil {
		s.restore(snap)
	}
	return err
}

// repositories.EntityRepository

func (s *fakeStore) Get(_ context.Context, entityType string, id, yachtID uuid.UUID) (*models.Entity, error) {
	s.getCalls++
	e, ok := s.entities[id]
	if !ok || e.Type != entityType || e.YachtID != yachtID {
		return nil, apperrors.ErrNotFound
	}
	return cloneEntity(e), nil
}

func (s *fakeStore) Transition(_ context.Context, entityType string, yachtID, id uuid.UUID, from, to string, set map[string]any) (*models.Entity, error) {
	e, ok := s.entities[id]
	if !ok || e.Type != entityType || e.YachtID != yachtID || e.Status != from {
		return nil, apperrors.ErrConflict
	}
	e.Status = to
	for k, v := range set {
		if id, ok := v.(uuid.UUID); ok {
			v = id.String()
		}
		e.Fields[k] = v
	}
	return cloneEntity(e), nil
}

// repositories.WorkOrderRepository

func (s *fakeStore) Create(_ context.Context, yachtID uuid.UUID, wo repositories.NewWorkOrder) (*models.Entity, bool, error) {
	equipment := ""
	if wo.EquipmentID != nil {
		equipment = wo.EquipmentID.String()
	}
	for _, e := range s.entities {
		if e.Type != models.EntityTypeWorkOrder || e.YachtID != yachtID {
			continue
		}
		live := e.Status == "open" || e.Status == "in_progress" || e.Status == "on_hold"
		title, _ := e.Fields["title"].(string)
		eq, _ := e.Fields["equipment_id"].(string)
		if live && strings.EqualFold(title, wo.Title) && eq == equipment {
			return cloneEntity(e), false, nil
		}
	}
	fields := map[string]any{"title": wo.Title, "priority": wo.Priority, "created_by": wo.CreatedBy.String()}
	if equipment != "" {
		fields["equipment_id"] = equipment
	}
	return s.put(models.EntityTypeWorkOrder, yachtID, "open", fields), true, nil
}

func (s *fakeStore) AddNote(_ context.Context, _ uuid.UUID, workOrderID, authorID uuid.UUID, body string) (uuid.UUID, error) {
	s.notes = append(s.notes, fakeNote{WorkOrderID: workOrderID, AuthorID: authorID, Body: body})
	return uuid.New(), nil
}

// repositories.InventoryRepository

func (s *fakeStore) AdjustStock(_ context.Context, yachtID, partID uuid.UUID, delta float64) (*models.Entity, error) {
	e, ok := s.entities[partID]
	if !ok || e.YachtID != yachtID {
		return nil, apperrors.ErrConflict
	}
	qty, _ := e.NumberField("quantity_on_hand")
	if qty+delta < 0 {
		return nil, apperrors.ErrConflict
	}
	e.Fields["quantity_on_hand"] = qty + delta
	return cloneEntity(e), nil
}

func (s *fakeStore) SetStock(_ context.Context, yachtID, partID uuid.UUID, quantity int64) (*models.Entity, error) {
	e, ok := s.entities[partID]
	if !ok || e.YachtID != yachtID {
		return nil, apperrors.ErrNotFound
	}
	e.Fields["quantity_on_hand"] = float64(quantity)
	return cloneEntity(e), nil
}

func (s *fakeStore) CreatePurchaseRequest(_ context.Context, yachtID uuid.UUID, req repositories.NewPurchaseRequest) (*models.Entity, bool, error) {
	for _, e := range s.entities {
		if e.Type != models.EntityTypePurchaseRequest || e.YachtID != yachtID {
			continue
		}
		open := e.Status != "rejected" && e.Status != "received" && e.Status != "cancelled"
		if open && e.Fields["part_id"] == req.PartID.String() {
			return cloneEntity(e), false, nil
		}
	}
	return s.put(models.EntityTypePurchaseRequest, yachtID, "draft", map[string]any{
		"part_id":  req.PartID.String(),
		"quantity": float64(req.Quantity),
		"urgency":  req.Urgency,
	}), true, nil
}

// fakeCertificates adapts the store to CertificateRepository, whose Create
// would otherwise clash with the work order method.
type fakeCertificates struct{ s *fakeStore }

func (c fakeCertificates) Create(_ context.Context, yachtID uuid.UUID, cert repositories.NewCertificate) (*models.Entity, bool, error) {
	for _, e := range c.s.entities {
		if e.Type == models.EntityTypeCertificate && e.YachtID == yachtID &&
			e.Fields["certificate_type"] == cert.CertificateType && e.Fields["certificate_number"] == cert.CertificateNumber {
			return cloneEntity(e), false, nil
		}
	}
	return c.s.put(models.EntityTypeCertificate, yachtID, "valid", map[string]any{
		"certificate_type":   cert.CertificateType,
		"certificate_number": cert.CertificateNumber,
		"issuing_authority":  cert.IssuingAuthority,
		"issued_on":          cert.IssuedOn.Format("2006-01-02"),
		"expires_on":         cert.ExpiresOn.Format("2006-01-02"),
	}), true, nil
}

// repositories.AttachmentRepository

func (s *fakeStore) Record(_ context.Context, a *repositories.Attachment) error {
	key := a.YachtID.String() + "|" + a.Bucket + "|" + a.Path
	if id, ok := s.attachments[key]; ok {
		a.ID = id
		return nil
	}
	a.ID = uuid.New()
	s.attachments[key] = a.ID
	return nil
}

// fakeAudit adapts the store to AuditRepository.
type fakeAudit struct{ s *fakeStore }

func (a fakeAudit) Append(_ context.Context, entry *models.AuditEntry) error {
	if a.s.auditErr != nil {
		return a.s.auditErr
	}
	entry.CreatedAt = time.Now()
	a.s.audit = append(a.s.audit, entry)
	return nil
}

func (a fakeAudit) ListByEntity(_ context.Context, yachtID uuid.UUID, entityType string, entityID uuid.UUID) ([]*models.AuditEntry, error) {
	var out []*models.AuditEntry
	for _, e := range a.s.audit {
		if e.YachtID == yachtID && e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a fakeAudit) ListByYacht(_ context.Context, yachtID uuid.UUID, limit int) ([]*models.AuditEntry, error) {
	var out []*models.AuditEntry
	for _, e := range a.s.audit {
		if e.YachtID == yachtID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeReplay is an in-memory IdempotencyRepository.
type fakeReplay struct {
	entries map[string]repositories.IdempotencyEntry
}

func newFakeReplay() *fakeReplay {
	return &fakeReplay{entries: make(map[string]repositories.IdempotencyEntry)}
}

func (r *fakeReplay) Get(_ context.Context, key repositories.IdempotencyKey) (*repositories.IdempotencyEntry, error) {
	e, ok := r.entries[key.String()]
	if !ok {
		return nil, nil
	}
	res := *e.Result
	return &repositories.IdempotencyEntry{PayloadHash: e.PayloadHash, Result: &res}, nil
}

func (r *fakeReplay) Put(_ context.Context, key repositories.IdempotencyKey, entry *repositories.IdempotencyEntry, _ time.Duration) error {
	if _, ok := r.entries[key.String()]; !ok {
		res := *entry.Result
		r.entries[key.String()] = repositories.IdempotencyEntry{PayloadHash: entry.PayloadHash, Result: &res}
	}
	return nil
}

var (
	_ database.TxRunner                  = (*fakeStore)(nil)
	_ repositories.EntityRepository      = (*fakeStore)(nil)
	_ repositories.WorkOrderRepository   = (*fakeStore)(nil)
	_ repositories.InventoryRepository   = (*fakeStore)(nil)
	_ repositories.AttachmentRepository  = (*fakeStore)(nil)
	_ repositories.CertificateRepository = fakeCertificates{}
	_ repositories.AuditRepository       = fakeAudit{}
	_ repositories.IdempotencyRepository = (*fakeReplay)(nil)
)
