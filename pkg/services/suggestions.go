package services

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/catalog"
	"github.com/bosun-marine/bosun-engine/pkg/lenses"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/statemachine"
)

// Priority bands. Lens base priorities sit below PriorityBoost.
const (
	PriorityBoost  = 90
	PriorityIntent = 100
)

// SuggestionService ranks the follow-up actions for one result entity.
type SuggestionService interface {
	// Suggest returns a fresh, deterministic list. An entity type with no
	// lens microactions yields an empty list.
	Suggest(entity *models.Entity, role, intent string) []models.MicroactionSuggestion
}

type suggestionService struct {
	catalog  *catalog.Catalog
	registry *lenses.Registry
	machines *statemachine.Set
	logger   *zap.Logger
}

// NewSuggestionService creates a new SuggestionService.
func NewSuggestionService(cat *catalog.Catalog, registry *lenses.Registry, machines *statemachine.Set, logger *zap.Logger) SuggestionService {
	return &suggestionService{
		catalog:  cat,
		registry: registry,
		machines: machines,
		logger:   logger.Named("suggestions"),
	}
}

var _ SuggestionService = (*suggestionService)(nil)

func (s *suggestionService) Suggest(entity *models.Entity, role, intent string) []models.MicroactionSuggestion {
	out := []models.MicroactionSuggestion{}
	if entity == nil {
		return out
	}
	intent = strings.TrimSpace(intent)

	for _, m := range s.registry.Microactions(entity.Type) {
		def, err := s.catalog.Lookup(m.ActionID)
		if err != nil {
			// Registry.Validate rejects this at startup.
			s.logger.Warn("Lens microaction is not registered", zap.String("action_id", m.ActionID))
			continue
		}
		if !def.AllowsRole(role) {
			continue
		}
		if targetsEntity(def, entity) && def.Variant.IsMutating() &&
			!s.machines.IsLegal(def.Domain, entity.Status, def.ID) {
			continue
		}

		priority := m.BasePriority
		if m.Availability != nil {
			if qty, ok := entity.NumberField(m.Availability.Field); ok && qty <= 0 {
				switch m.Availability.WhenZero {
				case models.AvailabilityHideWhenZero:
					continue
				case models.AvailabilityBoostWhenZero:
					priority = PriorityBoost
				}
			}
		}
		if intent != "" && intent == def.ID {
			priority = PriorityIntent
		}

		out = append(out, models.MicroactionSuggestion{
			ActionID: def.ID,
			Label:    def.Label,
			Variant:  def.Variant,
			Priority: priority,
			Prefill:  prefill(def, entity),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return s.catalog.Order(out[i].ActionID) < s.catalog.Order(out[j].ActionID)
	})
	return out
}

func targetsEntity(def *models.ActionDefinition, entity *models.Entity) bool {
	return def.Target != nil && def.Target.EntityType == entity.Type
}

// prefill fills the yacht id, every id field that points at entity, and any
// declared field the entity has a non-null value for.
func prefill(def *models.ActionDefinition, entity *models.Entity) map[string]any {
	values := map[string]any{"yacht_id": entity.YachtID.String()}

	for _, ref := range def.EntityRefs() {
		if ref.EntityType == entity.Type {
			values[ref.IDField] = entity.ID.String()
		}
	}
	for _, f := range def.Fields {
		if _, set := values[f.Name]; set {
			continue
		}
		if v, ok := entity.Fields[f.Name]; ok && v != nil {
			values[f.Name] = v
		}
	}
	return values
}
