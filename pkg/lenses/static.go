package lenses

import "github.com/bosun-marine/bosun-engine/pkg/models"

// staticLens is a Lens whose mappings are fixed at compile time. The
// built-in lenses are all static.
type staticLens struct {
	name         string
	capabilities []models.CapabilityMapping
	microactions map[string][]models.LensMicroaction
}

func (l *staticLens) Name() string { return l.name }

func (l *staticLens) Capabilities() []models.CapabilityMapping {
	out := make([]models.CapabilityMapping, len(l.capabilities))
	copy(out, l.capabilities)
	return out
}

func (l *staticLens) Microactions() map[string][]models.LensMicroaction {
	out := make(map[string][]models.LensMicroaction, len(l.microactions))
	for k, v := range l.microactions {
		out[k] = append([]models.LensMicroaction(nil), v...)
	}
	return out
}

// NewStatic builds a Lens from fixed mappings.
func NewStatic(name string, capabilities []models.CapabilityMapping, microactions map[string][]models.LensMicroaction) Lens {
	return &staticLens{name: name, capabilities: capabilities, microactions: microactions}
}

func micro(actionID string, priority int) models.LensMicroaction {
	return models.LensMicroaction{ActionID: actionID, BasePriority: priority}
}

func microWhenZero(actionID string, priority int, field string, mode models.AvailabilityMode) models.LensMicroaction {
	return models.LensMicroaction{
		ActionID:     actionID,
		BasePriority: priority,
		Availability: &models.Availability{Field: field, WhenZero: mode},
	}
}
