package services

func (h *ActionHandlers) equipmentHandlers() map[string]ActionHandler {
	return map[string]ActionHandler{
		"view_equipment": view,
	}
}
