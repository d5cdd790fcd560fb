package api

import "net/http"

// getSettings returns the study defaults.
// @Summary      Get settings
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  config.Settings
// @Router       /settings [get]
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Get())
}

// updateSettings replaces the study defaults.
// @Summary      Update settings
// @Description  Omitted fields keep their current values.
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        body  body      config.Settings  true  "New settings"
// @Success      200   {object}  config.Settings
// @Failure      400   {object}  map[string]string
// @Router       /settings [put]
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	next := h.settings.Get()
	if !decodeJSON(w, r, &next) {
		return
	}
	if err := next.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.Update(next); err != nil {
		h.logger.Error("failed to save settings", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	h.logger.Info("settings updated")
	respondJSON(w, http.StatusOK, h.settings.Get())
}
