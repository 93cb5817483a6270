package server

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"

	"github.com/spire-panel/spire/models"
)

// redactSettings hides the API key from read responses; it is only revealed
// on rotation.
func redactSettings(s *models.Settings) *models.Settings {
	out := *s
	if out.APIKey != "" {
		out.APIKey = "********"
	}
	return &out
}

// HandleGetSettingsGin returns the settings singleton, creating it on first
// read.
func (s *Server) HandleGetSettingsGin(c *gin.Context) {
	settings, err := s.Settings.GetSettings(c.Request.Context())
	if err != nil {
		respondErr(c, Internal("failed to load settings"))
		return
	}
	respondOK(c, redactSettings(settings))
}

// HandleUpdateSettingsGin applies a partial settings update. Onboarding
// completion is one-way; attempts to unset it are silently ignored.
func (s *Server) HandleUpdateSettingsGin(c *gin.Context) {
	var update models.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondErr(c, BadRequest("invalid settings payload").WithDetails(err.Error()))
		return
	}
	// The API key can only change through rotation.
	update.APIKey = nil
	settings, err := s.Settings.UpdateSettings(c.Request.Context(), update)
	if err != nil {
		respondErr(c, Internal("failed to update settings"))
		return
	}
	respondOK(c, redactSettings(settings))
}

// HandleRotateAPIKeyGin generates a fresh automation API key and returns it
// once. Subsequent reads only show a redacted placeholder.
func (s *Server) HandleRotateAPIKeyGin(c *gin.Context) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		respondErr(c, Internal("failed to generate api key"))
		return
	}
	key := "spk_" + hex.EncodeToString(buf)
	if _, err := s.Settings.SetAPIKey(c.Request.Context(), key); err != nil {
		respondErr(c, Internal("failed to store api key"))
		return
	}
	respondOK(c, gin.H{"apiKey": key})
}
