package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camnode/internal/api/models"
)

// registerLEDRoutes registers LED control routes when the board has a
// controllable LED.
func (s *Server) registerLEDRoutes() {
	if s.options.LEDController == nil {
		s.logger.Debug("LED controller not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "control-led",
		Method:      http.MethodPost,
		Path:        "/api/leds",
		Summary:     "Control LED",
		Description: "Override an LED's state and pattern. The next pipeline state change reapplies the automatic indication.",
		Tags:        []string{"leds"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.LEDRequest) (*struct{}, error) {
		pattern := ""
		if input.Body.Pattern != nil {
			pattern = *input.Body.Pattern
		}
		if err := s.options.LEDController.Set(input.Body.Type, input.Body.Enabled, pattern); err != nil {
			return nil, huma.Error400BadRequest("Failed to control LED", err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-led-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/leds/capabilities",
		Summary:     "LED Capabilities",
		Description: "List the LED types and patterns this board supports",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.LEDCapabilitiesResponse, error) {
		return &models.LEDCapabilitiesResponse{
			Body: models.LEDCapabilitiesData{
				AvailableTypes:    s.options.LEDController.Available(),
				AvailablePatterns: s.options.LEDController.Patterns(),
			},
		}, nil
	})
}
