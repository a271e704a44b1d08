package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"fittingroom/internal/domain"
	"fittingroom/internal/middleware"
)

const defaultMaxRequestBytes = 32 << 20

type generateRequest struct {
	ProductImage string `json:"productImage"`
	UserPhoto    string `json:"userPhoto"`
	Provider     string `json:"provider,omitempty"`
}

type generateResponse struct {
	Image string `json:"image"`
}

// Generate handles POST /api/generate: one try-on image or one error.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultMaxRequestBytes)
	if a.Config != nil && a.Config.MaxRequestBytes > 0 {
		limit = a.Config.MaxRequestBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		a.Logger.Debug().Err(err).Msg("generate: rejected payload")
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	res, err := a.TryOn.Generate(r.Context(), domain.GenerationRequest{
		ProductImage: domain.ImageReference(req.ProductImage),
		PersonImage:  domain.ImageReference(req.UserPhoto),
		Provider:     domain.Provider(req.Provider),
		RequestID:    middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		genErr, ok := domain.AsGenerationError(err)
		if !ok {
			genErr = domain.WrapGenerationError(domain.CategoryUnknown, err.Error(), err)
		}
		a.error(w, genErr.Category.HTTPStatus(), genErr.Error())
		return
	}
	a.json(w, http.StatusOK, generateResponse{Image: res.ImageLocator})
}
