package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"fittingroom/internal/domain"
	"fittingroom/internal/infra"
)

// TryOnService is the dispatcher the handlers delegate to.
type TryOnService interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error)
	ProviderStatus() map[string]bool
}

type App struct {
	Config *infra.Config
	Logger *infra.Logger
	TryOn  TryOnService
}

func NewApp(cfg *infra.Config, logger *infra.Logger, tryOn TryOnService) *App {
	return &App{Config: cfg, Logger: infra.LoggerOrDiscard(logger), TryOn: tryOn}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, errorResponse{Error: message})
}

type errorResponse struct {
	Error string `json:"error"`
}
