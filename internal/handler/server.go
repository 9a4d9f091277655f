// Package handler implements the HTTP handlers for the Secret Santa API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, workshop.go, export.go) but share the same Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/secret-santa/internal/domain"
)

// WorkshopServicer defines the business operations the workshop handlers
// depend on. Defining the interface here, in the consumer package, lets
// handler tests inject a mock without touching the repo or service layer.
type WorkshopServicer interface {
	Create(ctx context.Context, name string, dollarLimit float64, players []domain.Player) (domain.Workshop, error)
	Get(ctx context.Context, code string) (domain.Workshop, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Workshop, int64, error)
	Delete(ctx context.Context, code string) error
	AddPlayers(ctx context.Context, code string, players []domain.Player) (domain.Workshop, error)
	RemovePlayers(ctx context.Context, code string, names []string) (domain.Workshop, error)
	Match(ctx context.Context, code string) (domain.Workshop, error)
	UpdateWishlist(ctx context.Context, code, name string, items []domain.WishlistItem) (domain.Workshop, error)
	GetPair(ctx context.Context, code, name string) (domain.PairLookup, error)
	Export(ctx context.Context, code string) ([]domain.ExportRow, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	workshops WorkshopServicer
	log       *slog.Logger
}

// NewServer constructs the Server with all its dependencies. A nil log uses
// slog.Default.
func NewServer(workshops WorkshopServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{workshops: workshops, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil)
}

// Routes returns a chi router with every API route registered. Callers add
// cross-cutting middleware around it.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/workshops", func(r chi.Router) {
		r.Post("/", s.CreateWorkshop)
		r.Get("/", s.ListWorkshops)

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", s.GetWorkshop)
			r.Delete("/", s.DeleteWorkshop)
			r.Post("/players", s.AddPlayers)
			r.Post("/players/remove", s.RemovePlayers)
			r.Post("/match", s.MatchWorkshop)
			r.Put("/players/{name}/wishlist", s.UpdateWishlist)
			r.Get("/players/{name}/pair", s.GetPair)
			r.Get("/export", s.GetExport)
		})
	})

	return r
}
