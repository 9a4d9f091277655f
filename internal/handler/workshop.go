package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/secret-santa/internal/domain"
)

// CreateWorkshopRequest is the body of POST /workshops.
type CreateWorkshopRequest struct {
	Name        string          `json:"name"`
	DollarLimit float64         `json:"dollarLimit"`
	Players     []domain.Player `json:"players"`
}

// PlayersRequest is the body of POST /workshops/{code}/players.
type PlayersRequest struct {
	Players []domain.Player `json:"players"`
}

// RemovePlayersRequest is the body of POST /workshops/{code}/players/remove.
// Names lists the players to keep; everyone else is removed.
type RemovePlayersRequest struct {
	Names []string `json:"names"`
}

// WishlistRequest is the body of PUT /workshops/{code}/players/{name}/wishlist.
type WishlistRequest struct {
	Wishlist []domain.WishlistItem `json:"wishlist"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// WorkshopList is the body of GET /workshops.
type WorkshopList struct {
	Data       []domain.Workshop `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// CreateWorkshop handles POST /workshops.
func (s *Server) CreateWorkshop(w http.ResponseWriter, r *http.Request) {
	var body CreateWorkshopRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	created, err := s.workshops.Create(r.Context(), body.Name, body.DollarLimit, body.Players)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListWorkshops handles GET /workshops.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListWorkshops(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		requestError(w, fmt.Sprintf("invalid format for parameter page: %v", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		requestError(w, fmt.Sprintf("invalid format for parameter limit: %v", err))
		return
	}

	params := domain.NewPaginationParams(page, limit)
	workshops, total, err := s.workshops.ListPaged(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, WorkshopList{
		Data: workshops,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// GetWorkshop handles GET /workshops/{code}.
func (s *Server) GetWorkshop(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}

	workshop, err := s.workshops.Get(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workshop)
}

// DeleteWorkshop handles DELETE /workshops/{code}.
func (s *Server) DeleteWorkshop(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}

	if err := s.workshops.Delete(r.Context(), code); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddPlayers handles POST /workshops/{code}/players.
func (s *Server) AddPlayers(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}
	var body PlayersRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.workshops.AddPlayers(r.Context(), code, body.Players)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// RemovePlayers handles POST /workshops/{code}/players/remove.
func (s *Server) RemovePlayers(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}
	var body RemovePlayersRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.workshops.RemovePlayers(r.Context(), code, body.Names)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// MatchWorkshop handles POST /workshops/{code}/match.
// Returns 409 when the tags make a pairing impossible.
func (s *Server) MatchWorkshop(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}

	matched, err := s.workshops.Match(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matched)
}

// UpdateWishlist handles PUT /workshops/{code}/players/{name}/wishlist.
func (s *Server) UpdateWishlist(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	var body WishlistRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.workshops.UpdateWishlist(r.Context(), code, name, body.Wishlist)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// GetPair handles GET /workshops/{code}/players/{name}/pair.
func (s *Server) GetPair(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	pair, err := s.workshops.GetPair(r.Context(), code, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// --- request helpers --------------------------------------------------------

// pathParam binds the named chi URL parameter, unescaping it. On failure it
// writes a 422 and returns false.
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		requestError(w, fmt.Sprintf("invalid format for parameter %s: %v", name, err))
		return "", false
	}
	return v, true
}

// decodeBody decodes the JSON request body into dst. On failure it writes
// 413 for an oversized body or 422 otherwise, and returns false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		requestError(w, "request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBody(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return false
		}
		requestError(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}
