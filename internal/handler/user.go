package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/motoclube/roleplanner/internal/domain"
)

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name        string              `json:"name"`
	Email       openapi_types.Email `json:"email"`
	Phone       string              `json:"phone,omitempty"`
	Plan        string              `json:"plan,omitempty"`
	Preferences map[string]any      `json:"preferences,omitempty"`
}

// FavoriteRequest is the body of POST /users/{id}/favorites.
type FavoriteRequest struct {
	DestinationName string `json:"destination_name"`
}

// CreateUser handles POST /users.
func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := s.users.Register(r.Context(), domain.User{
		Name:        req.Name,
		Email:       string(req.Email),
		Phone:       req.Phone,
		Plan:        domain.Plan(req.Plan),
		Preferences: req.Preferences,
	})
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetUser handles GET /users/{id}.
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser handles PATCH /users/{id} with a JSON merge patch.
func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if !decodeJSON(w, r, &partial) {
		return
	}
	u, err := s.users.Update(r.Context(), chi.URLParam(r, "id"), partial)
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// LoginUser handles POST /users/{id}/login.
func (s *Server) LoginUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Login(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /users/{id}.
// Favorites, roteiros and settings are removed with the account.
func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /users/{id}/settings.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.users.Settings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PutSettings handles PUT /users/{id}/settings.
func (s *Server) PutSettings(w http.ResponseWriter, r *http.Request) {
	var st domain.Settings
	if !decodeJSON(w, r, &st) {
		return
	}
	saved, err := s.users.SaveSettings(r.Context(), chi.URLParam(r, "id"), st)
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListFavorites handles GET /users/{id}/favorites.
func (s *Server) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.users.Favorites(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.Favorite]{Data: favs, Total: len(favs)})
}

// AddFavorite handles POST /users/{id}/favorites.
// Adding a destination that is already a favorite returns the existing one.
func (s *Server) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fav, err := s.users.AddFavorite(r.Context(), chi.URLParam(r, "id"), req.DestinationName)
	if err != nil {
		s.serviceError(w, r, err, "user or destination not found")
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

// RemoveFavorite handles DELETE /users/{id}/favorites/{favID}.
func (s *Server) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	err := s.users.RemoveFavorite(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "favID"))
	if err != nil {
		s.serviceError(w, r, err, "favorite not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
