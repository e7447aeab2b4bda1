package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/retroloop/retroloop/internal/domain/collab"
	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/share"
	"github.com/retroloop/retroloop/internal/store"
)

// Server wires HTTP handlers for the identity, review, and collaboration
// services.
type Server struct {
	identity *identity.Service
	reviews  *review.Service
	collab   *collab.Service
	store    store.Store
	baseURL  string
	logger   *slog.Logger
}

// NewServer creates an HTTP router. Everything except anonymous sign-in and
// the health probe sits behind the principal auth middleware.
func NewServer(ident *identity.Service, reviews *review.Service, sessions *collab.Service, st store.Store, baseURL string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		identity: ident,
		reviews:  reviews,
		collab:   sessions,
		store:    st,
		baseURL:  baseURL,
		logger:   logger,
	}

	r.Post("/auth/anonymous", srv.handleSignInAnonymously)
	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(ident))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", srv.handleCreateSession)
			r.Get("/{code}", srv.handleGetSession)
			r.Post("/{code}/join", srv.handleJoinSession)
			r.Post("/{code}/leave", srv.handleLeaveSession)
			r.Delete("/{code}", srv.handleDeleteSession)
			r.Post("/{code}/items", srv.handleAddSessionItem)
			r.Delete("/{code}/items/{itemID}", srv.handleDeleteSessionItem)
			r.Patch("/{code}/collaborators/me", srv.handleRenameMe)
			r.Get("/{code}/ws", srv.handleSessionSocket)
		})

		r.Route("/reviews/{year}", func(r chi.Router) {
			r.Get("/", srv.handleGetReview)
			r.Post("/items", srv.handleAddReviewItem)
			r.Delete("/items/{itemID}", srv.handleDeleteReviewItem)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSignInAnonymously(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity.SignInAnonymously(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"principalId": user.ID,
		"name":        user.Name,
	})
}

type createSessionRequest struct {
	Year     int    `json:"year"`
	Nickname string `json:"nickname"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	code, err := s.collab.Create(r.Context(), user, req.Year, req.Nickname)
	if err != nil {
		s.writeError(w, err)
		return
	}

	inviteURL, err := share.InviteURL(s.baseURL, code)
	if err != nil {
		s.writeError(w, err)
		return
	}
	title := fmt.Sprintf("%d retro board", req.Year)
	writeJSON(w, http.StatusCreated, map[string]string{
		"inviteCode": code,
		"inviteUrl":  inviteURL,
		"shareText":  share.InviteMessage(title, "Join with invite code "+code, inviteURL),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.collab.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type joinSessionRequest struct {
	Nickname string `json:"nickname"`
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	var req joinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	code, err := s.collab.Join(r.Context(), user, chi.URLParam(r, "code"), req.Nickname)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"inviteCode": code})
}

func (s *Server) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	if err := s.collab.Leave(r.Context(), user, chi.URLParam(r, "code")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.collab.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	Category  string `json:"category"`
	Content   string `json:"content"`
	CreatedBy string `json:"createdBy"`
}

func (s *Server) handleAddSessionItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.collab.AddItem(r.Context(), chi.URLParam(r, "code"), review.Category(req.Category), req.Content, req.CreatedBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleDeleteSessionItem(w http.ResponseWriter, r *http.Request) {
	err := s.collab.DeleteItem(r.Context(), chi.URLParam(r, "code"), chi.URLParam(r, "itemID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameMe(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.collab.UpdateName(r.Context(), user, chi.URLParam(r, "code"), req.Name); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	year, err := yearParam(r)
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}

	rev, err := s.reviews.ListYear(r.Context(), user.ID, year)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleAddReviewItem(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	year, err := yearParam(r)
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.reviews.Add(r.Context(), user.ID, year, review.Category(req.Category), req.Content, req.CreatedBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleDeleteReviewItem(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	year, err := yearParam(r)
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}

	if err := s.reviews.Delete(r.Context(), user.ID, year, chi.URLParam(r, "itemID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func yearParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "year"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collab.ErrIdentityNotReady):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, collab.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, review.ErrInvalidCategory), errors.Is(err, review.ErrEmptyContent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, collab.ErrStoreWrite), errors.Is(err, collab.ErrStoreRead), errors.Is(err, collab.ErrStoreWatch):
		s.logger.Error("store operation failed", "error", err)
		http.Error(w, "storage unavailable", http.StatusBadGateway)
	default:
		s.logger.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
