package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/socialchef/scribe/internal/config"
	"github.com/socialchef/scribe/internal/errors"
	"github.com/socialchef/scribe/internal/middleware"
	"github.com/socialchef/scribe/internal/sentry"
)

// AllowList is the subset of access.Gate the admin API needs.
type AllowList interface {
	Grant(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
}

type Server struct {
	cfg   *config.Config
	users AllowList
}

func NewServer(cfg *config.Config, users AllowList) *Server {
	return &Server{
		cfg:   cfg,
		users: users,
	}
}

func (s *Server) HandleAlive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("I'm alive"))
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type AllowedUsersResponse struct {
	UserIDs []int64 `json:"user_ids"`
}

func (s *Server) HandleListAllowedUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.users.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list allowed users", "error", err)
		sentry.CaptureError(r.Context(), err, map[string]string{"route": "list_allowed_users"})
		http.Error(w, "Failed to read allow-list", http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []int64{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AllowedUsersResponse{UserIDs: ids})
}

type AddAllowedUserRequest struct {
	UserID int64 `json:"user_id"`
}

type AddAllowedUserResponse struct {
	UserID int64 `json:"user_id"`
	Added  bool  `json:"added"`
}

func (s *Server) HandleAddAllowedUser(w http.ResponseWriter, r *http.Request) {
	var req AddAllowedUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "user_id must be a positive integer", http.StatusBadRequest)
		return
	}

	added, err := s.users.Grant(r.Context(), req.UserID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to add allowed user", "user_id", req.UserID, "error", err)
		sentry.CaptureError(r.Context(), err, map[string]string{"route": "add_allowed_user"})
		http.Error(w, "Failed to update allow-list", http.StatusInternalServerError)
		return
	}

	adminID, _ := middleware.GetAdminID(r.Context())
	slog.InfoContext(r.Context(), "Allowed user added via API", "user_id", req.UserID, "added", added, "admin_id", adminID)

	w.Header().Set("Content-Type", "application/json")
	if added {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(AddAllowedUserResponse{UserID: req.UserID, Added: added})
}
