package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/platform/auth"
	"github.com/pxa264/e-shop-sub001/internal/platform/httpx"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

const maxProfileBodySize = 64 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Locale      string `json:"locale"`
}

// MeHandlers exposes authenticated profile endpoints for the current user.
type MeHandlers struct {
	authn *auth.Authenticator
	users services.UserService
}

// NewMeHandlers constructs handlers enforcing authentication before invoking the user service.
func NewMeHandlers(authn *auth.Authenticator, users services.UserService) *MeHandlers {
	return &MeHandlers{
		authn: authn,
		users: users,
	}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getProfile)
	r.Put("/", h.updateProfile)
	r.Route("/addresses", h.addressRoutes)
	r.Route("/wishlist", h.wishlistRoutes)
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	profile, err := h.users.GetProfile(ctx, identity.UID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, meResponse{Profile: buildProfilePayload(profile)})
}

func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req updateProfileRequest
	if !decodeJSONBody(ctx, w, r, maxProfileBodySize, &req) {
		return
	}

	updated, err := h.users.UpdateProfile(ctx, services.UpdateProfileCommand{
		UserID:      identity.UID,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Locale:      strings.TrimSpace(req.Locale),
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, meResponse{Profile: buildProfilePayload(updated)})
}

type meResponse struct {
	Profile profilePayload `json:"profile"`
}

type profilePayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Locale      string `json:"locale,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func buildProfilePayload(profile domain.UserProfile) profilePayload {
	return profilePayload{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Locale:      profile.Locale,
		CreatedAt:   formatTime(profile.CreatedAt),
		UpdatedAt:   formatTime(profile.UpdatedAt),
	}
}

func writeUserError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("profile_not_found", "profile not found", http.StatusNotFound))
		return
	case errors.Is(err, services.ErrAddressNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("address_not_found", "address not found", http.StatusNotFound))
		return
	case errors.Is(err, services.ErrWishlistDuplicate):
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_duplicate", "product is already on the wishlist", http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrWishlistItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_item_not_found", "wishlist item not found", http.StatusNotFound))
		return
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "profile storage unavailable", http.StatusServiceUnavailable))
		return
	}

	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxProfileBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func pointerTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(src))
	for key, value := range src {
		cloned[key] = value
	}
	return cloned
}
