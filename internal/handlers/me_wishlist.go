package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/platform/auth"
	"github.com/pxa264/e-shop-sub001/internal/platform/httpx"
)

const maxWishlistBodySize = 4 * 1024

type addWishlistRequest struct {
	ProductID string `json:"product_id"`
}

func (h *MeHandlers) wishlistRoutes(r chi.Router) {
	r.Get("/", h.listWishlist)
	r.Post("/", h.addWishlistItem)
	r.Delete("/{productID}", h.removeWishlistItem)
}

func (h *MeHandlers) listWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	page, err := h.users.ListWishlist(ctx, identity.UID, domain.Pagination{
		PageSize:  pageSize,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	items := make([]wishlistItemPayload, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, wishlistItemPayload{
			ProductID: item.ProductID,
			AddedAt:   formatTime(item.AddedAt),
		})
	}
	httpx.WriteData(w, http.StatusOK, wishlistResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *MeHandlers) addWishlistItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req addWishlistRequest
	if !decodeJSONBody(ctx, w, r, maxWishlistBodySize, &req) {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product_id is required", http.StatusBadRequest))
		return
	}

	item, err := h.users.AddWishlistItem(ctx, identity.UID, strings.TrimSpace(req.ProductID))
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusCreated, wishlistItemResponse{
		Item: wishlistItemPayload{
			ProductID: item.ProductID,
			AddedAt:   formatTime(item.AddedAt),
		},
	})
}

func (h *MeHandlers) removeWishlistItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	if err := h.users.RemoveWishlistItem(ctx, identity.UID, productID); err != nil {
		writeUserError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wishlistResponse struct {
	Items         []wishlistItemPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type wishlistItemResponse struct {
	Item wishlistItemPayload `json:"item"`
}

type wishlistItemPayload struct {
	ProductID string `json:"product_id"`
	AddedAt   string `json:"added_at"`
}
