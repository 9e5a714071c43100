package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ClaimsHandler handles claim endpoints.
type ClaimsHandler struct {
	DB *sql.DB
}

type createClaimRequest struct {
	ItemID  int64  `json:"item_id"`
	Message string `json:"message"`
}

// Create handles POST /api/claims.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	claim, err := store.CreateClaim(r.Context(), h.DB, req.ItemID, claims.UserID, req.Message)
	if err != nil {
		domainError(w, err, "failed to create claim")
		return
	}

	slog.Info("claim created", "user", claims.Username, "claim", claim.ID,
		"item", claim.ItemID, "previous_status", claim.PreviousItemStatus)
	jsonResponse(w, http.StatusCreated, claim)
}

// Approve handles POST /api/claims/{id}/approve.
func (h *ClaimsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

// Reject handles POST /api/claims/{id}/reject.
func (h *ClaimsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *ClaimsHandler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	claims := GetClaims(r.Context())

	id, ok := parseID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var claim *model.Claim
	var item *model.Item
	var err error
	if approve {
		claim, item, err = store.ApproveClaim(r.Context(), h.DB, id, claims.UserID)
	} else {
		claim, item, err = store.RejectClaim(r.Context(), h.DB, id, claims.UserID)
	}
	if err != nil {
		domainError(w, err, "failed to review claim")
		return
	}

	slog.Info("claim reviewed", "user", claims.Username, "claim", claim.ID,
		"decision", claim.Status, "item_status", item.Status)
	jsonResponse(w, http.StatusOK, map[string]any{
		"claim": claim,
		"item":  item,
	})
}

// ListForItem handles GET /api/items/{id}/claims. Only the item owner may
// see the claims filed against their item.
func (h *ClaimsHandler) ListForItem(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := parseID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if !model.IsOwner(claims.UserID, item) {
		jsonError(w, http.StatusForbidden, "only the item owner can list its claims")
		return
	}

	list, err := store.ListClaimsForItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	if list == nil {
		list = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// ListMine handles GET /api/claims/mine: claims the caller has filed.
func (h *ClaimsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	list, err := store.ListClaimsByClaimant(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	if list == nil {
		list = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// ListReceived handles GET /api/claims/received: claims filed against the
// caller's items.
func (h *ClaimsHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	list, err := store.ListClaimsReceived(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	if list == nil {
		list = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, list)
}
