package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/service"
)

const (
	TenantHeader = "X-Tenant-ID"
	maxBodyBytes = 1 << 20
)

var errMissingTenant = fmt.Errorf("%w: %s header is required", domain.ErrValidation, TenantHeader)

type HTTPHandler struct {
	catalog *service.CatalogService
	name    string
	version string
	now     func() time.Time
}

func NewHTTPHandler(catalog *service.CatalogService, name, version string) *HTTPHandler {
	return &HTTPHandler{catalog: catalog, name: name, version: version, now: time.Now}
}

// Routes registers every endpoint on a new ServeMux.
func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("GET /menu", h.GetMenu)
	mux.HandleFunc("GET /menu/{id}", h.GetMenuItem)
	mux.HandleFunc("GET /inventory", h.GetInventory)
	mux.HandleFunc("GET /inventory/{id}", h.GetInventoryItem)

	mux.HandleFunc("PUT /admin/menu/{id}", h.UpsertMenuItem)
	mux.HandleFunc("PUT /admin/modifier-groups/{id}", h.UpsertModifierGroup)
	mux.HandleFunc("POST /admin/inventory/{id}/adjust", h.AdjustStock)
	mux.HandleFunc("PUT /admin/inventory/{id}/threshold", h.SetThreshold)
	mux.HandleFunc("GET /admin/pricing-rules", h.PricingRules)
	mux.HandleFunc("PUT /admin/pricing-rules/{id}", h.UpsertPricingRule)
	mux.HandleFunc("DELETE /admin/pricing-rules/{id}", h.DeactivatePricingRule)
	mux.HandleFunc("GET /admin/cache/stats", h.CacheStats)
	return mux
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   h.name,
		"version":   h.version,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *HTTPHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	query := service.MenuQuery{
		Category: q.Get("category"),
		Cursor:   q.Get("cursor"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrValidation))
			return
		}
		query.Limit = limit
	}
	if raw := q.Get("include_inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: include_inactive must be a boolean", domain.ErrValidation))
			return
		}
		query.IncludeInactive = include
	}

	page, err := h.catalog.GetMenu(r.Context(), tenantID, query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HTTPHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	view, err := h.catalog.GetMenuItem(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	report, err := h.catalog.GetInventory(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *HTTPHandler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	entry, err := h.catalog.GetInventoryItem(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type menuItemBody struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	BasePrice        decimal.Decimal `json:"base_price"`
	ModifierGroupIDs []string        `json:"modifier_group_ids"`
	Active           *bool           `json:"active"`
}

// UpsertMenuItem creates or replaces an item. Items are active unless the
// body says otherwise.
func (h *HTTPHandler) UpsertMenuItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var body menuItemBody
	if !decodeBody(w, r, &body) {
		return
	}

	item := domain.MenuItem{
		ID:               r.PathValue("id"),
		Name:             body.Name,
		Description:      body.Description,
		Category:         body.Category,
		BasePrice:        body.BasePrice,
		ModifierGroupIDs: body.ModifierGroupIDs,
		Active:           body.Active == nil || *body.Active,
	}
	stored, err := h.catalog.UpsertMenuItem(r.Context(), tenantID, item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *HTTPHandler) UpsertModifierGroup(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var group domain.ModifierGroup
	if !decodeBody(w, r, &group) {
		return
	}
	group.ID = r.PathValue("id")

	stored, err := h.catalog.UpsertModifierGroup(r.Context(), tenantID, group)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *HTTPHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req AdjustStockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := h.catalog.AdjustStock(r.Context(), tenantID, r.PathValue("id"), req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *HTTPHandler) SetThreshold(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req SetThresholdRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := h.catalog.SetThreshold(r.Context(), tenantID, r.PathValue("id"), req.Threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *HTTPHandler) PricingRules(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	rules, err := h.catalog.PricingRules(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RuleList{TenantID: domain.TenantID(tenantID), Rules: rules})
}

func (h *HTTPHandler) UpsertPricingRule(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var rule domain.PricingRule
	if !decodeBody(w, r, &rule) {
		return
	}
	rule.ID = r.PathValue("id")

	stored, err := h.catalog.UpsertPricingRule(r.Context(), tenantID, rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *HTTPHandler) DeactivatePricingRule(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	rule, err := h.catalog.DeactivatePricingRule(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *HTTPHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.CacheStats())
}

// requireTenant reads the tenant header. The value is handed to the service
// untouched; only its absence is rejected here.
func requireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := r.Header.Get(TenantHeader)
	if tenantID == "" {
		writeError(w, errMissingTenant)
		return "", false
	}
	return tenantID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err))
		return false
	}
	return true
}

func httpStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindTenantNotFound, domain.KindItemNotFound, domain.KindRuleNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientStock:
		return http.StatusConflict
	case domain.KindInvalidRule:
		return http.StatusUnprocessableEntity
	case domain.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindInternal {
		message = "internal error"
	}
	writeJSON(w, httpStatus(kind), ErrorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
