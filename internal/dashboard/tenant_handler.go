package dashboard

import (
	"github.com/ledgerkiro/ledgerkiro/internal/auth"
	"github.com/ledgerkiro/ledgerkiro/internal/config"
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantHandler manages the ledger_tenants directory from SPEC_FULL.md
// §4.10: one row per tenant an organization provisions an API key against.
// Named "tenant" rather than "ledger" (the teacher's original name) to keep
// this multi-tenancy directory unambiguous from the Ledger aggregate.
type TenantHandler struct {
	DB     *pgxpool.Pool
	Config *config.Config
}

type TenantResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
}

type CreateTenantRequest struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Currency  string `json:"currency"`
}

// GET /api/tenants - List all tenants for the authenticated user's organization
func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie("session")
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateJWT(cookie.Value, h.Config.JWTSecret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rows, err := h.DB.Query(ctx, `
		SELECT t.id, t.project_id, t.name, t.code, t.currency, t.created_at
		FROM ledger_tenants t
		JOIN projects p ON p.id = t.project_id
		WHERE p.organization_id = $1
		ORDER BY t.created_at DESC
	`, claims.OrgID)
	if err != nil {
		http.Error(w, "failed to query tenants", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	tenants := []TenantResponse{}
	for rows.Next() {
		var tenant TenantResponse
		if err := rows.Scan(&tenant.ID, &tenant.ProjectID, &tenant.Name, &tenant.Code, &tenant.Currency, &tenant.CreatedAt); err != nil {
			http.Error(w, "failed to scan tenant", http.StatusInternalServerError)
			return
		}
		tenants = append(tenants, tenant)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenants)
}

// GET /api/tenants?id=... - Get a specific tenant
func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie("session")
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateJWT(cookie.Value, h.Config.JWTSecret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	tenantID := r.URL.Query().Get("id")
	if tenantID == "" {
		http.Error(w, "tenant id required", http.StatusBadRequest)
		return
	}

	var tenant TenantResponse
	err = h.DB.QueryRow(ctx, `
		SELECT t.id, t.project_id, t.name, t.code, t.currency, t.created_at
		FROM ledger_tenants t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND p.organization_id = $2
	`, tenantID, claims.OrgID).Scan(&tenant.ID, &tenant.ProjectID, &tenant.Name, &tenant.Code, &tenant.Currency, &tenant.CreatedAt)
	if err != nil {
		http.Error(w, "tenant not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenant)
}

// POST /api/tenants - Create a new tenant
func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie("session")
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateJWT(cookie.Value, h.Config.JWTSecret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var projectOrgID string
	err = h.DB.QueryRow(ctx, `
		SELECT organization_id FROM projects WHERE id = $1
	`, req.ProjectID).Scan(&projectOrgID)
	if err != nil || projectOrgID != claims.OrgID {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}

	var tenantID string
	err = h.DB.QueryRow(ctx, `
		INSERT INTO ledger_tenants (project_id, name, code, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, req.ProjectID, req.Name, req.Code, req.Currency).Scan(&tenantID)
	if err != nil {
		http.Error(w, "failed to create tenant", http.StatusInternalServerError)
		return
	}

	resp := map[string]string{
		"id":         tenantID,
		"project_id": req.ProjectID,
		"name":       req.Name,
		"code":       req.Code,
		"currency":   req.Currency,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}
