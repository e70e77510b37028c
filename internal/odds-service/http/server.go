package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/odds-service/catalog"
	"github.com/radieske/betting-engine/internal/shared/betting"
)

// CatalogCache é a leitura do catálogo já agregado
type CatalogCache interface {
	GetCatalog(ctx context.Context, c betting.Category) (catalog.Catalog, bool, error)
}

// Rebuilder recalcula o catálogo quando o cache está vazio
type Rebuilder interface {
	Rebuild(ctx context.Context, c betting.Category) (catalog.Catalog, error)
}

// API expõe o catálogo de odds por categoria
type API struct {
	Log       *zap.Logger
	Cache     CatalogCache
	Rebuilder Rebuilder
	WS        http.HandlerFunc // opcional
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/categories", a.listCategories)
	r.Get("/v1/catalog/{category}", a.getCatalog)
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

type categoryView struct {
	Category betting.Category `json:"category"`
	Label    string           `json:"label"`
}

func (a *API) listCategories(w http.ResponseWriter, _ *http.Request) {
	out := make([]categoryView, 0, len(catalog.SportsCategories))
	for _, c := range catalog.SportsCategories {
		out = append(out, categoryView{Category: c, Label: c.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

// getCatalog serve do cache; no miss recalcula na hora
func (a *API) getCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := betting.ParseCategory(chi.URLParam(r, "category"))
	if err != nil || c.Kind() != betting.KindSports {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown category"})
		return
	}

	cat, ok, err := a.Cache.GetCatalog(r.Context(), c)
	if err != nil {
		a.Log.Warn("catalog cache read failed", zap.String("category", string(c)), zap.Error(err))
	}
	if ok {
		writeJSON(w, http.StatusOK, cat)
		return
	}

	cat, err = a.Rebuilder.Rebuild(r.Context(), c)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.Log.Error("catalog rebuild failed", zap.String("category", string(c)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
