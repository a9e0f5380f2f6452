package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify2apple/internal/applemusic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Catalog is the subset of [applemusic.Client] the handlers relay.
type Catalog interface {
	Token() (string, error)
	TokenExpiry() time.Time
	GetResource(ctx context.Context, id, resourceType string, opts ...applemusic.RequestOption) (map[string]any, error)
	GetResourceRelationship(ctx context.Context, id, resourceType, relationship string, opts ...applemusic.RequestOption) (map[string]any, error)
	Search(ctx context.Context, term string, opts ...applemusic.RequestOption) (*applemusic.SearchResponse, error)
}

// TokenResponse is the body of GET /api/developer-token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeCatalogError relays upstream status errors as-is and maps everything else.
func writeCatalogError(w http.ResponseWriter, logger *log.Logger, err error) {
	var httpErr *applemusic.HTTPError
	switch {
	case errors.As(err, &httpErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpErr.StatusCode)
		w.Write(httpErr.Body)
	case errors.Is(err, applemusic.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "upstream request canceled"})
	default:
		logger.Error("catalog request failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream request failed"})
	}
}

// TokenHandler serves the current developer token to browser clients (MusicKit JS).
type TokenHandler struct {
	catalog Catalog
	logger  *log.Logger
}

func NewTokenHandler(catalog Catalog, logger *log.Logger) *TokenHandler {
	return &TokenHandler{catalog: catalog, logger: logger}
}

func (h *TokenHandler) Routes() []string {
	return []string{"GET /api/developer-token"}
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, err := h.catalog.Token()
	if err != nil {
		h.logger.Error("failed to mint developer token", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to mint developer token"})
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: h.catalog.TokenExpiry()})
}

// SearchHandler relays catalog searches.
//
//	GET /api/search?term=&types=&limit=&offset=&storefront=
type SearchHandler struct {
	catalog Catalog
	logger  *log.Logger
}

func NewSearchHandler(catalog Catalog, logger *log.Logger) *SearchHandler {
	return &SearchHandler{catalog: catalog, logger: logger}
}

func (h *SearchHandler) Routes() []string {
	return []string{"GET /api/search"}
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("term")
	if strings.TrimSpace(term) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "term is required"})
		return
	}

	opts := []applemusic.RequestOption{}
	if sf := q.Get("storefront"); sf != "" {
		opts = append(opts, applemusic.WithStorefront(sf))
	}
	if types := q.Get("types"); types != "" {
		opts = append(opts, applemusic.WithTypes(strings.Split(types, ",")...))
	}
	for _, p := range []struct {
		name string
		opt  func(int) applemusic.RequestOption
	}{
		{"limit", applemusic.WithLimit},
		{"offset", applemusic.WithOffset},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: p.name + " must be an integer"})
			return
		}
		opts = append(opts, p.opt(n))
	}

	res, err := h.catalog.Search(r.Context(), term, opts...)
	if err != nil {
		writeCatalogError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CatalogHandler relays single resource and relationship lookups.
type CatalogHandler struct {
	catalog Catalog
	logger  *log.Logger
}

func NewCatalogHandler(catalog Catalog, logger *log.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

func (h *CatalogHandler) Routes() []string {
	return []string{
		"GET /api/catalog/{storefront}/{type}/{id}",
		"GET /api/catalog/{storefront}/{type}/{id}/{relationship}",
	}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sf := applemusic.WithStorefront(r.PathValue("storefront"))
	id, typ, rel := r.PathValue("id"), r.PathValue("type"), r.PathValue("relationship")

	var (
		body map[string]any
		err  error
	)
	if rel == "" {
		body, err = h.catalog.GetResource(r.Context(), id, typ, sf)
	} else {
		body, err = h.catalog.GetResourceRelationship(r.Context(), id, typ, rel, sf)
	}
	if err != nil {
		writeCatalogError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// NewRouter wires the catalog handlers, /metrics and /health behind the standard middleware stack.
func NewRouter(catalog Catalog, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestID(), Logging(logger), Metrics())

	router.Handler(NewTokenHandler(catalog, logger))
	router.Handler(NewSearchHandler(catalog, logger))
	router.Handler(NewCatalogHandler(catalog, logger))
	router.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	return router
}
