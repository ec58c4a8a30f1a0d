package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/app/query/types"
	"github.com/cardinal-cryptography/electionsx/pkg/chain"
)

// accountPattern matches a hex account id, with or without the 0x prefix.
const accountPattern = "{account:(?:0x)?[0-9a-fA-F]{64}}"

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/committee-seats", c.HandleCommitteeSeats).Methods(http.MethodGet)
	api.HandleFunc("/committee-seats/next", c.HandleNextEraCommitteeSeats).Methods(http.MethodGet)

	api.HandleFunc("/validators/current", c.HandleCurrentEraValidators).Methods(http.MethodGet)
	api.HandleFunc("/validators/current/reserved", c.HandleCurrentEraReserved).Methods(http.MethodGet)
	api.HandleFunc("/validators/current/non-reserved", c.HandleCurrentEraNonReserved).Methods(http.MethodGet)
	api.HandleFunc("/validators/next", c.HandleNextEraValidators).Methods(http.MethodGet)
	api.HandleFunc("/validators/next/reserved", c.HandleNextEraReserved).Methods(http.MethodGet)
	api.HandleFunc("/validators/next/non-reserved", c.HandleNextEraNonReserved).Methods(http.MethodGet)
	api.HandleFunc("/validators/status", c.HandleValidatorStatuses).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{session:[0-9]+}/validators", c.HandleSessionValidators).Methods(http.MethodGet)

	api.HandleFunc("/ban-config", c.HandleBanConfig).Methods(http.MethodGet)
	api.HandleFunc("/ws", c.HandleWebSocket).Methods(http.MethodGet)
	api.HandleFunc("/validators/"+accountPattern+"/block-count", c.HandleValidatorBlockCount).Methods(http.MethodGet)
	api.HandleFunc("/validators/"+accountPattern+"/underperformance", c.HandleUnderperformance).Methods(http.MethodGet)
	api.HandleFunc("/validators/"+accountPattern+"/ban", c.HandleBan).Methods(http.MethodGet)

	return r, nil
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeChainError maps an accessor error to a status code. Missing storage and unknown
// blocks are 404, anything else is a node failure.
func (c *Controller) writeChainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chain.ErrStorageNotFound), errors.Is(err, chain.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		c.App.Logger.Error("Chain read failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chain read failed")
	}
}

// parseAt reads the optional ?at=<block hash> parameter.
func parseAt(r *http.Request) (*chain.Hash, error) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return nil, nil
	}
	h, err := chain.ParseHash(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid at: %w", err)
	}
	return &h, nil
}

func accountVar(r *http.Request) (chain.AccountID, error) {
	return chain.ParseAccountID(mux.Vars(r)["account"])
}
