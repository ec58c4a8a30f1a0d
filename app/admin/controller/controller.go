package controller

import (
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"

	"github.com/cardinal-cryptography/electionsx/app/admin/types"
	"github.com/cardinal-cryptography/electionsx/pkg/utils"
)

type Controller struct {
	App        *types.App
	AdminToken string
	Users      map[string]types.User
	JWTSecret  []byte
}

// NewController returns a new controller configured from ADMIN_TOKEN, ADMIN_USER,
// ADMIN_PASSWORD, ADMIN_USERS and SESSION_SECRET. An empty ADMIN_TOKEN disables
// bearer access and an empty ADMIN_PASSWORD disables the default user.
func NewController(app *types.App) (*Controller, error) {
	adminToken := utils.Env("ADMIN_TOKEN", "")
	adminUser := utils.Env("ADMIN_USER", "admin")
	adminUsersJSON := utils.Env("ADMIN_USERS", "")
	adminPass := utils.Env("ADMIN_PASSWORD", "")

	users := map[string]types.User{}
	if adminPass != "" {
		phash, err := utils.PasswordHash(adminPass)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		users[adminUser] = types.User{Username: adminUser, Hash: phash, Role: "admin"}
	}
	if adminUsersJSON != "" {
		if err := json.Unmarshal([]byte(adminUsersJSON), &users); err != nil {
			return nil, fmt.Errorf("parse ADMIN_USERS: %w", err)
		}
	}

	jwtSecret := []byte(utils.Env("SESSION_SECRET", ""))
	if len(jwtSecret) == 0 {
		// sessions will not survive a restart
		jwtSecret = make([]byte, 32)
		if _, err := rand.Read(jwtSecret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		app.Logger.Warn("SESSION_SECRET not set, using an ephemeral secret")
	}

	return &Controller{
		App:        app,
		AdminToken: adminToken,
		Users:      users,
		JWTSecret:  jwtSecret,
	}, nil
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo back the origin to allow credentials
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodPut+", "+http.MethodOptions)

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

	r.HandleFunc("/api/health", c.HandleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/login", c.HandleAdminLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", c.HandleAdminLogout).Methods(http.MethodPost)

	r.Handle("/api/ban-config", c.RequireAdmin(http.HandlerFunc(c.HandleGetBanConfig))).Methods(http.MethodGet)
	r.Handle("/api/ban-config", c.RequireAdmin(http.HandlerFunc(c.HandleChangeBanConfig))).Methods(http.MethodPut)

	return r, nil
}

// writeJSON writes a JSON response
func (c *Controller) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (c *Controller) writeError(w http.ResponseWriter, statusCode int, message string) {
	c.writeJSON(w, statusCode, map[string]string{"error": message})
}
