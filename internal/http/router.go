package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Accounts   *AccountHandler
	Records    *RecordHandler
	Alerts     *AlertHandler
	Reports    *ReportHandler
	GraphQL    http.Handler
	WebSocket  http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Auth != nil {
		mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
	}

	if cfg.Accounts != nil {
		mux.HandleFunc("/api/register", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Accounts.Register(w, r)
		})
		mux.HandleFunc("/api/mfa/setup", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Accounts.SetupMFA(w, r)
		})
		mux.HandleFunc("/api/mfa/verify", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Accounts.VerifyMFA(w, r)
		})
	}

	if cfg.Records != nil {
		mux.HandleFunc("/api/medical-records", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Records.Create(w, r)
		})
	}

	if cfg.Alerts != nil {
		mux.HandleFunc("/api/alerts", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Alerts.ListUnread(w, r)
		})
		mux.HandleFunc("/api/alerts/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
			id, found := strings.CutSuffix(rest, "/read")
			if !found || id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			r = r.WithContext(ContextWithAlertID(r.Context(), id))
			cfg.Alerts.MarkRead(w, r)
		})
	}

	if cfg.Reports != nil {
		mux.HandleFunc("/api/patient-report/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/api/patient-report/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithPatientID(r.Context(), id))
			cfg.Reports.Get(w, r)
		})
	}

	if cfg.GraphQL != nil {
		mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
				return
			}
			cfg.GraphQL.ServeHTTP(w, r)
		})
	}

	if cfg.WebSocket != nil {
		mux.Handle("/ws", cfg.WebSocket)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
