// Package httpapi is the server half of the modal wire contract: page
// handlers answer ordinary Inertia-style visits, modal handlers answer
// requests carrying the modal request header with a bare modal page plus
// the marker headers, and submit handlers close modals via a redirect
// marked close-then-follow.
package httpapi

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modalnav/pkg/types"
)

// Service defines the methods required by the built-in endpoints.
type Service interface {
	Status() types.StatusResponse
	Ready() bool
}

// PageFunc produces the page envelope for an ordinary visit.
type PageFunc func(r *http.Request) (types.Page, error)

// ModalFunc produces the modal payload for a modal-capable route.
type ModalFunc func(r *http.Request) (types.ModalData, error)

// SubmitFunc handles a mutating request and returns the redirect location.
type SubmitFunc func(r *http.Request) (string, error)

// Mux is a chi router pre-wired with the middleware stack and the modal
// response conventions.
type Mux struct {
	chi.Router
	version string
}

// NewMux builds the HTTP handler. version is the asset version echoed in
// every page envelope; stale clients are told to reload.
func NewMux(svc Service, version string) *Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return &Mux{Router: r, version: version}
}

// HandlePage registers an ordinary page route.
func (m *Mux) HandlePage(pattern string, fn PageFunc) {
	m.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		if m.staleVersion(w, r) {
			return
		}
		page, err := fn(r)
		if err != nil {
			writeHandlerError(w, err)
			return
		}
		modalRequestsTotal.WithLabelValues("page").Inc()
		m.renderPage(w, r, page)
	})
}

// HandleModal registers a modal-capable route. A request carrying the
// modal request header gets the bare modal page plus the marker headers;
// a direct browser hit is sent to the backdrop URL instead, where the
// client opens the modal on top.
func (m *Mux) HandleModal(pattern string, fn ModalFunc) {
	m.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		if m.staleVersion(w, r) {
			return
		}
		data, err := fn(r)
		if err != nil {
			writeHandlerError(w, err)
			return
		}
		if data.URL == "" {
			data.URL = r.URL.RequestURI()
		}
		if r.Header.Get(types.HeaderModalRequest) == "" {
			http.Redirect(w, r, data.BaseURL, http.StatusSeeOther)
			return
		}
		modalRequestsTotal.WithLabelValues("modal").Inc()
		w.Header().Set(types.HeaderModal, "true")
		w.Header().Set(types.HeaderModalBaseURL, data.BaseURL)
		if cfg, err := json.Marshal(data.Config); err == nil {
			w.Header().Set(types.HeaderModalConfig, string(cfg))
		}
		m.renderPage(w, r, types.Page{
			Component: data.Component,
			Props:     data.Props,
			URL:       data.URL,
		})
	})
}

// HandleSubmit registers a mutating route. The response is a 303 redirect;
// when the request came from a modal the redirect is marked
// close-then-follow, so the client closes the modal before navigating.
func (m *Mux) HandleSubmit(pattern string, fn SubmitFunc) {
	m.Post(pattern, func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		location, err := fn(r.WithContext(ctx))
		if err != nil {
			writeHandlerError(w, err)
			return
		}
		modalRequestsTotal.WithLabelValues("submit").Inc()
		if r.Header.Get(types.HeaderModalRequest) != "" {
			w.Header().Set(types.HeaderModalRedirect, "true")
		}
		http.Redirect(w, r, location, http.StatusSeeOther)
	})
}

// staleVersion enforces the asset-version handshake: a GET from a client
// holding an outdated version gets a 409 pointing at the requested URL, so
// it performs a full reload instead of consuming a stale envelope.
func (m *Mux) staleVersion(w http.ResponseWriter, r *http.Request) bool {
	if m.version == "" || r.Header.Get(types.HeaderInertia) == "" {
		return false
	}
	if v := r.Header.Get(types.HeaderInertiaVersion); v != "" && v != m.version {
		w.Header().Set("X-Inertia-Location", r.URL.RequestURI())
		w.WriteHeader(http.StatusConflict)
		return true
	}
	return false
}

var shellTmpl = template.Must(template.New("shell").Parse(
	`<!DOCTYPE html><html><head><meta charset="utf-8"></head><body><div id="app" data-page="{{.}}"></div></body></html>`))

func (m *Mux) renderPage(w http.ResponseWriter, r *http.Request, page types.Page) {
	if page.URL == "" {
		page.URL = r.URL.RequestURI()
	}
	if page.Version == "" {
		page.Version = m.version
	}
	// Partial reload: trim props to the requested subset, but only when the
	// client still shows this component.
	if r.Header.Get(types.HeaderInertiaPartialComponent) == page.Component {
		if keys := r.Header.Get(types.HeaderInertiaPartialData); keys != "" {
			partial := types.Props{}
			for _, k := range strings.Split(keys, ",") {
				if v, ok := page.Props[k]; ok {
					partial[k] = v
				}
			}
			page.Props = partial
		}
	}
	if r.Header.Get(types.HeaderInertia) != "" {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(types.HeaderInertia, "true")
		w.Header().Add("Vary", types.HeaderInertia)
		if err := json.NewEncoder(w).Encode(page); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
		return
	}
	// First load: the page object rides inside the HTML shell.
	raw, err := json.Marshal(page)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = shellTmpl.Execute(w, string(raw))
}
