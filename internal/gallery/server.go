// Package gallery serves the generated-image directory over HTTP: a small
// HTML index, a JSON listing, and the image files themselves.
package gallery

import (
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"bedrockctl/pkg/types"
)

// Server exposes one image directory.
type Server struct {
	Dir string
	Log zerolog.Logger
	// AllowOrigins enables CORS for browser clients on other origins.
	AllowOrigins []string
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Generated Images</title>
<style>
body { font-family: sans-serif; margin: 2em; background: #1b1b1b; color: #eee; }
.grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(320px, 1fr)); gap: 1em; }
.card img { width: 100%; border-radius: 4px; }
.card figcaption { font-size: 0.8em; word-break: break-all; }
</style>
</head>
<body>
<h1>Generated Images ({{len .}})</h1>
<div class="grid">
{{range .}}<figure class="card"><a href="/images/{{.Name}}"><img src="/images/{{.Name}}" loading="lazy"></a><figcaption>{{.Name}}</figcaption></figure>
{{end}}</div>
</body>
</html>
`))

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// NewMux builds the gallery router.
func (s *Server) NewMux() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(metricsMiddleware)
	if len(s.AllowOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.AllowOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", s.handleIndex)
	r.Get("/images", s.handleList)
	r.Get("/images/{name}", s.handleImage)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	images, err := ScanDir(s.Dir)
	if err != nil {
		s.Log.Error().Err(err).Str("dir", s.Dir).Msg("scan image dir")
		writeJSONError(w, http.StatusInternalServerError, "failed to scan image directory")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, images); err != nil {
		s.Log.Error().Err(err).Msg("render gallery index")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	images, err := ScanDir(s.Dir)
	if err != nil {
		s.Log.Error().Err(err).Str("dir", s.Dir).Msg("scan image dir")
		writeJSONError(w, http.StatusInternalServerError, "failed to scan image directory")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"images": images}); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validImageName(name) {
		writeJSONError(w, http.StatusNotFound, "no such image")
		return
	}
	path := filepath.Join(s.Dir, name)
	imagesServedTotal.Inc()
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

// ListenAndServe runs the gallery until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.Log.Info().Str("addr", addr).Str("dir", s.Dir).Msg("gallery listening")
	return http.ListenAndServe(addr, s.NewMux())
}
