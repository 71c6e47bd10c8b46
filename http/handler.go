package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/pypindex/pypindex"
)

// Service is the index surface the handler serves. Both methods return a
// complete HTML page.
type Service interface {
	RootIndex(ctx context.Context) (string, error)
	PackageIndex(ctx context.Context, name string) (string, error)
}

// Downloads streams stored distribution files for the download route. The
// filesystem backend implements it; S3 deployments serve downloads from the
// bucket directly and leave it nil.
type Downloads interface {
	Open(ctx context.Context, key string) (io.ReadSeekCloser, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	// BasePath is where the simple index is mounted, e.g. "/simple".
	// Empty mounts it at the root.
	BasePath string

	// Downloads enables the /files download route when non-nil.
	Downloads Downloads

	// DownloadVerifier checks presigned signatures on the download route.
	// Nil leaves downloads public.
	DownloadVerifier *pypindex.SignatureVerifier

	CORS CORSConfig
}

// Handler provides HTTP handlers for the package index.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler serving the simple index under BasePath and,
// when Downloads is configured, distribution files under /files.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	base := "/" + strings.Trim(h.config.BasePath, "/")
	if base == "/" {
		base = ""
	}

	if base != "" {
		// Installers configured with the bare host land on /, the index
		// lives under the base path.
		redirect := h.handleRedirect(base + "/")
		r.Get("/", redirect)
		r.Head("/", redirect)
		r.Get(base, h.handleRedirect(base+"/"))
		r.Head(base, h.handleRedirect(base+"/"))
	}

	r.Get(base+"/", h.handleRoot)
	r.Head(base+"/", h.handleRoot)
	r.Get(base+"/{package}", h.handlePackage)
	r.Head(base+"/{package}", h.handlePackage)
	r.Get(base+"/{package}/", h.handlePackage)
	r.Head(base+"/{package}/", h.handlePackage)

	if h.config.Downloads != nil {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.config.DownloadVerifier))
			r.Get("/files/*", h.handleDownload)
			r.Head("/files/*", h.handleDownload)
		})
	}

	return r
}

func (h *Handler) handleRedirect(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	}
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.RootIndex(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	WriteHTML(w, http.StatusOK, page)
}

func (h *Handler) handlePackage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "package")

	page, err := h.service.PackageIndex(r.Context(), name)
	if err != nil {
		if errors.Is(err, pypindex.ErrNotFound) {
			writeNotFoundPage(w)
			return
		}
		HandleError(w, err)
		return
	}

	WriteHTML(w, http.StatusOK, page)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	if !pypindex.IsValidKey(key) {
		writeNotFoundPage(w)
		return
	}

	content, err := h.config.Downloads.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, pypindex.ErrNotFound) {
			writeNotFoundPage(w)
			return
		}
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	http.ServeContent(w, r, key, time.Time{}, content)
}
