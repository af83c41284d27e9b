package api

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/katalogpart/katalog-server/internal/http/response"
	"github.com/katalogpart/katalog-server/internal/service"
)

//go:embed web/*.html web/*.js web/*.css
var webFiles embed.FS

var indexTemplate = template.Must(template.ParseFS(webFiles, "web/index.html"))

// Cache-Control header values.
const (
	CacheOneHour = "public, max-age=3600"
	CacheNoStore = "no-cache"
)

// webPageData is rendered into the thin web client.
type webPageData struct {
	Version string
	Figures []service.FigureSummary
}

// handleWebClient serves the thin web client with the figure list inlined.
// GET /
func (s *Server) handleWebClient(w http.ResponseWriter, r *http.Request) {
	data := webPageData{Version: s.opts.Version}
	if figures, err := s.services.Catalog.Figures(r.Context()); err == nil {
		data.Figures = figures
	} else {
		s.logger.Warn("web client rendered without figures", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", CacheNoStore)
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("failed to execute web client template", "error", err)
	}
}

// handleStatic serves the client's script and stylesheet.
// GET /static/*
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	sub, err := fs.Sub(webFiles, "web")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	w.Header().Set("Cache-Control", CacheOneHour)
	http.StripPrefix("/static/", http.FileServerFS(sub)).ServeHTTP(w, r)
}
