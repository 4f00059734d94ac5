package api

import (
	"errors"
	"net/http"
	"path"
	"strings"

	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/generator"
)

// indexFile is served when a game directory is requested.
const indexFile = "index.html"

// serveGame handles GET /api/games/{path...}, serving generated files from
// the artifact store so a deliverable can be previewed in the browser.
func (s *Server) serveGame(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("path")
	if p == "" || strings.HasSuffix(p, "/") {
		p = path.Join(p, indexFile)
	}

	data, err := s.artifacts.Read(r.Context(), p)
	if errors.Is(err, gserrors.ErrArtifactIsDir) {
		p = path.Join(p, indexFile)
		data, err = s.artifacts.Read(r.Context(), p)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", generator.MimeType(p))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
