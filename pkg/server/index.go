package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/loopcast/loopcast/pkg/caster"
)

//go:embed templates/*
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type indexData struct {
	MP3  bool
	Opus bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	data := indexData{
		MP3:  s.caster.Hub(caster.MP3) != nil,
		Opus: s.caster.Hub(caster.Opus) != nil,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Debug("server: render index", "error", err)
	}
}
