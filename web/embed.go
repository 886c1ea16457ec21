// Package web serves the embedded chat page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// SPA serves the chat page and its assets. Unknown paths get index.html so
// client-side routes survive a reload; paths under a reserved prefix get 404.
type SPA struct {
	files    fs.FS
	static   http.Handler
	reserved []string
}

// NewSPA serves the embedded dist/ tree. reserved lists path prefixes that
// belong to the server, such as "/api/".
func NewSPA(reserved ...string) *SPA {
	files, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: embedded dist missing: " + err.Error())
	}
	return &SPA{
		files:    files,
		static:   http.FileServerFS(files),
		reserved: reserved,
	}
}

// SPAHandler serves the chat page with the API and WebSocket prefixes reserved.
func SPAHandler() http.Handler {
	return NewSPA("/api/", "/ws/")
}

func (s *SPA) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, prefix := range s.reserved {
		if strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
	}

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" || s.isFile(name) {
		s.static.ServeHTTP(w, r)
		return
	}

	index := r.Clone(r.Context())
	index.URL.Path = "/"
	s.static.ServeHTTP(w, index)
}

func (s *SPA) isFile(name string) bool {
	info, err := fs.Stat(s.files, name)
	return err == nil && !info.IsDir()
}
