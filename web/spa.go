// Package web serves a built dashboard as a single-page application (SPA).
//
// The dashboard is optional: without STATIC_DIR the API and websockets run on
// their own and the frontend is served by its dev server.
package web

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
)

// SPAHandler serves files from fsys and falls back to index.html for any path
// that doesn't match a file (client-side routing).
func SPAHandler(fsys fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		if f, err := fsys.Open(name); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close file", "path", name, "error", closeErr)
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// DirHandler serves the dashboard build in dir.
func DirHandler(dir string) (http.Handler, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return SPAHandler(os.DirFS(dir)), nil
}
