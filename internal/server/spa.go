package server

import (
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// handleSPA serves the web client from dir. Paths that are not real files
// get index.html so the client can route them, except under /api where an
// unknown path is a JSON 404.
func handleSPA(dir string) http.HandlerFunc {
	root := os.DirFS(dir)
	fileServer := http.FileServerFS(root)

	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		name := strings.TrimPrefix(r.URL.Path, "/")
		if name != "" && fs.ValidPath(name) {
			if info, err := fs.Stat(root, name); err == nil && !info.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		http.ServeFileFS(w, r, root, "index.html")
	}
}
