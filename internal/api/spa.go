package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DataPrefix is the URL path the front end loads the generated report data
// files from.
const DataPrefix = "/js/output/"

// WithSPA wraps API handler with SPA static serving. When dataDir is set, the
// report data files written by the output command are served from it under
// DataPrefix, ahead of any copy in webDir.
func WithSPA(apiHandler http.Handler, webDir, dataDir string) http.Handler {
	fileServer := http.FileServer(http.Dir(webDir))
	indexPath := filepath.Join(webDir, "index.html")
	nonCacheFileServer := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSPACacheControl(w)
		fileServer.ServeHTTP(w, r)
	})
	var dataServer http.Handler
	if dataDir != "" {
		dataServer = http.StripPrefix(strings.TrimSuffix(DataPrefix, "/"), http.FileServer(http.Dir(dataDir)))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			apiHandler.ServeHTTP(w, r)
			return
		}

		cleanPath := path.Clean("/" + r.URL.Path)
		if dataServer != nil && strings.HasPrefix(cleanPath, DataPrefix) {
			serveData(w, r, dataServer, filepath.Join(dataDir, strings.TrimPrefix(cleanPath, DataPrefix)))
			return
		}
		cleanPath = strings.TrimPrefix(cleanPath, "/")
		if cleanPath == "." || cleanPath == "" {
			serveIndex(w, r, indexPath)
			return
		}

		fullPath := filepath.Join(webDir, cleanPath)
		if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
			nonCacheFileServer.ServeHTTP(w, r)
			return
		}

		serveIndex(w, r, indexPath)
	})
}

// serveData serves one generated data file. Missing files are a 404 rather
// than the index page so the front end can tell a report was not written.
func serveData(w http.ResponseWriter, r *http.Request, dataServer http.Handler, fullPath string) {
	if info, err := os.Stat(fullPath); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	setSPACacheControl(w)
	dataServer.ServeHTTP(w, r)
}

func serveIndex(w http.ResponseWriter, r *http.Request, indexPath string) {
	if _, err := os.Stat(indexPath); err == nil {
		setSPACacheControl(w)
		http.ServeFile(w, r, indexPath)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("index.html not found"))
}

func setSPACacheControl(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
