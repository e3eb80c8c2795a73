package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Route binds one method and path to a handler
type Route struct {
	Method  string
	Path    string
	Handler http.Handler
}

// Routes is the relay's whole route table: the preflight probe and the
// relay call itself, both on path
func Routes(path string, relay http.Handler) []Route {
	return []Route{
		{Method: http.MethodOptions, Path: path, Handler: http.HandlerFunc(PreflightHandler)},
		{Method: http.MethodPost, Path: path, Handler: relay},
	}
}

// NewRouter builds a router from routes. Anything not in the table,
// including a known path with another method, gets an empty 404.
func NewRouter(routes []Route) *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)
	for _, route := range routes {
		r.Handle(route.Path, route.Handler).Methods(route.Method)
	}
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(NotFoundHandler)
	return r
}

// PreflightHandler answers the browser's CORS probe with no body
func PreflightHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}

// NotFoundHandler writes a bare 404
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
