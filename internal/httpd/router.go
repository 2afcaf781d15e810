package httpd

import (
	"errors"
	"fmt"
)

// HandlerFunc handles a routed request and returns the response status.
// The router answers with that status and an empty body.
type HandlerFunc func(headers Header, body []byte) int

// Route binds an exact method and path to a handler.
type Route struct {
	Method  string
	Path    string
	Handler HandlerFunc
}

type routeKey struct {
	method string
	path   string
}

// Router dispatches parsed requests. The route table is fixed when the
// router is built; unmatched GET requests fall through to static files.
type Router struct {
	routes map[routeKey]HandlerFunc
	static *StaticResponder
}

// NewRouter builds the route table. static may be nil, in which case every
// unmatched GET is answered with 404.
func NewRouter(static *StaticResponder, routes ...Route) (*Router, error) {
	table := make(map[routeKey]HandlerFunc, len(routes))
	for _, r := range routes {
		if r.Method != MethodGet && r.Method != MethodPost {
			return nil, fmt.Errorf("route %s %s: unsupported method", r.Method, r.Path)
		}
		if r.Handler == nil {
			return nil, fmt.Errorf("route %s %s: nil handler", r.Method, r.Path)
		}
		key := routeKey{method: r.Method, path: r.Path}
		if _, dup := table[key]; dup {
			return nil, fmt.Errorf("route %s %s: registered twice", r.Method, r.Path)
		}
		table[key] = r.Handler
	}
	return &Router{routes: table, static: static}, nil
}

// Dispatch answers req through w. Routing misses become 404 responses; an
// error is returned only for faults the caller must turn into a 500 or a
// dropped connection.
func (rt *Router) Dispatch(req *Request, w *ResponseWriter) error {
	if h, ok := rt.routes[routeKey{method: req.Method, path: req.Path}]; ok {
		return w.StartResponse(h(req.Headers, req.Body), 0, "", false)
	}

	if req.Method != MethodGet || rt.static == nil {
		return w.StartResponse(404, 0, "", false)
	}

	err := rt.static.Respond(rt.static.Resolve(req.Path), req.Headers, w)
	if errors.Is(err, ErrNotFound) {
		return w.StartResponse(404, 0, "", false)
	}
	return err
}
