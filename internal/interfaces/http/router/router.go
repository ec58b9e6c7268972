package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on a gin group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under /api/{version}
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// NewRouter creates a Router for engine. The version defaults to v1.
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts the queued registrars and returns the API group
func (r *Router) Setup() *gin.RouterGroup {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
	return api
}

// ResourceGroup declares the routes of one resource before they are mounted.
// Guards added with Use apply to every route of the group and its children.
type ResourceGroup struct {
	prefix   string
	guards   []gin.HandlerFunc
	routes   []route
	children []*ResourceGroup
}

type route struct {
	method, path string
	handlers     []gin.HandlerFunc
}

// NewResourceGroup starts a group mounted at prefix
func NewResourceGroup(prefix string) *ResourceGroup {
	return &ResourceGroup{prefix: prefix}
}

// Prefix is the path the group is mounted at, relative to its parent
func (g *ResourceGroup) Prefix() string { return g.prefix }

// Use adds guards to the group
func (g *ResourceGroup) Use(guards ...gin.HandlerFunc) *ResourceGroup {
	g.guards = append(g.guards, guards...)
	return g
}

// Handle declares a route. Handlers may start with per-route guards.
func (g *ResourceGroup) Handle(method, relativePath string, handlers ...gin.HandlerFunc) *ResourceGroup {
	g.routes = append(g.routes, route{method: method, path: relativePath, handlers: handlers})
	return g
}

func (g *ResourceGroup) GET(p string, h ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodGet, p, h...)
}

func (g *ResourceGroup) POST(p string, h ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodPost, p, h...)
}

func (g *ResourceGroup) PUT(p string, h ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodPut, p, h...)
}

func (g *ResourceGroup) DELETE(p string, h ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodDelete, p, h...)
}

// Child declares a nested group that inherits this group's guards
func (g *ResourceGroup) Child(prefix string) *ResourceGroup {
	child := NewResourceGroup(prefix)
	g.children = append(g.children, child)
	return child
}

// Paths lists "METHOD /full/path" for every declared route, children included
func (g *ResourceGroup) Paths() []string {
	var out []string
	g.walk("", func(method, full string) { out = append(out, method+" "+full) })
	return out
}

func (g *ResourceGroup) walk(base string, visit func(method, full string)) {
	here := path.Join(base, g.prefix)
	for _, r := range g.routes {
		full := here
		if r.path != "" {
			full = path.Join(here, r.path)
		}
		visit(r.method, full)
	}
	for _, c := range g.children {
		c.walk(here, visit)
	}
}

// RegisterRoutes implements RouteRegistrar
func (g *ResourceGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix, g.guards...)
	for _, r := range g.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
	for _, c := range g.children {
		c.RegisterRoutes(group)
	}
}
