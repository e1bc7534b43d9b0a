package router

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
)

// BranchPath is the prefix every branch-scoped route lives under
const BranchPath = "/organizations/:orgId/branches/:branchId"

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	public     []RouteRegistrar
	scoped     []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a registrar whose routes run inside a branch scope
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.scoped = append(r.scoped, registrar)
	return r
}

// RegisterPublic adds a registrar mounted directly under the API prefix, outside any branch
func (r *Router) RegisterPublic(registrar RouteRegistrar) *Router {
	r.public = append(r.public, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.public {
		registrar.RegisterRoutes(api)
	}

	branch := api.Group(BranchPath, middleware.BranchScope())
	for _, registrar := range r.scoped {
		registrar.RegisterRoutes(branch)
	}
}
