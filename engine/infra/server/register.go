package server

import (
	"context"

	"github.com/compozy/sqlagent/engine/infra/server/routes"
	qrouter "github.com/compozy/sqlagent/engine/query/router"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/compozy/sqlagent/pkg/version"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(ctx context.Context, r *gin.Engine, server *Server) {
	r.GET(routes.Health(), CreateHealthHandler(server, version.GetVersion()))
	qrouter.Register(r)
	logger.FromContext(ctx).Debug("Completed route registration", "routes", len(r.Routes()))
}
