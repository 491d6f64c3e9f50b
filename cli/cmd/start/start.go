package start

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/compozy/sqlagent/cli/cmd"
	"github.com/compozy/sqlagent/cli/helpers"
	"github.com/compozy/sqlagent/engine/infra/server"
	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	productionEnvironment = "production"
	localhost             = "localhost"
)

// NewStartCommand creates the start command for the HTTP server
func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"serve"},
		Short:   "Start the SQL agent HTTP server",
		Args:    cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
				JSON: handleStart,
				Text: func(ctx context.Context, c *cobra.Command, e *cmd.CommandExecutor, args []string) error {
					if helpers.ShouldUseColor() {
						fmt.Fprintln(os.Stderr, helpers.RenderHeader())
					}
					return handleStart(ctx, c, e, args)
				},
			}, args)
		},
	}
}

func handleStart(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, _ []string) error {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return fmt.Errorf("configuration missing from context; attach a manager with config.ContextWithManager")
	}
	if cfg.Runtime.Environment == productionEnvironment {
		gin.SetMode(gin.ReleaseMode)
		logProductionWarnings(ctx, cfg)
	}
	if !isPortAvailable(ctx, cfg.Server.Host, cfg.Server.Port) {
		return fmt.Errorf("port %d is not available on host %s", cfg.Server.Port, cfg.Server.Host)
	}
	srv, err := server.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run()
}

func isPortAvailable(ctx context.Context, host string, port int) bool {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// logProductionWarnings warns about permissive settings in production
func logProductionWarnings(ctx context.Context, cfg *config.Config) {
	log := logger.FromContext(ctx)
	for _, origin := range cfg.Server.CORS.AllowedOrigins {
		if origin == "*" || strings.Contains(origin, localhost) {
			log.Warn("CORS allows wildcard or localhost origins in production", "origin", origin)
			break
		}
	}
	if !cfg.RateLimit.Enabled {
		log.Warn("Rate limiting is disabled", "hint", "set ratelimit.enabled=true")
	}
	if !cfg.Database.ReadOnlyQueries {
		log.Warn("Direct queries may modify the database", "hint", "set database.read_only_queries=true")
	}
}
