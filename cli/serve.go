package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cppla/lifetrack/routes"
	"github.com/cppla/lifetrack/utils"
)

var (
	serveAddr   string
	serveMemory bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default \":<AppPort>\")")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep all data in memory instead of the database")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start the HTTP API. SIGINT or SIGTERM drains in-flight requests and exits.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := bootstrap(cfg, serveMemory)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.engine.CreateDefaultAchievements(context.Background())
	if err != nil {
		return err
	}
	if n > 0 {
		a.logger.Info("achievement catalog seeded", zap.Int("inserted", n))
	}

	r := routes.SetupRouter(routes.Dependencies{
		Config: cfg,
		Engine: a.engine,
		Logger: a.logger.Named("http"),
	})

	addr := serveAddr
	if addr == "" {
		addr = ":" + cfg.AppPort
	}
	a.logger.Info("starting server", zap.String("addr", addr), zap.Bool("memory", serveMemory))
	return utils.GraceServer(addr, r, a.logger)
}
