package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evanhutnik/aegis-service/internal/aegis"
	"github.com/evanhutnik/aegis-service/internal/config"
	"github.com/evanhutnik/aegis-service/internal/metrics"
	"github.com/evanhutnik/aegis-service/internal/planner"
	t "github.com/evanhutnik/aegis-service/internal/types"
)

var (
	verbose   bool
	configDir string
	logger    *zap.SugaredLogger

	routeStart, routeEnd             int
	routeMonth, routeHour, routeYear int
	routeTimeout                     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Safety-ranked routes between Chicago community areas",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		base, err := zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = base.Sugar()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Plan routes between two areas and print them as JSON",
	Long: `Plans the direct, safe and alternative routes between two community
areas for the given time and prints the distinct ones, safest first.

Example:
  aegis routes --start 1 --end 3 --month 6 --hour 22 --year 2024`,
	RunE: runRoutes,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "", "Directory containing aegis.yaml")

	now := time.Now()
	routesCmd.Flags().IntVar(&routeStart, "start", 0, "Start community area (required)")
	routesCmd.Flags().IntVar(&routeEnd, "end", 0, "End community area (required)")
	routesCmd.Flags().IntVar(&routeMonth, "month", int(now.Month()), "Month of travel (1-12)")
	routesCmd.Flags().IntVar(&routeHour, "hour", now.Hour(), "Hour of travel (0-23)")
	routesCmd.Flags().IntVar(&routeYear, "year", now.Year(), "Year of travel")
	routesCmd.Flags().DurationVar(&routeTimeout, "timeout", time.Minute, "Planning timeout")
	routesCmd.MarkFlagRequired("start")
	routesCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, cleanup, err := aegis.FromConfig(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}
	return s.Start(ctx, cfg.ListenAddr)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), routeTimeout)
	defer cancel()

	deps, err := aegis.NewPlanner(cfg, metrics.NewRegistry(), logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	routes, err := deps.Planner().PlanRoutes(ctx, planner.Request{
		Start:   t.AreaID(routeStart),
		End:     t.AreaID(routeEnd),
		Context: t.TimeContext{Month: routeMonth, Hour: routeHour, Year: routeYear},
	})
	if err != nil {
		return err
	}

	resp := aegis.RoutesResponse{Routes: routes, Count: len(routes)}
	if len(routes) == 0 {
		resp.Routes = []t.RouteOption{}
		resp.Error = "Unable to score any route for the selected areas"
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
