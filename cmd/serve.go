package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"deckhand/internal/adapters/in/http"
	"deckhand/internal/adapters/out/docker"
	"deckhand/internal/config"
	"deckhand/internal/domain"
	"deckhand/internal/usecase/actions"
	"deckhand/internal/usecase/exec"
	"deckhand/internal/usecase/inventory"
	"deckhand/internal/usecase/metrics"
	"deckhand/internal/usecase/stream"
	"deckhand/pkg/logger"
	"deckhand/pkg/version"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control-plane server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.GetLogger().SetLogLevel(cfg.Log.Level)

	logger.Info("deckhand starting",
		"version", version.Version(),
		"listen", cfg.Server.Listen)

	runtime, err := docker.NewRuntime()
	if err != nil {
		return fmt.Errorf("connect container runtime: %w", err)
	}
	defer runtime.Close()

	inv := inventory.NewService(runtime, inventory.Config{
		RefreshInterval: cfg.Inventory.RefreshInterval.Std(),
		RuntimeTimeout:  cfg.Inventory.RuntimeTimeout.Std(),
	})
	met := metrics.NewService(inv, metrics.Config{
		SampleInterval: cfg.Metrics.SampleInterval.Std(),
		Retention:      cfg.Metrics.Retention.Std(),
		PerContainer:   cfg.Metrics.PerContainer,
	})
	// Lifecycle events nudge the inventory so views converge faster than the
	// refresh cadence alone.
	dist := stream.NewDistributor(runtime, stream.Config{
		QueueSize:   cfg.Events.QueueSize,
		ReplayDepth: cfg.Events.ReplayDepth,
	}, func(domain.Event) { inv.TriggerRefresh() })

	policy, err := exec.NewDenylistPolicy(policyRules(cfg.Exec.Policy))
	if err != nil {
		return fmt.Errorf("build exec policy: %w", err)
	}
	execSvc := exec.NewService(runtime, inv, policy, exec.Config{
		Timeout: cfg.Exec.Timeout.Std(),
	})
	actionSvc := actions.NewService(runtime, inv, actions.Config{
		RuntimeTimeout: cfg.Inventory.RuntimeTimeout.Std(),
	})

	handler := http.NewHandler(inv, met, execSvc, actionSvc, dist, runtime)
	server := http.NewServer(cfg.Server.Listen, handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go inv.Run(ctx)
	go met.Run(ctx)
	go dist.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func policyRules(cfg config.PolicyConfig) []exec.RuleSpec {
	specs := make([]exec.RuleSpec, 0, len(cfg.Deny))
	for _, rule := range cfg.Deny {
		specs = append(specs, exec.RuleSpec{
			Kind:  exec.RuleKind(rule.Kind),
			Value: rule.Value,
		})
	}
	return specs
}
