package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"

	"floodsim/internal/config"
	"floodsim/internal/metrics"
	"floodsim/internal/scenario"
	"floodsim/internal/utils"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "floodsim",
	Short: "Quality-adaptive flooding simulator",
	Long: `floodsim runs discrete-event simulations of transaction and consensus
flooding over an overlay of validators and watchers, comparing flood-all
against quality-selective forwarding.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario batch and print the averaged figures",
	RunE:  runScenario,
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the known scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		for _, n := range scenario.Names() {
			fmt.Println(n)
		}
	},
}

func init() {
	f := runCmd.Flags()
	f.String("prefix", "", "Config file base path")
	f.String("scenario", "", "Override simulation.scenario")
	f.String("strategy", "", "Override simulation.strategy")
	f.Int("runs", 0, "Override simulation.runs")
	f.Int64("seed", 0, "Override simulation.seed")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(runCmd, scenariosCmd)
}

func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	f := cmd.Flags()
	basePath, _ := f.GetString("prefix")
	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		return nil, err
	}

	if f.Changed("scenario") {
		cfg.Simulation.Scenario, _ = f.GetString("scenario")
	}
	if f.Changed("strategy") {
		cfg.Simulation.Strategy, _ = f.GetString("strategy")
	}
	if f.Changed("runs") {
		cfg.Simulation.Runs, _ = f.GetInt("runs")
	}
	if f.Changed("seed") {
		cfg.Simulation.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = f.GetString("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	params, err := cfg.Simulation.Params()
	if err != nil {
		return err
	}

	logs := utils.NewManager(cfg.LogPath, cfg.LogLevel)
	defer logs.Close()

	runner, err := scenario.NewRunner(params, logs, logs.Logger("floodsim"))
	if err != nil {
		return err
	}

	var current atomic.Pointer[metrics.Collector]
	runner.OnRun = func(_ string, c *metrics.Collector) { current.Store(c) }

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current.Load().Handler().ServeHTTP(w, r)
		}))
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		log.Printf("Serving metrics on %s", cfg.MetricsAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
		defer srv.Close()
	}

	log.Printf("Running scenario %s with %s, %d run(s)", params.Name, params.Node.Strategy, params.Runs)

	type result struct {
		summary metrics.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := runner.Run(ctx)
		done <- result{s, err}
	}()

	var res result
	select {
	case <-stop:
		log.Println("Stopping simulation...")
		cancel()
		res = <-done
	case err := <-serverErr:
		cancel()
		<-done
		return fmt.Errorf("metrics server failed: %w", err)
	case res = <-done:
	}
	if res.err != nil {
		if err := stopError(res.err); err != nil {
			return err
		}
		log.Println("Simulation stopped")
		return nil
	}
	printSummary(res.summary)

	if srv != nil {
		log.Println("Runs finished, metrics stay up until interrupted")
		select {
		case <-stop:
		case err := <-serverErr:
			return fmt.Errorf("metrics server failed: %w", err)
		}
	}
	log.Println("Simulation stopped")
	return nil
}

// stopError treats a cancelled batch as a requested shutdown.
func stopError(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printSummary(s metrics.Summary) {
	names := make([]string, 0, len(s.Figures))
	for n := range s.Figures {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Printf("runs: %d\n", s.Runs)
	for _, n := range names {
		fmt.Printf("%-32s %.4f\n", n, s.Figures[n])
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
