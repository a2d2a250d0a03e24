// Package main provides the pdmscore CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdmscore/graphcore/pkg/catalog"
	"github.com/pdmscore/graphcore/pkg/config"
	"github.com/pdmscore/graphcore/pkg/docstore"
	"github.com/pdmscore/graphcore/pkg/mirror"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
	"github.com/pdmscore/graphcore/pkg/sync"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pdmscore",
		Short: "pdmscore - hierarchical plant-element graph engine",
		Long: `pdmscore stores and queries a plant design element hierarchy
(the PDMS/PDS "PE" model: world/site/zone/equipment down to the smallest
owned component) behind a canonical document store and an analytical
graph mirror, kept in sync by a background sync engine.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pdmscore v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newSyncCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new pdmscore data directory",
		RunE:  runInit,
	}
	initCmd.Flags().String("data-dir", "./data", "Data directory")
	return initCmd
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	fmt.Printf("📂 Initializing pdmscore data directory in %s\n", dataDir)

	dirs := []string{
		dataDir,
		filepath.Join(dataDir, "docstore"),
		filepath.Join(dataDir, "mirror"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	catalogPath := filepath.Join(dataDir, "catalog.json")
	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		if err := os.WriteFile(catalogPath, []byte("{}\n"), 0644); err != nil {
			return fmt.Errorf("writing default catalog: %w", err)
		}
	}

	fmt.Println("✅ Data directory initialized")
	fmt.Printf("   Catalog: %s\n", catalogPath)
	fmt.Println()
	fmt.Println("Next step:")
	fmt.Println("  pdmscore sync all --data-dir", dataDir)

	return nil
}

// newSyncCmd builds the "sync" command group over the background
// sync.Manager: all/refno/incremental runs (progress is printed while a
// run is waited on, and Ctrl+C cancels it), verify, strategy, stats and
// reset-stats.
func newSyncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Replicate the canonical store into the analytical mirror",
	}
	syncCmd.PersistentFlags().String("data-dir", "./data", "Data directory")
	syncCmd.PersistentFlags().Bool("full", false, "Use the full-sync strategy instead of incremental")
	syncCmd.PersistentFlags().Int("batch-size", 0, "Override the sync batch size (0 = strategy default)")

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Sync every element under one or more dbnums (sync_all)",
		RunE:  runSyncAll,
	}
	allCmd.Flags().IntSlice("dbnum", nil, "Database numbers to sync (repeatable; default: none)")
	syncCmd.AddCommand(allCmd)

	refnoCmd := &cobra.Command{
		Use:   "refno <dbnum/elno>",
		Short: "Sync the subtree rooted at a single refno (sync_by_refno)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSyncRefno,
	}
	syncCmd.AddCommand(refnoCmd)

	incrementalCmd := &cobra.Command{
		Use:   "incremental",
		Short: "Sync only elements changed since the last sync (sync_incremental)",
		RunE:  runSyncIncremental,
	}
	incrementalCmd.Flags().IntSlice("dbnum", nil, "Database numbers to fall back to a full sync over, if no prior sync mark exists")
	syncCmd.AddCommand(incrementalCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare element and relation counts between store and mirror",
		RunE:  runSyncVerify,
	}
	verifyCmd.Flags().IntSlice("dbnum", nil, "Database numbers to sample from")
	verifyCmd.Flags().Int("sample", 20, "Number of PEs to content-compare")
	syncCmd.AddCommand(verifyCmd)

	syncCmd.AddCommand(&cobra.Command{
		Use:   "strategy",
		Short: "Print the active sync strategy (get_strategy)",
		RunE:  runSyncStrategy,
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print the statistics from the last sync run (get_statistics)",
		RunE:  runSyncStats,
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "reset-stats",
		Short: "Discard the recorded sync statistics (reset_statistics)",
		RunE:  runSyncResetStats,
	})

	return syncCmd
}

func statsPath(dataDir string) string {
	return filepath.Join(dataDir, "sync-stats.json")
}

// saveStats persists the outcome of a sync run to data-dir, giving
// get_statistics() something to report in a later, separate CLI
// invocation.
func saveStats(dataDir string, stats sync.Statistics) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(dataDir), data, 0644)
}

func runSyncStats(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	data, err := os.ReadFile(statsPath(dataDir))
	if os.IsNotExist(err) {
		fmt.Println("no sync has run yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	var stats sync.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return fmt.Errorf("parsing stats: %w", err)
	}
	fmt.Printf("tasks:   %d ok, %d failed, %d total\n", stats.SuccessfulTasks, stats.FailedTasks, stats.TotalTasks)
	fmt.Printf("records: %d ok, %d failed, %d skipped, %d total\n",
		stats.SuccessfulRecords, stats.FailedRecords, stats.SkippedRecords, stats.TotalRecords)
	fmt.Printf("success rate: %.1f%%\n", stats.SuccessRate()*100)
	fmt.Printf("duration: %v (ended %v)\n", stats.TotalDuration, stats.EndTime.Format(time.RFC3339))
	return nil
}

func runSyncResetStats(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if err := os.Remove(statsPath(dataDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("resetting stats: %w", err)
	}
	fmt.Println("✅ Sync statistics reset")
	return nil
}

// buildEngine opens the canonical store and analytical mirror under
// data-dir, wires them into a sync.Engine, and returns the Engine and the
// sync.Strategy the caller's flags selected.
func buildEngine(cmd *cobra.Command) (*sync.Engine, sync.Strategy, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	full, _ := cmd.Flags().GetBool("full")
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, sync.Strategy{}, fmt.Errorf("config: %w", err)
	}

	catPath := cfg.Catalog.Path
	if !filepath.IsAbs(catPath) {
		if joined := filepath.Join(dataDir, "catalog.json"); fileExists(joined) {
			catPath = joined
		}
	}
	var cat *catalog.Catalog
	var err error
	if fileExists(catPath) {
		cat, err = catalog.Load(catPath)
	} else {
		cat, err = catalog.LoadBytes([]byte("{}"))
	}
	if err != nil {
		return nil, sync.Strategy{}, fmt.Errorf("loading catalog: %w", err)
	}

	docEngine, err := storage.NewBadgerEngine(filepath.Join(dataDir, "docstore"))
	if err != nil {
		return nil, sync.Strategy{}, fmt.Errorf("opening docstore: %w", err)
	}
	mirrorEngine, err := storage.NewBadgerEngine(filepath.Join(dataDir, "mirror"))
	if err != nil {
		return nil, sync.Strategy{}, fmt.Errorf("opening mirror: %w", err)
	}

	primary := docstore.New(docEngine)
	secondary := mirror.New(mirrorEngine, cat)

	strategy := sync.DefaultStrategy()
	if full {
		strategy = sync.FullSyncStrategy()
	}
	if batchSize > 0 {
		strategy.BatchSize = batchSize
	} else if cfg.Sync.BatchSize > 0 {
		strategy.BatchSize = cfg.Sync.BatchSize
	}

	engine := sync.NewEngine(primary, secondary, strategy, sync.Filter{})
	return engine, strategy, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func parseDbnums(cmd *cobra.Command) ([]int32, error) {
	raw, err := cmd.Flags().GetIntSlice("dbnum")
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(raw))
	for i, v := range raw {
		out[i] = int32(v)
	}
	return out, nil
}

func runSyncAll(cmd *cobra.Command, args []string) error {
	engine, _, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	dbnums, err := parseDbnums(cmd)
	if err != nil {
		return err
	}

	mgr := sync.NewManager(engine)
	fmt.Printf("🔄 Starting full sync over dbnums=%v\n", dbnums)

	task := mgr.SyncAllAsync(dbnums)
	waitAndReport(mgr, task)
	persistStats(cmd, mgr, task)
	return nil
}

func runSyncRefno(cmd *cobra.Command, args []string) error {
	root, err := model.ParseRefno(args[0])
	if err != nil {
		return fmt.Errorf("invalid refno %q: %w", args[0], err)
	}
	engine, _, err := buildEngine(cmd)
	if err != nil {
		return err
	}

	mgr := sync.NewManager(engine)
	fmt.Printf("🔄 Syncing subtree rooted at %s\n", root)

	task := mgr.SyncByRefnoAsync(root)
	waitAndReport(mgr, task)
	persistStats(cmd, mgr, task)
	return nil
}

func runSyncIncremental(cmd *cobra.Command, args []string) error {
	engine, _, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	dbnums, err := parseDbnums(cmd)
	if err != nil {
		return err
	}

	mgr := sync.NewManager(engine)
	fmt.Println("🔄 Starting incremental sync")

	task := mgr.SyncIncrementalAsync(dbnums)
	waitAndReport(mgr, task)
	persistStats(cmd, mgr, task)
	return nil
}

// persistStats writes a task's recorded Statistics to data-dir so a
// later, separate "sync stats" invocation can report on it.
func persistStats(cmd *cobra.Command, mgr *sync.Manager, task *sync.Task) {
	stats, ok := mgr.Statistics(task.ID)
	if !ok {
		return
	}
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if err := saveStats(dataDir, stats); err != nil {
		fmt.Printf("   ⚠️  failed to persist stats: %v\n", err)
	}
}

// waitAndReport polls a task's progress until it leaves the Running
// state, printing a progress line every tick, and cancels the task via
// mgr.Cancel if the user hits Ctrl+C rather than leaving it running in
// the background after the CLI exits.
func waitAndReport(mgr *sync.Manager, task *sync.Task) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\n🛑 Cancelling...")
			_ = mgr.Cancel(task.ID)
			printTaskResult(mgr, mgr.GetTask(task.ID))
			return
		case <-ticker.C:
			current := mgr.GetTask(task.ID)
			if current == nil {
				return
			}
			if current.Status != sync.Running && current.Status != sync.Pending {
				printTaskResult(mgr, current)
				return
			}
			fmt.Printf("\r   progress: %d%% (%d/%d)", current.Progress, current.ProcessedCount, current.TotalCount)
		}
	}
}

func printTaskResult(mgr *sync.Manager, task *sync.Task) {
	fmt.Println()
	switch task.Status {
	case sync.Completed:
		fmt.Println("✅ Sync complete")
	case sync.Failed:
		fmt.Printf("❌ Sync failed: %s\n", task.ErrorMessage)
	case sync.Cancelled:
		fmt.Println("⚠️  Sync cancelled")
	}
	if stats, ok := mgr.Statistics(task.ID); ok {
		fmt.Printf("   records: %d ok, %d failed, %d total (took %v)\n",
			stats.SuccessfulRecords, stats.FailedRecords, stats.TotalRecords, stats.TotalDuration)
	}
}

func runSyncVerify(cmd *cobra.Command, args []string) error {
	engine, _, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	dbnums, err := parseDbnums(cmd)
	if err != nil {
		return err
	}
	sampleSize, _ := cmd.Flags().GetInt("sample")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var candidates []model.Refno
	if len(dbnums) > 0 {
		candidates, err = engine.CandidatesForDbnums(ctx, dbnums)
		if err != nil {
			return fmt.Errorf("gathering verify candidates: %w", err)
		}
	}

	fmt.Println("🔍 Verifying store/mirror agreement...")
	result, err := engine.Verify(ctx, candidates, sampleSize)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	fmt.Printf("   PE count:    store=%d mirror=%d match=%v\n", result.SourcePECount, result.TargetPECount, result.PECountMatch)
	fmt.Printf("   OWNS edges:  store=%d mirror=%d match=%v\n", result.SourceOwnsCount, result.TargetOwnsCount, result.OwnsEdgeCountMatch)
	fmt.Printf("   sampled:     %d PEs, %d mismatched\n", result.SampledPEs, len(result.SampleMismatches))
	if result.OK() {
		fmt.Println("✅ Store and mirror agree")
	} else {
		fmt.Println("⚠️  Mismatch detected")
		os.Exit(1)
	}
	return nil
}

func runSyncStrategy(cmd *cobra.Command, args []string) error {
	_, strategy, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	fmt.Printf("direction=%v mode=%v conflict=%v batch_size=%d sync_interval=%v retry_count=%d continue_on_error=%v\n",
		strategy.Direction, strategy.Mode, strategy.Conflict, strategy.BatchSize,
		strategy.SyncInterval, strategy.RetryCount, strategy.ContinueOnError)
	return nil
}
