package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/erpsync/internal/checksum"
	"github.com/vvka-141/erpsync/internal/db"
	"github.com/vvka-141/erpsync/internal/db/manager"
	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/internal/files/scanner"
	"github.com/vvka-141/erpsync/internal/logging"
	"github.com/vvka-141/erpsync/internal/params"
	"github.com/vvka-141/erpsync/internal/services"
	"github.com/vvka-141/erpsync/internal/source"
	"github.com/vvka-141/erpsync/internal/store"
	"github.com/vvka-141/erpsync/internal/tui"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

var syncCmd = &cobra.Command{
	Use:   "sync [project_dir]",
	Short: "Load ERP data into the frePPLe database",
	Long: `Sync runs one reconciling pass from the ERP database into frePPLe.

The sync command:
1. Connects to the frePPLe database and takes its sync lock
2. Records the pass as a task in execute_log (or claims --task)
3. For each entity type, in dependency order: snapshots the existing keys,
   reads the ERP query, updates matching rows and inserts the others
4. Commits each entity type on its own; a failing entity type is rolled
   back and the pass continues with the next one
5. Marks the task Done or Failed and prints a summary table

Arguments:
  project_dir    Directory holding erpsync.yaml, .env and queries/ (default: current directory)

Query Overrides:
  The ERP query of an entity type can be replaced, highest priority first:
    1. --query entity=SQL
    2. queries/<entity>.sql in the project directory
    3. entities.<entity>.query in erpsync.yaml
  Columns must follow the order shown by 'erpsync entities --show-queries'.

Password Authentication:
  Passwords are NOT accepted as CLI flags. Use:
    ERP:     $ERP_PASSWORD (or the --erp-dsn connection string)
    frePPLe: $PGPASSWORD, .pgpass, or a connection string
  Both may be kept in .env or in a file given with --env-file.

Examples:
  # Sync everything with settings from ./erpsync.yaml
  erpsync sync

  # Sync only items and locations from a SQL Server ERP
  erpsync sync --erp-driver sqlserver --erp-host erp01 --erp-database X3 \
    -h frepple-db -d frepple --entity location,item

  # Claim the task created by frePPLe's task screen
  erpsync sync ./prod --task 1234

  # Replace the ERP query of one entity type
  erpsync sync --query "item=select code, descr, cat, '', 0, '', '' from dbo.items"`,
	Args:              OptionalProjectDir,
	ValidArgsFunction: completeDirectories,
	RunE:              runSync,
}

type syncFlagValues struct {
	conn      connectionFlags
	erp       sourceFlags
	task      int64
	user      string
	entities  []string
	queries   []string
	batchSize int
	timeout   time.Duration
	envFiles  []string
	plain     bool
}

var syncFlags syncFlagValues

func init() {
	rootCmd.AddCommand(syncCmd)

	addConnectionFlags(syncCmd, &syncFlags.conn)
	addSourceFlags(syncCmd, &syncFlags.erp)

	syncCmd.Flags().Int64Var(&syncFlags.task, "task", 0,
		"Claim this existing Waiting task instead of creating a new one")
	syncCmd.Flags().StringVar(&syncFlags.user, "user", "",
		"frePPLe username the task is recorded for")
	syncCmd.Flags().StringSliceVar(&syncFlags.entities, "entity", nil,
		"Only sync these entity types (comma separated or repeated)\n"+
			"Dependency order is kept. See 'erpsync entities'.")
	syncCmd.Flags().StringArrayVar(&syncFlags.queries, "query", nil,
		"Replace the ERP query of an entity type as entity=SQL (can be specified multiple times)")
	syncCmd.Flags().IntVar(&syncFlags.batchSize, "batch-size", 0,
		fmt.Sprintf("Rows per bulk insert statement (default %d, max %d)", erpsync.DefaultBatchSize, erpsync.MaxBatchSize))
	syncCmd.Flags().DurationVar(&syncFlags.timeout, "timeout", erpsync.DefaultTimeout,
		"Catastrophic failure protection timeout for the whole pass\n"+
			"Examples: 30s, 5m, 1h30m")
	syncCmd.Flags().StringSliceVar(&syncFlags.envFiles, "env-file", nil,
		"Load environment variables from .env files (can be specified multiple times)\n"+
			"Variables already set in the environment win")
	syncCmd.Flags().BoolVar(&syncFlags.plain, "plain", false,
		"Print plain progress lines instead of the interactive view")

	_ = syncCmd.RegisterFlagCompletionFunc("entity", completeEntityNames)
}

// buildSyncConfig builds a SyncConfig from flags, environment and erpsync.yaml.
func buildSyncConfig(cmd *cobra.Command, projectPath string, flags syncFlagValues, verbose bool) (erpsync.SyncConfig, error) {
	for _, path := range flags.envFiles {
		if err := params.ApplyEnvFile(path); err != nil {
			return erpsync.SyncConfig{}, fmt.Errorf("%w: %w", erpsync.ErrInvalidConfig, err)
		}
	}

	projectCfg, err := loadProjectConfig(projectPath)
	if err != nil {
		return erpsync.SyncConfig{}, err
	}

	target, err := resolveTarget(flags.conn, projectCfg)
	if err != nil {
		return erpsync.SyncConfig{}, err
	}

	src, err := resolveSource(flags.erp, os.Getenv, projectCfg)
	if err != nil {
		return erpsync.SyncConfig{}, err
	}

	if verbose {
		logConnectionVerbose(target, src, source.Describe(src))
	}

	queries, err := resolveQueries(
		scanner.NewScanner(checksum.New()), entity.FrePPLe(), projectPath, projectCfg, flags.queries, verbose)
	if err != nil {
		return erpsync.SyncConfig{}, err
	}

	entities := flags.entities
	if len(entities) == 0 && projectCfg != nil {
		entities = projectCfg.Only
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, flags.timeout)
	if err != nil {
		return erpsync.SyncConfig{}, err
	}

	cfg := erpsync.SyncConfig{
		Source:    src,
		Target:    *target,
		Entities:  entities,
		Disabled:  projectCfg.Disabled(),
		Queries:   queries,
		TaskID:    flags.task,
		User:      flags.user,
		BatchSize: resolveBatchSize(cmd, projectCfg, flags.batchSize),
		Timeout:   timeout,
		Verbose:   verbose,
	}
	if projectCfg != nil {
		cfg.TaskName = projectCfg.TaskName
	}
	return cfg, nil
}

// newSyncService wires the production dependencies.
func newSyncService(logger erpsync.Logger) *services.SyncService {
	connectorFactory := func(cfg *erpsync.ConnectionConfig) (erpsync.Connector, error) {
		return db.NewConnector(cfg, logger)
	}
	return services.NewSyncService(
		entity.FrePPLe(),
		services.NewTargetOpener(connectorFactory, logger),
		services.NewSourceOpener(logger),
		manager.New(),
		func(conn erpsync.DBConnection) erpsync.TaskStore { return store.NewTaskStore(conn) },
		logger,
	)
}

func runSync(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	logFormat, err := getLogFormat(cmd)
	if err != nil {
		return err
	}

	cfg, err := buildSyncConfig(cmd, projectDir(args), syncFlags, verbose)
	if err != nil {
		return err
	}

	// SIGINT/SIGTERM cancel the pass; the task is still finalized.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		logger   erpsync.Logger
		progress erpsync.ProgressReporter
		view     *tui.ProgressView
	)
	if !syncFlags.plain && logFormat == logging.FormatText && tui.IsInteractive() {
		view = tui.NewProgressView(os.Stderr, cancel)
		logger = view.Logger(verbose)
		progress = view
		view.Start()
	} else {
		logger = logging.New(os.Stderr, verbose, logFormat)
		progress = tui.NewConsoleReporter(os.Stderr)
	}

	report, runErr := newSyncService(logger).WithProgress(progress).Run(ctx, cfg)

	if view != nil {
		if err := view.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: progress view: %v\n", err)
		}
	}

	if report != nil {
		fmt.Fprintln(os.Stdout, tui.RenderReport(report))
	}
	if runErr != nil {
		return runErr
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: rolled back: %s", erpsync.ErrSyncFailed, strings.Join(failed, ", "))
	}
	return nil
}
