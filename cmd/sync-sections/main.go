package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/config"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/bootstrap"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/database"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/provider/todoist"
	"github.com/wekeepgrowing/todosync/internal/usecase"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		projectID string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "sync-sections",
		Short: "Mirror Todoist project sections into the sections table",
		Long: `Fetch every section of a Todoist project and upsert it by section id.
New sections get a unique key derived from their name; existing rows keep
their key and get the current name.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), projectID, dryRun)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project-id", "p", "", "Todoist project id (defaults to todoist.project_id)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")

	return cmd
}

func run(ctx context.Context, out io.Writer, projectID string, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if projectID == "" {
		projectID = cfg.Todoist.ProjectID
	}
	if projectID == "" {
		return fmt.Errorf("no project id: pass --project-id or set todoist.project_id")
	}

	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database, cfg.Log.GormLevel, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db, logger); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	repos := database.NewRepositories(db, logger)
	client := todoist.NewClient(&cfg.Todoist, &cfg.Retry, logger)
	service := usecase.NewSectionSyncService(client, repos.Section, logger)

	result, err := service.Sync(ctx, projectID, dryRun)
	if err != nil {
		return err
	}

	return printResult(out, result)
}

func printResult(out io.Writer, result *usecase.SectionSyncResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tKEY\tNAME\tSECTION ID")
	for _, row := range result.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Status, row.Key, row.Name, row.SectionID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	prefix := ""
	if result.DryRun {
		prefix = "[dry run] "
	}
	_, err := fmt.Fprintf(out, "\n%s%d created, %d updated, %d unchanged\n",
		prefix, result.Created, result.Updated, result.Unchanged)
	return err
}
