package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/config"
	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/bootstrap"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/database"
	"github.com/wekeepgrowing/todosync/internal/usecase"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	dryRun       bool
	skipExisting bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "import-templates FILE...",
		Short:        "Validate and store task templates from YAML files",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate only; do not connect to the database")
	cmd.Flags().BoolVar(&opts.skipExisting, "skip-existing", false, "Skip templates whose title is already stored")

	return cmd
}

// templateStore is what the importer needs from the database.
type templateStore interface {
	Create(ctx context.Context, req *dto.CreateTemplateRequest) (*model.Template, error)
	Exists(ctx context.Context, title string) (bool, error)
}

func run(ctx context.Context, out io.Writer, paths []string, opts options) error {
	var requests []dto.CreateTemplateRequest
	for _, path := range paths {
		loaded, err := loadTemplatesFromYAML(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		requests = append(requests, loaded...)
	}

	if opts.dryRun {
		return importTemplates(ctx, out, requests, nil, opts)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
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
	store := &dbTemplateStore{
		service: usecase.NewTemplateService(repos.Template, repos.Label, logger),
		lookup:  repos.Template.GetByTitle,
	}
	return importTemplates(ctx, out, requests, store, opts)
}

type dbTemplateStore struct {
	service *usecase.TemplateService
	lookup  func(ctx context.Context, title string) (*model.Template, error)
}

func (s *dbTemplateStore) Create(ctx context.Context, req *dto.CreateTemplateRequest) (*model.Template, error) {
	return s.service.Create(ctx, req)
}

func (s *dbTemplateStore) Exists(ctx context.Context, title string) (bool, error) {
	t, err := s.lookup(ctx, title)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// importTemplates validates every request before storing any. A nil store
// validates only.
func importTemplates(ctx context.Context, out io.Writer, requests []dto.CreateTemplateRequest, store templateStore, opts options) error {
	failed := 0
	for i := range requests {
		if _, err := usecase.BuildTemplate(&requests[i]); err != nil {
			failed++
			fmt.Fprintf(out, "INVALID  %q\n", requests[i].Title)
			printValidation(out, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d templates are invalid", failed, len(requests))
	}
	if store == nil {
		fmt.Fprintf(out, "%d templates valid\n", len(requests))
		return nil
	}

	imported, skipped := 0, 0
	for i := range requests {
		req := &requests[i]
		if opts.skipExisting {
			exists, err := store.Exists(ctx, req.Title)
			if err != nil {
				return fmt.Errorf("failed to look up %q: %w", req.Title, err)
			}
			if exists {
				skipped++
				fmt.Fprintf(out, "SKIPPED  %q\n", req.Title)
				continue
			}
		}

		template, err := store.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to import %q: %w", req.Title, err)
		}
		imported++
		fmt.Fprintf(out, "IMPORTED %q id=%d tasks=%d\n", template.Title, template.ID, len(template.Tasks))
	}

	fmt.Fprintf(out, "%d imported, %d skipped\n", imported, skipped)
	return nil
}

func printValidation(out io.Writer, err error) {
	var verr *domainErrors.ValidationError
	if !errors.As(err, &verr) {
		fmt.Fprintf(out, "  %v\n", err)
		return
	}
	fields := make([]string, 0, len(verr.Fields))
	for field := range verr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(out, "  %s: %s\n", field, verr.Fields[field])
	}
}
