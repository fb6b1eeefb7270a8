package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hannu-storefront/internal/admin"
	"hannu-storefront/internal/backend"
	"hannu-storefront/internal/catalog"
	"hannu-storefront/internal/config"
	"hannu-storefront/internal/logger"
	"hannu-storefront/internal/repository"
	"hannu-storefront/internal/session"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is what every subcommand works against. It is built lazily in the
// root's PersistentPreRunE so that --help never touches the state file.
type app struct {
	out     io.Writer
	logger  *zap.Logger
	cfg     *config.Config
	state   *sqlx.DB
	catalog *catalog.Catalog
	admin   *admin.Service
	timeout time.Duration

	// flags
	statePath string
	apiURL    string
	verbose   bool
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hannuctl-state.db"
	}
	return filepath.Join(home, ".hannuctl", "state.db")
}

// run executes one hannuctl invocation and releases the state file
// whatever the outcome
func run(ctx context.Context, out io.Writer, args []string) error {
	a := &app{out: out}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hannuctl",
		Short: "Manage the Hannu Clothes catalog from the terminal",
		Long: `hannuctl drives the same admin workflow as the storefront's admin mode:
it logs into the product API with the configured ADMIN_USERNAME and
ADMIN_PASSWORD, keeps the token in a local state file and creates, updates,
deletes and bulk-imports products.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.statePath, "state", defaultStatePath(), "Path to the local state file")
	rootCmd.PersistentFlags().StringVar(&a.apiURL, "api", "", "Product API base URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 2*time.Minute, "Overall deadline for one command")

	rootCmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newProductsCmd(a),
		newImagesCmd(a),
		newManagerCmd(a),
	)
	return rootCmd
}

func (a *app) init() error {
	a.logger = logger.NewCLI(a.verbose)
	a.cfg = config.Load()
	if a.apiURL != "" {
		a.cfg.Backend.URL = a.apiURL
	}

	db, err := repository.OpenSQLite(a.statePath)
	if err != nil {
		return err
	}
	a.state = db

	a.catalog = catalog.New()
	client := backend.NewClient(a.cfg.Backend.URL, a.cfg.Backend.Timeout, a.logger)
	a.admin = admin.NewService(
		client,
		session.New(repository.NewSQLiteStateRepository(db)),
		a.catalog,
		&printNotifier{out: a.out, logger: a.logger},
		admin.Options{
			Credentials: admin.Credentials{
				Username: a.cfg.Admin.Username,
				Password: a.cfg.Admin.Password,
			},
			BrandPlaceholder: a.cfg.Images.BrandPlaceholder,
			FetchLimit:       a.cfg.Backend.FetchLimit,
			// the process exits right after the write, so reconcile inline
			Scheduler: func(_ time.Duration, f func()) { f() },
		},
		a.logger,
	)
	a.logger.Debug("hannuctl ready",
		zap.String("api", a.cfg.Backend.URL),
		zap.String("state", a.statePath),
	)
	return nil
}

func (a *app) close() {
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			a.logger.Warn("Failed to close state file", zap.Error(err))
		}
		a.state = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

// printNotifier shows each admin outcome on its own line
type printNotifier struct {
	out    io.Writer
	logger *zap.Logger
}

func (n *printNotifier) Notify(_ context.Context, note admin.Notification) {
	mark := "✓"
	if !note.Success {
		mark = "✗"
	}
	fmt.Fprintf(n.out, "%s %s\n", mark, note.Message)
	n.logger.Debug("Admin notification", zap.String("op", string(note.Op)), zap.Bool("success", note.Success))
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log into the product API and store the admin token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			_, err := a.admin.Login(ctx)
			return err
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored admin token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.admin.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Admin token cleared")
			return nil
		},
	}
}
