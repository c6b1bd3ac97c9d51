package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartdraft/config"
	"smartdraft/coordinator"
	"smartdraft/handlers/api"
	"smartdraft/hostpage"
	"smartdraft/identity"
	"smartdraft/llm"
	"smartdraft/settings"
	"smartdraft/storage"
	"smartdraft/utils"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	pagePath   string
	outPath    string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "smartdraft",
		Short:         "Email draft generator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to the TOML config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newComposeCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the coordinator, settings page and message bus",
		RunE:  runServe,
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the completion API with the stored key",
		RunE:  runCheck,
	}
}

func newComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Generate a draft from a saved compose page and write the filled page",
		RunE:  runCompose,
	}
	cmd.Flags().StringVar(&pagePath, "page", "", "compose page HTML with the drafting overlay")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default: stdout)")
	_ = cmd.MarkFlagRequired("page")
	return cmd
}

// loadConfig reads the config file and applies the log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	utils.Log.SetLevel(utils.ParseLevel(cfg.Log.Level))

	if err := utils.InitI18n(); err != nil {
		utils.Log.Error("Failed to initialize i18n: %v", err)
	}
	return cfg, nil
}

// openServices wires storage, the completion client and the coordinator
func openServices(cfg *config.Config) (*services, error) {
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	repo, err := storage.NewRepository(store, cfg.Encryption.Key)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	client := llm.NewClient(cfg.OpenAI)
	hub := api.NewNotificationHub()

	coord := coordinator.New(repo, coordinator.Options{
		Completer:   client,
		Identity:    identity.NewJWTProvider(cfg.Identity),
		Notifier:    hub,
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window(),
	})

	return &services{
		config:      cfg,
		repo:        repo,
		client:      client,
		coordinator: coord,
		settings:    settings.NewService(repo, client),
		hub:         hub,
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	utils.Log.Info("Initializing SmartDraft...")

	svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer svc.repo.Close()

	app := newApp(svc)
	utils.Log.Info("Using completion model %s", svc.client.Model())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Info("Starting server on port %d...", cfg.Server.Port)
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	case <-ctx.Done():
	}

	utils.Log.Info("Shutting down...")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer svc.repo.Close()

	return checkConnection(cmd.Context(), svc, cmd.OutOrStdout())
}

// checkConnection tests the stored key against the configured model
func checkConnection(ctx context.Context, svc *services, out io.Writer) error {
	result := svc.settings.TestConnection(ctx, "", utils.GetLocalizer("en"))
	fmt.Fprintf(out, "%s (model: %s)\n", result.Message, svc.client.Model())
	if result.Status != settings.ProbeOK {
		return fmt.Errorf("connectivity check failed: %s", result.Status)
	}
	return nil
}

func runCompose(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer svc.repo.Close()

	in, err := os.Open(pagePath)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer in.Close()

	doc, err := hostpage.Parse(in, hostpage.EventFunc(func(target *html.Node, event string) {
		utils.Log.Debug("Fired %s on <%s>", event, target.Data)
	}))
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	return composeDraft(cmd.Context(), hostpage.NewIntegration(svc.coordinator), doc, out)
}

// composeDraft runs one generate-and-insert round against doc and renders the result
func composeDraft(ctx context.Context, integ *hostpage.Integration, doc *hostpage.Document, out io.Writer) error {
	if _, err := integ.LoadProfile(ctx); err != nil {
		utils.Log.Warn("Failed to load profile: %v", err)
	}

	draft, err := integ.GenerateFrom(ctx, doc)
	if err != nil {
		return fmt.Errorf("error generating email: %w", err)
	}

	res, err := integ.InsertInto(doc)
	if err != nil {
		return err
	}
	if !res.Subject && !res.Body {
		utils.Log.Warn("No compose fields found, draft %s was stored but not inserted", draft.ID)
	}

	return doc.Render(out)
}
