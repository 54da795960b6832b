// repoclassify extracts classes, functions and routes from a repository and
// files them into heuristic categories.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phobologic/repoclassify/internal/config"
	"github.com/phobologic/repoclassify/internal/model"
	"github.com/phobologic/repoclassify/internal/source"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by all subcommands of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "repoclassify",
		Short: "Classify the classes, functions and routes of a repository",
		Long: `repoclassify fetches a repository (by cloning it, through the GitHub
contents API, or from a local directory), extracts class, function and route
declarations from its Python files and files them into categories such as
Models, Views and Endpoints based on file names.

Example usage:
  repoclassify analyze https://github.com/acme/shop           # clone and analyze
  repoclassify analyze --remote https://github.com/acme/shop  # read through the API
  repoclassify analyze ./shop -o report.txt                   # local directory
  repoclassify tree https://github.com/acme/shop              # directory structure
  repoclassify query --store results.db https://github.com/acme/shop`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetVersionTemplate("repoclassify {{.Version}}\n")

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is ./"+config.FileName+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(a.analyzeCmd(), a.treeCmd(), a.queryCmd(), a.initCmd())
	return root
}

// setup loads configuration and installs the logger.
func (a *app) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
		if err == nil {
			err = config.LoadEnvFile(filepath.Join(filepath.Dir(a.configPath), ".env"))
		}
	} else {
		a.cfg, err = config.LoadFromDir(".")
		if err == nil {
			err = config.LoadEnvFile(".env")
		}
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg.ApplyEnv(os.Getenv)
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	level, _ := config.ParseLevel(a.cfg.Logging.Level)
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) filter() source.Filter {
	return source.Filter{Includes: a.cfg.Walk.Includes, Excludes: a.cfg.Walk.Excludes}
}

func (a *app) remote() (*source.Remote, error) {
	timeout, err := a.cfg.ForgeTimeout()
	if err != nil {
		return nil, err
	}
	r := source.NewRemote(a.cfg.Forge.APIURL, &http.Client{Timeout: timeout})
	r.Filter = a.filter()
	r.Logger = a.logger
	return r, nil
}

func (a *app) cloner() source.Cloner {
	if a.cfg.Source.Cloner == "go-git" {
		return source.GoGitCloner{Depth: a.cfg.Source.Depth}
	}
	return source.GitCloner{Depth: a.cfg.Source.Depth}
}

// target resolves a command argument to a reference and the provider that
// lists it. Existing local directories are listed in place.
func (a *app) target(arg, token string, remote bool) (source.Provider, model.RepositoryRef, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		ref, err := source.LocalRef(arg)
		if err != nil {
			return nil, model.RepositoryRef{}, err
		}
		return source.Dir{Filter: a.filter()}, ref, nil
	}

	ref, err := source.Resolve(arg, token)
	if err != nil {
		return nil, model.RepositoryRef{}, err
	}
	if remote || a.cfg.Source.Mode == "remote" {
		r, err := a.remote()
		if err != nil {
			return nil, model.RepositoryRef{}, err
		}
		return r, ref, nil
	}
	return &source.CloneProvider{
		Cloner:  a.cloner(),
		Filter:  a.filter(),
		TempDir: a.cfg.Source.TempDir,
		Logger:  a.logger,
	}, ref, nil
}
