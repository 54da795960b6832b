package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/phobologic/repoclassify/internal/aggregate"
	"github.com/phobologic/repoclassify/internal/artifact"
	"github.com/phobologic/repoclassify/internal/model"
	"github.com/phobologic/repoclassify/internal/report"
	"github.com/phobologic/repoclassify/internal/store"
	"github.com/phobologic/repoclassify/internal/toon"
)

type analyzeOptions struct {
	token    string
	output   string
	remote   bool
	dsn      string
	format   string
	progress bool
}

func (a *app) analyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [url|dir]",
		Short: "Extract and classify declarations of a repository",
		Long: `Analyze a repository and print the category report.

Without an argument the repository URL, an optional token and an optional
output path are read from standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				target, err := a.prompt(&opts)
				if err != nil {
					return err
				}
				args = []string{target}
			}
			return a.analyze(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.token, "token", "", "access token for private repositories (default $GITHUB_TOKEN)")
	f.StringVarP(&opts.output, "output", "o", "", "write the report to a file or s3://bucket/key instead of stdout")
	f.BoolVar(&opts.remote, "remote", false, "read through the contents API instead of cloning")
	f.StringVar(&opts.dsn, "store", "", "database to append results to (SQLite path or postgres:// DSN)")
	f.StringVar(&opts.format, "format", "", "report format: text or toon")
	f.BoolVar(&opts.progress, "progress", false, "show a progress bar on stderr")
	return cmd
}

// prompt reads the repository URL, token and output path interactively.
func (a *app) prompt(opts *analyzeOptions) (string, error) {
	in := bufio.NewScanner(a.stdin)
	ask := func(question string) string {
		fmt.Fprint(a.stderr, question)
		if !in.Scan() {
			return ""
		}
		return strings.TrimSpace(in.Text())
	}

	target := ask("Enter the GitHub repository URL: ")
	if target == "" {
		if err := in.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", fmt.Errorf("no repository URL given")
	}
	if token := ask("Enter your GitHub token (optional): "); token != "" {
		opts.token = token
	}
	if output := ask("Enter output file path (optional): "); output != "" {
		opts.output = output
	}
	return target, nil
}

func (a *app) analyze(cmd *cobra.Command, target string, opts analyzeOptions) error {
	ctx := cmd.Context()
	cfg := a.cfg

	token := opts.token
	if token == "" {
		token = cfg.Forge.Token
	}
	if opts.dsn != "" {
		cfg.Storage.DSN = opts.dsn
	}
	if opts.output != "" {
		cfg.Report.Output = opts.output
	}
	if opts.format != "" {
		cfg.Report.Format = opts.format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	provider, ref, err := a.target(target, token, opts.remote)
	if err != nil {
		return err
	}

	policy, err := aggregate.ParsePolicyFromString(cfg.Analysis.ParsePolicy)
	if err != nil {
		return err
	}
	aggOpts := []aggregate.Option{
		aggregate.WithLogger(a.logger),
		aggregate.WithParsePolicy(policy),
		aggregate.WithMaxFileSize(cfg.Analysis.MaxFileSize),
	}
	if opts.progress {
		aggOpts = append(aggOpts, aggregate.WithProgress(progressFunc(a.stderr)))
	}
	agg, err := aggregate.New(aggOpts...)
	if err != nil {
		return err
	}

	var res *model.AnalysisResult
	err = provider.WithTree(ctx, ref, func(nodes []model.FileNode) error {
		res, err = agg.Aggregate(ctx, ref.Identifier(), nodes)
		return err
	})
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", ref.Identifier(), err)
	}
	a.logger.Info("analysis complete",
		slog.String("repository", ref.Identifier()),
		slog.Int("files", res.Files),
		slog.Int("items", res.Total()),
		slog.Int("errors", len(res.Errors)),
		slog.Any("languages", res.Languages))

	if cfg.Storage.DSN != "" {
		if err := a.save(cmd, ref.Identifier(), res); err != nil {
			return err
		}
	}

	var data string
	if cfg.Report.Format == "toon" {
		data = toon.Encode(res) + "\n"
	} else {
		data = report.String(res)
	}

	if cfg.Report.Output == "" {
		_, err := io.WriteString(a.stdout, data)
		return err
	}

	if err := a.writeOutput(cmd, cfg.Report.Output, []byte(data)); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "report written to %s\n", cfg.Report.Output)
	return nil
}

// writeOutput stores data at dest, a local path or an s3:// URL.
func (a *app) writeOutput(cmd *cobra.Command, dest string, data []byte) error {
	var s3 *artifact.S3Store
	if artifact.IsURL(dest) && a.cfg.ArtifactEnabled() {
		var err error
		s3, err = artifact.NewS3Store(artifact.S3Config{
			Endpoint:  a.cfg.Artifact.Endpoint,
			Region:    a.cfg.Artifact.Region,
			AccessKey: a.cfg.Artifact.AccessKey,
			SecretKey: a.cfg.Artifact.SecretKey,
			Bucket:    a.cfg.Artifact.Bucket,
			UseSSL:    a.cfg.Artifact.UseSSL,
		})
		if err != nil {
			return err
		}
	}
	return report.WriteTo(cmd.Context(), dest, data, s3)
}

func (a *app) save(cmd *cobra.Command, repository string, res *model.AnalysisResult) error {
	st, err := store.Open(cmd.Context(), a.cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Save(cmd.Context(), repository, res)
	if err != nil {
		return err
	}
	a.logger.Info("results stored", slog.String("repository", repository), slog.Int("rows", n))
	return nil
}

// progressFunc draws a progress bar sized on the first callback.
func progressFunc(w io.Writer) aggregate.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(done, total int, path string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Analyzing"),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		_ = bar.Set(done)
	}
}
