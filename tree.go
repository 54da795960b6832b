package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/repoclassify/internal/model"
	"github.com/phobologic/repoclassify/internal/source"
)

func (a *app) treeCmd() *cobra.Command {
	var token, output string
	cmd := &cobra.Command{
		Use:   "tree <url|dir>",
		Short: "Print the directory structure of a repository",
		Long: `Print the directory structure of a repository. URLs are listed through
the contents API without cloning; local directories are walked in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = a.cfg.Forge.Token
			}
			nodes, root, err := a.listTree(cmd, args[0], token)
			if err != nil {
				return err
			}
			if langs := source.Detect(nodes); len(langs) > 0 {
				fmt.Fprintf(a.stderr, "detected languages: %s\n", strings.Join(langs, ", "))
			}

			text := strings.Join(source.FormatTree(nodes, root), "\n")
			if text != "" {
				text += "\n"
			}
			if output == "" {
				_, err := io.WriteString(a.stdout, text)
				return err
			}
			if err := a.writeOutput(cmd, output, []byte(text)); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "directory structure written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token for private repositories (default $GITHUB_TOKEN)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the structure to a file or s3://bucket/key instead of stdout")
	return cmd
}

func (a *app) listTree(cmd *cobra.Command, arg, token string) ([]model.FileNode, string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		nodes, err := source.List(arg, a.filter())
		return nodes, "", err
	}

	ref, err := source.Resolve(arg, token)
	if err != nil {
		return nil, "", err
	}
	r, err := a.remote()
	if err != nil {
		return nil, "", err
	}
	nodes, err := r.ListTree(cmd.Context(), ref)
	if err != nil {
		return nil, "", err
	}
	return nodes, ref.Path, nil
}
