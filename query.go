package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/repoclassify/internal/source"
	"github.com/phobologic/repoclassify/internal/store"
)

func (a *app) queryCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "query <url|dir>",
		Short: "Print the stored results of a repository",
		Long: `Print every stored row for a repository in insertion order, one
"<id> <kind> <name>" line per row. Repeated analyses of the same repository
appear as repeated rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.cfg.Storage.DSN
			}
			if dsn == "" {
				return fmt.Errorf("no database configured (use --store or $REPOCLASSIFY_DSN)")
			}

			repository, err := identifier(args[0])
			if err != nil {
				return err
			}

			st, err := store.Open(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.Query(cmd.Context(), repository)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintf(a.stderr, "no stored results for %s\n", repository)
				return nil
			}
			for _, r := range recs {
				switch {
				case r.ClassName != nil:
					fmt.Fprintf(a.stdout, "%d class %s\n", r.ID, *r.ClassName)
				case r.FunctionName != nil:
					fmt.Fprintf(a.stdout, "%d function %s\n", r.ID, *r.FunctionName)
				case r.Endpoint != nil:
					fmt.Fprintf(a.stdout, "%d endpoint %s\n", r.ID, *r.Endpoint)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "store", "", "database to read from (SQLite path or postgres:// DSN)")
	return cmd
}

// identifier returns the key results were stored under: the URL as given, or
// the absolute path of a local directory.
func identifier(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		ref, err := source.Resolve(arg, "")
		if err != nil {
			return "", err
		}
		return ref.Identifier(), nil
	}
	ref, err := source.LocalRef(arg)
	if err != nil {
		return "", err
	}
	return ref.Identifier(), nil
}
