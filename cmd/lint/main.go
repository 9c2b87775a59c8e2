// Command lint loads every cluster type of a catalogue and reports the ones that fail to load.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/openflighthpc/cluster-builder/pkg/clustertype"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var remote bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "lint <cluster types directory>",
		Short: "Report the cluster types of a catalogue that fail to load",
		Long: `Lint loads every cluster type of the catalogue the way the service does and prints
the reason each invalid cluster type fails to load. It exits non-zero if any cluster type is invalid.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.DiscardHandler)
			var fetcher clustertype.Fetcher
			if remote {
				fetcher = clustertype.NewHTTPFetcher(logger, timeout)
			}
			repository := clustertype.NewRepository(logger, afero.NewOsFs(), args[0], fetcher)

			loadErrors, err := repository.Check(cmd.Context())
			if err != nil {
				return err
			}

			ids := maps.Keys(loadErrors)
			slices.Sort(ids)
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", id, loadErrors[id])
			}
			if len(loadErrors) > 0 {
				return fmt.Errorf("%d invalid cluster types", len(loadErrors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "fetch remote templates referenced by components")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout of fetching a remote template")
	return cmd
}
