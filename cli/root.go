// Package cli implements the fetchql command line tool: one-shot query
// execution and an interactive session, both backed by the in-memory
// provider loaded from YAML fixtures.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fetchql/fetchql/engine"
	"github.com/fetchql/fetchql/memstore"
)

var (
	flagFixtures string
	flagPageSize int
	flagFormat   string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "fetchql",
	Short: "SQL front end for FetchXML entity stores",
	Long: `fetchql compiles SQL-flavored statements into FetchXML and executes
them against an entity store, evaluating client-side whatever FetchXML
cannot express.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagFixtures, "fixtures", "f", "", "YAML fixture file to load into the in-memory store")
	rootCmd.PersistentFlags().IntVar(&flagPageSize, "page-size", engine.DefaultPageSize, "rows requested per remote page")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "o", "table", "output format: table or json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(replCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newEngine builds an engine over a store loaded from the fixture flag
func newEngine() (*engine.Engine, error) {
	store := memstore.New()

	if flagFixtures != "" {
		data, err := os.ReadFile(flagFixtures)
		if err != nil {
			return nil, fmt.Errorf("reading fixtures: %w", err)
		}

		if err := store.LoadYAML(data); err != nil {
			return nil, err
		}
	}

	return engine.New(store, engine.WithPageSize(flagPageSize)), nil
}
