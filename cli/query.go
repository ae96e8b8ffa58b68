package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fetchql/fetchql/eval"
)

var flagShowFetchXML bool

var queryCmd = &cobra.Command{
	Use:   "query <statements>",
	Short: "Execute a statement batch and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		scope := eval.NewScope()

		results, err := eng.ExecuteScript(cmd.Context(), strings.Join(args, " "), scope)

		for _, result := range results {
			if flagShowFetchXML && result.FetchXML != "" {
				fmt.Fprintln(os.Stderr, result.FetchXML)
			}

			if printErr := printResult(os.Stdout, result, flagFormat); printErr != nil {
				return printErr
			}
		}

		return err
	},
}

func init() {
	queryCmd.Flags().BoolVar(&flagShowFetchXML, "show-fetchxml", false, "print the transpiled FetchXML to stderr")
}
