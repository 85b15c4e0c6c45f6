// Package recallcmder
package recallcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/recallhq/recall/cmd/recall/config"
	initcmder "github.com/recallhq/recall/cmd/recall/init"
	searchcmder "github.com/recallhq/recall/cmd/recall/search"
	servecmder "github.com/recallhq/recall/cmd/recall/serve"
	statuscmder "github.com/recallhq/recall/cmd/recall/status"
	versioncmder "github.com/recallhq/recall/cmd/version"
)

const recallLongDesc string = `Recall is a private search engine over the web pages you have visited.

It indexes page content sent by the browser extension and answers
natural-language queries with links back to the exact passages.

Run the server using:
  recall serve         Run the HTTP API server

Query from the terminal using:
  recall search        Search your browsing history
  recall status        Show index statistics`

const recallShortDesc string = "Recall - personal web page recall"

func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: recallShortDesc,
		Long:  recallLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Path to the .recall/ directory (default: ./.recall or ~/.recall)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
