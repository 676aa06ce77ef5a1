package commands

import (
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(systemsCmd)
}

var systemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "Prints the systems available to the account.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		session := loggedInSession(ctx)
		defer session.Close()

		systems, err := session.AvailableSystems(ctx)
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name", "Selected"})
		for _, sys := range systems {
			selected := ""
			if sys.IsSelected {
				selected = "*"
			}
			t.AppendRow(table.Row{sys.ID, sys.Name, selected})
		}
		t.Render()
	},
}
