package commands

import (
	"log"
	"os"

	"alarmbridge/lib/alarmhub"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var sensorsSystem *string

func init() {
	sensorsSystem = sensorsCmd.Flags().String("system", "", "The system to list sensors for, defaults to the selected one.")
	rootCmd.AddCommand(sensorsCmd)
}

var sensorsCmd = &cobra.Command{
	Use:   "sensors [--system <id>]",
	Short: "Prints the sensors and partitions of a system.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		session := loggedInSession(ctx)
		defer session.Close()

		systemID := *sensorsSystem
		if systemID == "" {
			var err error
			systemID, err = session.SelectedSystem(ctx, false)
			if err != nil {
				log.Fatal(err)
			}
			if systemID == "" {
				log.Fatal("the account has no selected system, pass --system")
			}
		}

		system, err := session.GetSystem(ctx, systemID)
		if err != nil {
			log.Fatal(err)
		}
		parents := []*alarmhub.System{system}
		err = alarmhub.ResolveMany(ctx, session, parents, alarmhub.SystemSensors, nil)
		if err != nil {
			log.Fatal(err)
		}
		err = alarmhub.ResolveMany(ctx, session, parents, alarmhub.SystemPartitions, nil)
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Kind", "Name", "State", "Malfunctioning"})
		for _, p := range system.Partitions {
			t.AppendRow(table.Row{p.ID, "partition", p.Name, p.State, p.IsMalfunctioning})
		}
		for _, se := range system.Sensors {
			t.AppendRow(table.Row{se.ID, "sensor", se.Name, se.StateText, se.IsMalfunctioning})
		}
		t.Render()
	},
}
