package commands

import (
	"log"
	"os"
	"strings"

	"alarmbridge/lib/alarmhub"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	usersSearch *string
	usersEmails *bool
)

func init() {
	usersSearch = usersCmd.Flags().String("search", "", "Filter users by a search string.")
	usersEmails = usersCmd.Flags().Bool("emails", false, "Also resolve and print notification email addresses.")
	rootCmd.AddCommand(usersCmd)
}

var usersCmd = &cobra.Command{
	Use:   "users [--search <text>] [--emails]",
	Short: "Prints the users of the currently selected system.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		session := loggedInSession(ctx)
		defer session.Close()

		users, err := session.FetchUsers(ctx, alarmhub.UserQuery{
			StartIndex:   -1,
			SearchString: *usersSearch,
			SortByAccess: true,
		})
		if err != nil {
			log.Fatal(err)
		}
		if *usersEmails {
			err = alarmhub.ResolveMany(ctx, session, users, alarmhub.UserEmailAddresses, nil)
			if err != nil {
				log.Fatal(err)
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		header := table.Row{"ID", "Name", "Primary", "Paused"}
		if *usersEmails {
			header = append(header, "Emails")
		}
		t.AppendHeader(header)
		for _, u := range users {
			row := table.Row{u.ID, u.Name(), u.IsPrimary, u.IsPaused}
			if *usersEmails {
				addrs := make([]string, len(u.EmailAddresses))
				for i, e := range u.EmailAddresses {
					addrs[i] = e.Address
				}
				row = append(row, strings.Join(addrs, ", "))
			}
			t.AppendRow(row)
		}
		t.Render()
	},
}
