package commands

import (
	"log"
	"log/slog"

	"alarmbridge/lib/alarmhub"
	"alarmbridge/lib/credstore"

	"github.com/spf13/cobra"
)

var (
	loginUsername *string
	loginPassword *string
	loginSave     *bool
)

func init() {
	loginUsername = loginCmd.Flags().StringP("username", "u", "", "The portal username to log in with.")
	loginPassword = loginCmd.Flags().StringP("password", "p", "", "The portal password to log in with.")
	loginSave = loginCmd.Flags().Bool("save", true, "Store the credentials after a successful login.")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login -u <username> -p <password> [--save=false]",
	Short: "Verifies credentials against the portal and stores them.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readConfig()

		creds := alarmhub.Credentials{
			Username: *loginUsername,
			Password: *loginPassword,
		}
		session := createSession(ctx, creds, cfg)
		defer session.Close()

		slog.Info("logged in", "identity", session.Identity())

		if !*loginSave {
			return
		}
		store := openStore(cfg)
		defer store.Close()

		err := store.Set(ctx, credNamespace, "default", credstore.Credentials{
			Username: creds.Username,
			Password: creds.Password,
		})
		if err != nil {
			log.Fatal(err)
		}
		slog.Info("credentials stored", "db", cfg.CredentialDb)
	},
}
