package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"alarmbridge/lib/alarmhub"
	"alarmbridge/lib/configutil"
	"alarmbridge/lib/credstore"
)

const credNamespace = "alarm"

type Config struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	BaseUrl      string `json:"base_url"`
	CredentialDb string `json:"credential_db"`
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		slog.Warn("no config.json5 found, relying on flags and stored credentials", "err", err)
	}
	if cfg.CredentialDb == "" {
		cfg.CredentialDb = "credentials.db"
	}
	return cfg
}

func openStore(cfg Config) *credstore.Store {
	store, err := credstore.Open(cfg.CredentialDb)
	if err != nil {
		log.Fatal(err)
	}
	return store
}

// credentials resolves, in order, the config file and the credential
// store.
func credentials(ctx context.Context, cfg Config) alarmhub.Credentials {
	if cfg.Username != "" && cfg.Password != "" {
		return alarmhub.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	store := openStore(cfg)
	defer store.Close()

	stored, err := store.Get(ctx, credNamespace, "default")
	if errors.Is(err, credstore.ErrNotFound) {
		log.Fatal("no credentials configured, run 'alarm-cli login' first")
	}
	if err != nil {
		log.Fatal(err)
	}
	return alarmhub.Credentials{
		Username: stored.Username,
		Password: stored.Password,
	}
}

// promptMfa reads a one-time code from stdin and submits it, letting the
// interrupted call resume.
func promptMfa(s *alarmhub.Session) {
	fmt.Fprint(os.Stderr, "two factor code: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		slog.Error("failed to read two factor code", "err", err)
		return
	}
	err = s.VerifyTwoFactor(context.Background(), strings.TrimSpace(line))
	if err != nil {
		slog.Error("two factor verification failed", "err", err)
	}
}

func createSession(ctx context.Context, creds alarmhub.Credentials, cfg Config) *alarmhub.Session {
	session, err := alarmhub.NewSession(creds, alarmhub.Options{
		BaseURL:       cfg.BaseUrl,
		OnMfaRequired: promptMfa,
	})
	if err != nil {
		log.Fatal(err)
	}
	err = session.Login(ctx)
	if err != nil {
		session.Close()
		log.Fatal(err)
	}
	return session
}

func loggedInSession(ctx context.Context) *alarmhub.Session {
	cfg := readConfig()
	return createSession(ctx, credentials(ctx, cfg), cfg)
}
