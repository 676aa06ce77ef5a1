package credstore

import (
	"context"
	"testing"
	"time"

	"alarmbridge/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) (*Store, func()) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/credstore")

	store, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		store.Close()
		cleanup()
	}
}

func TestStore(t *testing.T) {
	store, cleanup := setup(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, err := store.Get(ctx, "alarm", "unknown-id")
		require.ErrorIs(t, err, ErrNotFound)
	}
	{
		err := store.Set(ctx, "alarm", "home", Credentials{
			Username: "user@example.com",
			Password: "hunter2",
		})
		require.NoError(t, err)

		creds, err := store.Get(ctx, "alarm", "home")
		require.NoError(t, err)
		require.Equal(t, "user@example.com", creds.Username)
		require.Equal(t, "hunter2", creds.Password)
	}
	{
		// upsert replaces the existing record
		err := store.Set(ctx, "alarm", "home", Credentials{
			Username: "user@example.com",
			Password: "correct horse battery staple",
		})
		require.NoError(t, err)

		creds, err := store.Get(ctx, "alarm", "home")
		require.NoError(t, err)
		require.Equal(t, "correct horse battery staple", creds.Password)
	}
	{
		// namespaces are independent
		_, err := store.Get(ctx, "other", "home")
		require.ErrorIs(t, err, ErrNotFound)
	}
	{
		err := store.Delete(ctx, "alarm", "home")
		require.NoError(t, err)

		_, err = store.Get(ctx, "alarm", "home")
		require.ErrorIs(t, err, ErrNotFound)

		// deleting again is a no-op
		require.NoError(t, store.Delete(ctx, "alarm", "home"))
	}
}
