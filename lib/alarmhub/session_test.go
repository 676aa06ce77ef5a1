package alarmhub

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"alarmbridge/lib/jsondoc"

	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	session := loggedIn(t, portal, Options{})

	require.True(t, session.IsLoggedIn())
	require.Equal(t, "ident-1", session.Identity())

	form := portal.submittedLogin()
	require.Equal(t, "user@example.com", form.Get("ctl00$ContentPlaceHolder1$loginform$txtUserName"))
	require.Equal(t, "hunter2", form.Get("ctl00$ContentPlaceHolder1$loginform$txtPassword"))
	require.Equal(t, "vs-123", form.Get("__VIEWSTATE"))
	require.Equal(t, "ev-456", form.Get("__EVENTVALIDATION"))
	require.Equal(t, "1", form.Get("IsFromNewSite"))
	require.Equal(t, "1", form.Get("JavaScriptTest"))
	// the submit button has no matching name and is not copied
	require.Empty(t, form.Get("ctl00$ContentPlaceHolder1$loginform$signInButton"))
}

func TestLoginIdempotent(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	session := loggedIn(t, portal, Options{})
	require.NoError(t, session.Login(context.Background()))

	require.Equal(t, 1, portal.hitCount("/web/Default.aspx"))
}

func TestLoginRejected(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()
	portal.rejectLogin = true

	session := newTestSession(t, portal, Options{})
	err := session.Login(context.Background())
	require.ErrorIs(t, err, ErrLoginFailed)
	require.False(t, session.IsLoggedIn())
}

func TestLoginFormShape(t *testing.T) {
	cases := []struct {
		name string
		form string
	}{
		{
			name: "no password field",
			form: `<html><body><form>
				<input type="text" name="txtUserName" />
				<input type="text" name="txtPassword" />
			</form></body></html>`,
		},
		{
			name: "no username field",
			form: `<html><body><form>
				<input type="password" name="txtPassword" />
			</form></body></html>`,
		},
		{
			name: "two password candidates",
			form: `<html><body><form>
				<input type="text" name="txtUserName" />
				<input type="password" name="txtPassword" />
				<input type="password" name="confirmPassword" />
			</form></body></html>`,
		},
		{
			name: "two username candidates",
			form: `<html><body><form>
				<input type="text" name="txtUserName" />
				<input type="text" name="otherUserName" />
				<input type="password" name="txtPassword" />
			</form></body></html>`,
		},
		{
			name: "no form at all",
			form: `<html><body>maintenance page</body></html>`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			portal, cleanup := setup(t)
			defer cleanup()
			portal.loginForm = c.form

			session := newTestSession(t, portal, Options{})
			err := session.Login(context.Background())
			require.ErrorIs(t, err, ErrLoginFormShape)
		})
	}
}

func TestLoginIdentityResolution(t *testing.T) {
	t.Run("no identity", func(t *testing.T) {
		portal, cleanup := setup(t)
		defer cleanup()
		portal.handle("/web/api/identities", func(w http.ResponseWriter, r *http.Request) {
			writeMany(w, nil, nil)
		})

		session := newTestSession(t, portal, Options{})
		require.ErrorIs(t, session.Login(context.Background()), ErrNoIdentity)
	})

	t.Run("more than one identity", func(t *testing.T) {
		portal, cleanup := setup(t)
		defer cleanup()
		portal.handle("/web/api/identities", func(w http.ResponseWriter, r *http.Request) {
			writeMany(w, []*jsondoc.Document{identityDoc("ident-1"), identityDoc("ident-2")}, nil)
		})

		session := newTestSession(t, portal, Options{})
		require.ErrorIs(t, session.Login(context.Background()), ErrAmbiguousIdentity)
	})
}

func TestLoginGate(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()
	portal.handle("/web/api/systems/systems", func(w http.ResponseWriter, r *http.Request) {
		writeMany(w, nil, nil)
	})

	session := newTestSession(t, portal, Options{})
	ctx := context.Background()

	_, err := session.Get(ctx, "systems/systems", Request{})
	require.ErrorIs(t, err, ErrNotAuthenticated)
	// the gate fails before any request goes out
	require.Equal(t, 0, portal.hitCount("/web/api/systems/systems"))

	_, err = session.Get(ctx, "systems/systems", Request{SkipLoginGate: true})
	require.NoError(t, err)
	require.Equal(t, 1, portal.hitCount("/web/api/systems/systems"))
}

func TestAntiForgeryHeader(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	var gotKey, gotAccept string
	portal.handle("/web/api/systems/systems", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("AjaxRequestUniqueKey")
		gotAccept = r.Header.Get("Accept")
		writeMany(w, nil, nil)
	})

	session := loggedIn(t, portal, Options{})
	_, err := session.Get(context.Background(), "systems/systems", Request{})
	require.NoError(t, err)

	require.Equal(t, "anti-forge-1", gotKey)
	require.Equal(t, "application/vnd.api+json", gotAccept)
}

func TestQueryValidation(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	session := loggedIn(t, portal, Options{})
	ctx := context.Background()

	_, err := session.Get(ctx, "systems/systems", Request{Query: []string{"odd"}})
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = session.Get(ctx, "systems/systems", Request{Query: []string{"", "value"}})
	require.ErrorIs(t, err, ErrInvalidQuery)

	require.Equal(t, 0, portal.hitCount("/web/api/systems/systems"))
}

const mfaSettingsPath = "/web/api/engines/twoFactorAuthentication/twoFactorAuthentications/ident-1"
const mfaVerifyPath = "/web/api/engines/twoFactorAuthentication/twoFactorAuthentications/ident-1/verifyTwoFactorCode"

func serveMfaEndpoints(portal *fakePortal, code string, verified *atomic.Bool) {
	portal.handle(mfaSettingsPath, func(w http.ResponseWriter, r *http.Request) {
		writeOne(w, &jsondoc.Document{
			ID:    "ident-1",
			Type:  "twoFactorAuthentication",
			Attrs: map[string]any{"twoFactorType": 1},
		}, nil)
	})
	portal.handle(mfaVerifyPath, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["code"] == code && body["typeOf2FA"] == float64(1) {
			verified.Store(true)
			writeOne(w, nil, nil)
			return
		}
		http.Error(w, "bad code", http.StatusForbidden)
	})
}

func TestMfaChallengeRetry(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	code, err := random.String(8)
	require.NoError(t, err)

	var verified atomic.Bool
	serveMfaEndpoints(portal, code, &verified)

	var challenged atomic.Bool
	portal.handle("/web/api/systems/systems", func(w http.ResponseWriter, r *http.Request) {
		if challenged.CompareAndSwap(false, true) {
			w.Header().Set("Content-Type", "application/vnd.api+json")
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"errors":[{"status":"409","detail":"TwoFactorAuthenticationRequired","code":409}]}`))
			return
		}
		writeMany(w, []*jsondoc.Document{{ID: "sys-1", Type: "systems/system"}}, nil)
	})

	notifications := 0
	session := loggedIn(t, portal, Options{
		OnMfaRequired: func(s *Session) {
			notifications++
			require.True(t, s.MfaPending())
			require.NoError(t, s.VerifyTwoFactor(context.Background(), code))
		},
	})

	systems, err := session.GetSystems(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, systems, 1)

	require.Equal(t, 1, notifications)
	require.True(t, verified.Load())
	require.False(t, session.MfaPending())
	// the challenged attempt plus the successful retry
	require.Equal(t, 2, portal.hitCount("/web/api/systems/systems"))
}

func TestMfaIncomplete(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	portal.handle("/web/api/systems/systems", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"errors":[{"status":"409","detail":"TwoFactorAuthenticationRequired","code":409}]}`))
	})

	session := loggedIn(t, portal, Options{})
	ctx := context.Background()

	_, err := session.GetSystems(ctx, nil)
	require.ErrorIs(t, err, ErrMfaIncomplete)
	require.True(t, session.MfaPending())

	// every other call is now gated without touching the network
	_, err = session.Get(ctx, "dealers/dealers", Request{})
	require.ErrorIs(t, err, ErrMfaRequired)
	require.Equal(t, 0, portal.hitCount("/web/api/dealers/dealers"))

	// exempt calls still pass the gate
	_, err = session.Identities(ctx)
	require.NoError(t, err)
}

func TestPlain409IsNotAChallenge(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	portal.handle("/web/api/systems/systems", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"errors":[{"status":"409","detail":"EditConflict","code":409}]}`))
	})

	session := loggedIn(t, portal, Options{})
	_, err := session.GetSystems(context.Background(), nil)
	require.ErrorIs(t, err, ErrRequestFailed)
	require.False(t, session.MfaPending())
}

func TestKeepAlive(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	session := loggedIn(t, portal, Options{})
	require.NoError(t, session.KeepAlive(context.Background()))

	queries := portal.recordedQueries("/web/KeepAlive.aspx")
	require.Len(t, queries, 1)
	require.NotEmpty(t, queries[0].Get("timestamp"))
}

func TestKeepAliveRequiresLogin(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	session := newTestSession(t, portal, Options{})
	err := session.KeepAlive(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Equal(t, 0, portal.hitCount("/web/KeepAlive.aspx"))
}

func TestKeepAliveUnexpectedAck(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()
	portal.handle("/web/KeepAlive.aspx", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"Session Expired"}`))
	})

	session := loggedIn(t, portal, Options{})
	err := session.KeepAlive(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Session Expired")
}

func TestKeepAliveLoop(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on the keep-alive ticker")
	}
	portal, cleanup := setup(t)
	defer cleanup()

	session := loggedIn(t, portal, Options{
		KeepAlive:     true,
		IdleThreshold: time.Millisecond,
	})

	require.Eventually(t, func() bool {
		return portal.hitCount("/web/KeepAlive.aspx") >= 1
	}, 5*time.Second, 50*time.Millisecond)

	// Close stops the loop and waits for it
	session.Close()
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(Credentials{Username: " ", Password: "x"}, Options{})
	require.Error(t, err)

	_, err = NewSession(Credentials{Username: "x", Password: ""}, Options{})
	require.Error(t, err)
}

func TestApiPathShape(t *testing.T) {
	portal, cleanup := setup(t)
	defer cleanup()

	var gotPath, gotQuery string
	portal.handle("/web/api/users/users/u 1", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		writeOne(w, nil, nil)
	})

	session := loggedIn(t, portal, Options{})
	_, err := session.Get(context.Background(), "users/users", Request{
		ID:    "u 1",
		Query: []string{"ids[]", "a", "ids[]", "b"},
	})
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(gotPath, "/web/api/users/users/u%201"), gotPath)
	require.Equal(t, "ids%5B%5D=a&ids%5B%5D=b", gotQuery)
}
