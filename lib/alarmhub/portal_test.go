package alarmhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"alarmbridge/lib/jsondoc"
	"alarmbridge/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const defaultLoginForm = `<html><body>
<form id="loginform" method="post" action="/web/Default.aspx">
<input type="hidden" name="__VIEWSTATE" value="vs-123" />
<input type="hidden" name="__EVENTVALIDATION" value="ev-456" />
<input type="text" name="ctl00$ContentPlaceHolder1$loginform$txtUserName" />
<input type="password" name="ctl00$ContentPlaceHolder1$loginform$txtPassword" />
<input type="submit" name="ctl00$ContentPlaceHolder1$loginform$signInButton" value="Sign In" />
</form></body></html>`

const rejectedLoginPage = `<html><body>
<div class="error">Invalid login credentials</div>
</body></html>`

// fakePortal impersonates the alarm portal for tests: the login flow, the
// identity endpoint and whatever API endpoints a test registers. Every
// request is counted per path and its query recorded.
type fakePortal struct {
	t   testing.TB
	srv *httptest.Server

	rejectLogin bool
	loginForm   string

	mu        sync.Mutex
	handlers  map[string]http.HandlerFunc
	hits      map[string]int
	queries   map[string][]url.Values
	submitted url.Values
}

func newPortal(t testing.TB) *fakePortal {
	p := &fakePortal{
		t:         t,
		loginForm: defaultLoginForm,
		handlers:  map[string]http.HandlerFunc{},
		hits:      map[string]int{},
		queries:   map[string][]url.Values{},
	}
	p.srv = httptest.NewServer(p)
	t.Cleanup(p.srv.Close)
	return p
}

// handle registers a test-specific handler for an exact path, shadowing the
// built-in defaults.
func (p *fakePortal) handle(path string, fn http.HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[path] = fn
}

func (p *fakePortal) hitCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

func (p *fakePortal) recordedQueries(path string) []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.queries[path]...)
}

func (p *fakePortal) submittedLogin() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitted
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.hits[r.URL.Path]++
	p.queries[r.URL.Path] = append(p.queries[r.URL.Path], r.URL.Query())
	custom := p.handlers[r.URL.Path]
	p.mu.Unlock()

	if custom != nil {
		custom(w, r)
		return
	}

	switch r.URL.Path {
	case "/login.aspx":
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(p.loginForm))
	case "/web/Default.aspx":
		p.serveLogin(w, r)
	case "/web/api/identities":
		writeMany(w, []*jsondoc.Document{identityDoc("ident-1")}, nil)
	case "/web/KeepAlive.aspx":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"Keep Alive"}`))
	default:
		http.NotFound(w, r)
	}
}

func (p *fakePortal) serveLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	p.submitted = url.Values(r.MultipartForm.Value)
	p.mu.Unlock()

	if p.rejectLogin {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(rejectedLoginPage))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "adc_e_loggedInAsSubscriber", Value: "1", Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "afg", Value: "anti-forge-1", Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "twoFactorAuthenticationId", Value: "tfa-1", Path: "/"})
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(`<html><body>Welcome</body></html>`))
}

func identityDoc(id string) *jsondoc.Document {
	return &jsondoc.Document{
		ID:    id,
		Type:  "identity",
		Attrs: map[string]any{"accountType": 1},
		Rels: map[string]jsondoc.RefList{
			"dealer":         {{ID: "dealer-1", Type: "dealers/dealer"}},
			"selectedSystem": {{ID: "sys-1", Type: "systems/system"}},
		},
	}
}

func sensorDoc(id string) *jsondoc.Document {
	return &jsondoc.Document{
		ID:    id,
		Type:  "devices/sensor",
		Attrs: map[string]any{"description": "Sensor " + id, "hasState": true},
	}
}

func writeOne(w http.ResponseWriter, doc *jsondoc.Document, meta jsondoc.Meta) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	json.NewEncoder(w).Encode(jsondoc.One{Data: doc, Meta: meta})
}

func writeMany(w http.ResponseWriter, docs []*jsondoc.Document, meta jsondoc.Meta) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	if docs == nil {
		docs = []*jsondoc.Document{}
	}
	json.NewEncoder(w).Encode(jsondoc.Many{Data: docs, Meta: meta})
}

func setup(t testing.TB) (*fakePortal, func()) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/alarmhub")
	return newPortal(t), cleanup
}

func newTestSession(t testing.TB, p *fakePortal, opts Options) *Session {
	opts.BaseURL = p.srv.URL
	s, err := NewSession(Credentials{
		Username: "user@example.com",
		Password: "hunter2",
	}, opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func loggedIn(t testing.TB, p *fakePortal, opts Options) *Session {
	s := newTestSession(t, p, opts)
	require.NoError(t, s.Login(context.Background()))
	return s
}
