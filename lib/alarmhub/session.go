// Package alarmhub implements a stateful client for the alarm monitoring
// portal: an authenticated web session (login form scrape, cookie identity,
// second-factor challenges, keep-alive) and a typed entity layer over the
// portal's generic resource documents.
package alarmhub

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"alarmbridge/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("alarmhub")

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:92.0) Gecko/20100101 Firefox/92.0"

	loggedInCookie    = "adc_e_loggedInAsSubscriber"
	antiForgeryCookie = "afg"
	mfaIDCookie       = "twoFactorAuthenticationId"

	defaultBaseURL       = "https://www.alarm.com"
	defaultIdleThreshold = 30 * time.Second
)

// Credentials identify the portal account.
type Credentials struct {
	Username string
	Password string
}

// Options tune session construction. The zero value targets the production
// portal with the default idle threshold and no automatic keep-alive.
type Options struct {
	// BaseURL overrides the portal origin, e.g. for a test server.
	BaseURL string
	// KeepAlive starts the background keep-alive loop after a successful
	// login.
	KeepAlive bool
	// IdleThreshold is how long the session may sit idle before the
	// keep-alive loop issues a request. Default 30s.
	IdleThreshold time.Duration
	// OnMfaRequired is invoked when the portal demands a second factor
	// mid-call. If the handler completes the challenge (VerifyTwoFactor)
	// before returning, the interrupted call is retried once.
	OnMfaRequired func(*Session)
}

// Session is a single authenticated portal session. One foreground caller
// plus the keep-alive goroutine may use it concurrently; structural
// mutation of the selected-context state from multiple foreground
// goroutines is the caller's responsibility to serialize.
type Session struct {
	http  *resty.Client
	base  *url.URL
	creds Credentials

	keepAliveOnLogin bool
	idleThreshold    time.Duration
	onMfaRequired    func(*Session)

	mu               sync.Mutex
	state            map[string]string
	lastActivity     time.Time
	identity         string
	mfaPending       bool
	authAppSupported *bool

	stopKeepAlive context.CancelFunc
	keepAliveDone chan struct{}
	closeOnce     sync.Once
}

// NewSession builds a session for the given account. It performs no network
// I/O; call Login to authenticate.
func NewSession(creds Credentials, opts Options) (*Session, error) {
	if strings.TrimSpace(creds.Username) == "" {
		return nil, fmt.Errorf("username cannot be blank")
	}
	if strings.TrimSpace(creds.Password) == "" {
		return nil, fmt.Errorf("password cannot be blank")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	client.SetTimeout(time.Second * 30)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "alarmhub/http")

	idle := opts.IdleThreshold
	if idle <= 0 {
		idle = defaultIdleThreshold
	}

	return &Session{
		http:             client,
		base:             base,
		creds:            creds,
		keepAliveOnLogin: opts.KeepAlive,
		idleThreshold:    idle,
		onMfaRequired:    opts.OnMfaRequired,
		state:            map[string]string{},
	}, nil
}

// Username returns the account name the session was built for.
func (s *Session) Username() string { return s.creds.Username }

// Identity returns the id of the resolved identity record, "" before login.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) setIdentity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
}

// cookieValue reads a session cookie from the jar. The jar drops expired
// cookies on its own, so a returned value is always live.
func (s *Session) cookieValue(name string) string {
	for _, c := range s.http.GetClient().Jar.Cookies(s.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// IsLoggedIn reports session liveness. It is derived from the identity
// cookie alone: present, unexpired and equal to "1". There is no separate
// flag that could fall out of sync with the cookie jar.
func (s *Session) IsLoggedIn() bool {
	return s.cookieValue(loggedInCookie) == "1"
}

// State reads a session state value, "" when unset.
func (s *Session) State(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[name]
}

// SetState stores a session state value.
func (s *Session) SetState(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[name] = value
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

func (s *Session) sinceActivity() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// Close stops the keep-alive loop, waits for it to exit and releases the
// transport. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		stop, done := s.stopKeepAlive, s.keepAliveDone
		s.mu.Unlock()
		if stop != nil {
			stop()
			<-done
		}
		s.http.GetClient().CloseIdleConnections()
	})
}
