package alarmhub

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"alarmbridge/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// Login authenticates the session against the portal's web login flow. It
// is idempotent: an already live session succeeds immediately. On success
// the caller's unique identity record is resolved and, when the session was
// built with Options.KeepAlive, the keep-alive loop starts.
func (s *Session) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	if s.IsLoggedIn() {
		slog.InfoContext(ctx, "already logged in", "user", s.creds.Username)
		return nil
	}

	fields, err := s.scrapeLoginForm(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	fields["IsFromNewSite"] = "1"
	fields["JavaScriptTest"] = "1"

	res, err := s.http.R().
		SetContext(ctx).
		SetMultipartFormData(fields).
		Post("/web/Default.aspx")
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit login form")
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "login form submit rejected")
		return fmt.Errorf("%w: status %d", ErrRequestFailed, res.StatusCode())
	}

	if !s.IsLoggedIn() {
		if msg := loginErrorText(res.Body()); msg != "" {
			slog.ErrorContext(ctx, "portal rejected login", "user", s.creds.Username, "reason", msg)
		}
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return ErrLoginFailed
	}
	s.touch()
	slog.InfoContext(ctx, "logged in", "user", s.creds.Username)

	ids, err := s.Identities(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to resolve identity")
		return err
	}
	switch {
	case len(ids) < 1:
		span.SetStatus(codes.Error, ErrNoIdentity.Error())
		return ErrNoIdentity
	case len(ids) > 1:
		// the protocol does not support multi-identity accounts
		span.SetStatus(codes.Error, ErrAmbiguousIdentity.Error())
		return ErrAmbiguousIdentity
	}
	s.setIdentity(ids[0].ID)
	slog.InfoContext(ctx, "resolved identity", "user", s.creds.Username, "identity", ids[0].ID)

	if s.keepAliveOnLogin {
		s.startKeepAlive()
	}
	return nil
}

// scrapeLoginForm fetches the login page and harvests the form fields to
// submit: exactly one username input matched by name suffix, exactly one
// password-typed input matched by name suffix, plus every hidden field the
// web framework marks with a "__" name prefix.
func (s *Session) scrapeLoginForm(ctx context.Context) (map[string]string, error) {
	res, err := s.http.R().
		SetContext(ctx).
		Get("/login.aspx")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	form := doc.Find("form").First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("%w: no login form", ErrLoginFormShape)
	}

	fields := map[string]string{}
	setUser := false
	setPass := false
	var formErr error
	form.Find("input").EachWithBreak(func(_ int, input *goquery.Selection) bool {
		name := input.AttrOr("name", "")
		lower := strings.ToLower(name)
		switch {
		case strings.HasSuffix(lower, "username"):
			if setUser {
				formErr = fmt.Errorf("%w: multiple username field candidates", ErrLoginFormShape)
				return false
			}
			fields[name] = s.creds.Username
			setUser = true
		case strings.HasSuffix(lower, "password") && input.AttrOr("type", "") == "password":
			if setPass {
				formErr = fmt.Errorf("%w: multiple password field candidates", ErrLoginFormShape)
				return false
			}
			fields[name] = s.creds.Password
			setPass = true
		case strings.HasPrefix(name, "__"):
			fields[name] = input.AttrOr("value", "")
		}
		return true
	})
	if formErr != nil {
		return nil, formErr
	}
	if !setUser {
		return nil, fmt.Errorf("%w: no username field", ErrLoginFormShape)
	}
	if !setPass {
		return nil, fmt.Errorf("%w: no password field", ErrLoginFormShape)
	}
	return fields, nil
}

// loginErrorText pulls a human readable rejection message out of the page
// returned by a failed login, "" when none could be found.
func loginErrorText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	sel := doc.Find(".error, .validation-summary, #ErrorMessage").First()
	if sel.Length() == 0 {
		return ""
	}
	if len(sel.Nodes) > 0 {
		return htmlutil.NormalizeText(htmlutil.GetText(sel.Nodes[0]))
	}
	return ""
}
