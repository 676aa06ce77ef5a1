package alarmhub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/codes"
)

// Request carries the optional pieces of an API call. Endpoint URLs are
// assembled as /web/api/{endpoint}[/{id}][/{command}][?k1=v1&k2=v2...].
type Request struct {
	ID      string
	Command string
	// Query must have even length: key, value, key, value... Keys cannot
	// be blank. Repeated keys are allowed (ids[]).
	Query []string
	// SkipLoginGate lets the call through while the session is logged out.
	SkipLoginGate bool
	// SkipMfaGate lets the call through while a second-factor challenge is
	// pending.
	SkipMfaGate bool
}

func (s *Session) apiPath(endpoint string, req Request) (string, error) {
	var b strings.Builder
	b.WriteString("/web/api/")
	b.WriteString(endpoint)
	if req.ID != "" {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(req.ID))
	}
	if req.Command != "" {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(req.Command))
	}
	if len(req.Query) > 0 {
		if len(req.Query)%2 != 0 {
			return "", fmt.Errorf("%w: odd number of entries", ErrInvalidQuery)
		}
		sep := byte('?')
		for i := 0; i < len(req.Query); i += 2 {
			k, v := req.Query[i], req.Query[i+1]
			if k == "" {
				return "", fmt.Errorf("%w: blank key", ErrInvalidQuery)
			}
			b.WriteByte(sep)
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
			sep = '&'
		}
	}
	return b.String(), nil
}

// Get issues an authenticated GET against an API endpoint and returns the
// raw response body.
func (s *Session) Get(ctx context.Context, endpoint string, req Request) ([]byte, error) {
	return s.roundTrip(ctx, http.MethodGet, endpoint, nil, req)
}

// Post issues an authenticated POST against an API endpoint. A non-nil body
// is encoded as JSON.
func (s *Session) Post(ctx context.Context, endpoint string, body any, req Request) ([]byte, error) {
	return s.roundTrip(ctx, http.MethodPost, endpoint, body, req)
}

// roundTrip applies the session gates, sends the request and runs the
// bounded MFA retry: when the portal signals the second-factor envelope the
// pending flag is set and the OnMfaRequired handler fires; if the handler
// cleared the flag before returning, the original request is attempted once
// more. A second signal gives up.
func (s *Session) roundTrip(ctx context.Context, method, endpoint string, body any, req Request) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "api:"+endpoint)
	defer span.End()

	path, err := s.apiPath(endpoint, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		if !req.SkipLoginGate && !s.IsLoggedIn() {
			slog.ErrorContext(ctx, "not logged in", "endpoint", endpoint)
			span.SetStatus(codes.Error, ErrNotAuthenticated.Error())
			return nil, ErrNotAuthenticated
		}
		if !req.SkipMfaGate && s.MfaPending() {
			slog.ErrorContext(ctx, "mfa required", "endpoint", endpoint)
			span.SetStatus(codes.Error, ErrMfaRequired.Error())
			return nil, ErrMfaRequired
		}

		out, err := s.send(ctx, method, path, body)
		if err == nil {
			return out, nil
		}
		if err != errMfaSignal {
			slog.ErrorContext(ctx, "request failed", "method", method, "path", path, "err", err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		slog.WarnContext(ctx, "portal demanded a second factor", "path", path)
		s.setMfaPending(true)
		if s.onMfaRequired != nil {
			s.onMfaRequired(s)
		}
		if s.MfaPending() {
			// the handler had its chance to complete the challenge
			// synchronously and did not
			span.SetStatus(codes.Error, ErrMfaIncomplete.Error())
			return nil, ErrMfaIncomplete
		}
	}

	span.SetStatus(codes.Error, ErrMfaIncomplete.Error())
	return nil, ErrMfaIncomplete
}

func (s *Session) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	r := s.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.api+json")
	if key := s.cookieValue(antiForgeryCookie); key != "" {
		r.SetHeader("AjaxRequestUniqueKey", key)
	}
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	slog.DebugContext(ctx, "api request", "method", method, "path", path)
	res, err := r.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if res.StatusCode() == http.StatusConflict && isMfaEnvelope(res.Body()) {
		return nil, errMfaSignal
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, res.StatusCode())
	}

	s.touch()
	return res.Body(), nil
}

type errorEnvelope struct {
	Errors []struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
		Code   int    `json:"code"`
	} `json:"errors"`
}

// isMfaEnvelope reports whether a 409 body is the machine-readable
// second-factor error. Bodies that do not parse are simply not the
// envelope.
func isMfaEnvelope(body []byte) bool {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	for _, e := range env.Errors {
		if e.Code == http.StatusConflict && e.Detail == "TwoFactorAuthenticationRequired" {
			return true
		}
	}
	return false
}
