package alarmhub

import (
	"context"
	"fmt"
	"log/slog"
)

const mfaEndpoint = "engines/twoFactorAuthentication/twoFactorAuthentications"

// authenticator app factor id on the portal
const mfaTypeAuthApp = 1

// MfaPending reports whether a second-factor challenge must be satisfied
// before non-exempt calls proceed.
func (s *Session) MfaPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mfaPending
}

func (s *Session) setMfaPending(pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mfaPending = pending
}

// AuthenticatorAppSupported reports whether the current identity is
// configured for an authenticator app. The answer is cached per session.
func (s *Session) AuthenticatorAppSupported(ctx context.Context) bool {
	s.mu.Lock()
	cached := s.authAppSupported
	s.mu.Unlock()
	if cached != nil {
		return *cached
	}

	supported := false
	doc, _, err := s.fetchOne(ctx, mfaEndpoint, Request{ID: s.Identity(), SkipMfaGate: true})
	if err != nil {
		slog.WarnContext(ctx, "failed to read two-factor settings", "err", err)
	} else if doc != nil {
		supported = doc.Int("twoFactorType") == mfaTypeAuthApp
	}

	s.mu.Lock()
	s.authAppSupported = &supported
	s.mu.Unlock()
	return supported
}

// VerifyTwoFactor submits an authenticator app code against the MFA
// endpoint. The pending flag is cleared on success only.
func (s *Session) VerifyTwoFactor(ctx context.Context, code string) error {
	if !s.AuthenticatorAppSupported(ctx) {
		return fmt.Errorf("authenticator app is not supported for this identity")
	}

	body := map[string]any{
		"code":      code,
		"typeOf2FA": mfaTypeAuthApp,
	}
	_, err := s.Post(ctx, mfaEndpoint, body, Request{
		ID:          s.Identity(),
		Command:     "verifyTwoFactorCode",
		SkipMfaGate: true,
	})
	if err != nil {
		return err
	}

	s.setMfaPending(false)
	return nil
}
