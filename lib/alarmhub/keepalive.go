package alarmhub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const keepAliveAck = "Keep Alive"

// startKeepAlive launches the background loop that keeps an idle session
// from expiring. The loop is owned by the session lifecycle: Close cancels
// it and waits for it to exit.
func (s *Session) startKeepAlive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopKeepAlive != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopKeepAlive = cancel
	s.keepAliveDone = make(chan struct{})
	go s.keepAliveLoop(ctx, s.keepAliveDone)
}

// keepAliveLoop ticks every second so cancellation is observed promptly,
// and only issues a request once the idle threshold has elapsed. A failed
// keep-alive is logged but not fatal.
func (s *Session) keepAliveLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !s.IsLoggedIn() {
			return
		}
		if s.sinceActivity() < s.idleThreshold {
			continue
		}
		slog.DebugContext(ctx, "performing keep-alive", "idle", s.sinceActivity())
		if err := s.KeepAlive(ctx); err != nil {
			slog.WarnContext(ctx, "failed to automatically keep-alive", "err", err)
		}
	}
}

// KeepAlive issues a single keep-alive request. An acknowledgement text
// other than the expected literal is reported as an error; callers treat it
// as non-fatal.
func (s *Session) KeepAlive(ctx context.Context) error {
	if !s.IsLoggedIn() {
		return ErrNotAuthenticated
	}

	res, err := s.http.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/web/KeepAlive.aspx?timestamp=%d", time.Now().UnixMilli()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if res.IsError() {
		return fmt.Errorf("%w: status %d", ErrRequestFailed, res.StatusCode())
	}

	var ack struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(res.Body(), &ack); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if ack.Status != keepAliveAck {
		return fmt.Errorf("unexpected keep-alive status %q", ack.Status)
	}

	s.touch()
	return nil
}
