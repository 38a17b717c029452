package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const defaultRefreshInterval = 50 * time.Minute

// Credential is a short-lived bearer token for store writes.
type Credential struct {
	Token      string
	UserID     string
	ObtainedAt time.Time
	ExpiresAt  time.Time
}

// Manager owns the shared credential slot. One background goroutine refreshes
// it on a fixed interval; request handlers only read it via Current.
type Manager struct {
	signURL  string
	apiKey   string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger

	mu      sync.RWMutex
	current *Credential
}

// NewManager builds the manager. An empty apiKey disables issuance entirely:
// Current returns nil and writes go out unauthenticated.
func NewManager(signURL, apiKey string, interval time.Duration, logger *zap.Logger) *Manager {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Manager{
		signURL:  signURL,
		apiKey:   apiKey,
		interval: interval,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Enabled reports whether an issuance key is configured.
func (m *Manager) Enabled() bool {
	return m.apiKey != ""
}

// Current returns the latest known credential, or nil when none has been
// obtained. It never blocks on issuance.
func (m *Manager) Current() *Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

type signUpResponse struct {
	IDToken   string `json:"idToken"`
	LocalID   string `json:"localId"`
	ExpiresIn string `json:"expiresIn"`
}

// Refresh obtains a new credential and replaces the slot. A failed issuance
// call is non-fatal: the error is logged and the prior credential, if any,
// stays in place.
func (m *Manager) Refresh(ctx context.Context) (*Credential, error) {
	if !m.Enabled() {
		return nil, nil
	}

	cred, err := m.issue(ctx)
	if err != nil {
		m.logger.Warn("credential refresh failed, continuing with previous token", zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	m.current = cred
	m.mu.Unlock()

	m.logger.Info("credential refreshed",
		zap.String("user_id", cred.UserID),
		zap.Time("expires_at", cred.ExpiresAt))
	return cred, nil
}

// Run performs an initial refresh and then re-issues on the configured
// interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	if !m.Enabled() {
		m.logger.Warn("issuance key not set, store writes will rely on store-side rules")
		return
	}

	_, _ = m.Refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = m.Refresh(ctx)
		}
	}
}

func (m *Manager) issue(ctx context.Context) (*Credential, error) {
	body, err := json.Marshal(map[string]bool{"returnSecureToken": true})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?key=%s", m.signURL, m.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("issuance returned status %d: %s", resp.StatusCode, detail)
	}

	var payload signUpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.IDToken == "" {
		return nil, errors.New("issuance response missing idToken")
	}

	now := time.Now().UTC()
	return &Credential{
		Token:      payload.IDToken,
		UserID:     payload.LocalID,
		ObtainedAt: now,
		ExpiresAt:  expiryOf(payload, now),
	}, nil
}

// expiryOf prefers the exp claim inside the issued token; the token is opaque
// to us otherwise, so no signature verification is done. The expiresIn field
// of the issuance response is the fallback.
func expiryOf(payload signUpResponse, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(payload.IDToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if seconds, err := strconv.Atoi(payload.ExpiresIn); err == nil && seconds > 0 {
		return now.Add(time.Duration(seconds) * time.Second)
	}
	return now.Add(time.Hour)
}
