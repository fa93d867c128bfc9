// internal/adapter/identity/client.go
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

// ErrAlreadyRegistered is returned when inviting an email that already has an
// account; callers treat it as "use the existing user".
var ErrAlreadyRegistered = errors.New("email already registered")

// Identity is the verified principal behind a bearer token.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
}

type Config struct {
	AdminURL string
	AdminKey string
	Timeout  time.Duration
}

// Client verifies bearer tokens locally against the provider's public key and
// talks to the provider's admin API for user invitations.
type Client struct {
	cfg      Config
	verifier *jwt.Verifier
	http     *http.Client
	logger   *zap.Logger
}

func NewClient(cfg Config, verifier *jwt.Verifier, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:      cfg,
		verifier: verifier,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// VerifyToken validates a bearer access token and returns the identity.
func (c *Client) VerifyToken(_ context.Context, bearer string) (*Identity, error) {
	claims, err := c.verifier.VerifyAccessToken(bearer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthorized, err)
	}
	return &Identity{
		UserID:        claims.UserID,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

type inviteRequest struct {
	Email    string                 `json:"email"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type inviteResponse struct {
	UserID string `json:"user_id"`
}

// InviteUserByEmail creates (or invites) a user on the identity provider and
// returns the new user id. An already-registered email yields
// ErrAlreadyRegistered, with the existing user id when the provider includes
// it in the conflict body.
func (c *Client) InviteUserByEmail(ctx context.Context, email string, metadata map[string]interface{}) (string, error) {
	payload, err := json.Marshal(inviteRequest{Email: email, Metadata: metadata})
	if err != nil {
		return "", fmt.Errorf("failed to encode invite request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AdminURL+"/admin/users/invite", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build invite request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AdminKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("identity invite: %w", xerrors.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("identity invite: %w: %v", xerrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read invite response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var r inviteResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("failed to decode invite response: %w", err)
		}
		return r.UserID, nil
	case http.StatusConflict:
		var r inviteResponse
		if err := json.Unmarshal(body, &r); err == nil && r.UserID != "" {
			return r.UserID, ErrAlreadyRegistered
		}
		return "", ErrAlreadyRegistered
	default:
		return "", fmt.Errorf("identity invite returned %d: %w", resp.StatusCode, xerrors.ErrUpstream)
	}
}
