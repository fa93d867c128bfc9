// internal/adapter/edgehost/client.go
package edgehost

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

	"go.uber.org/zap"
)

type Config struct {
	BaseURL   string
	ProjectID string
	Token     string
	Timeout   time.Duration
}

// Client registers custom domains on the hosting platform's project and looks
// up the canonical CNAME target to point them at.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type domainResponse struct {
	Name        string `json:"name"`
	ProjectID   string `json:"projectId"`
	CNAMETarget string `json:"cnameTarget"`
	Verified    bool   `json:"verified"`
}

// EnsureDomain registers fqdn under the configured project and returns the
// CNAME target to point at. A domain that already exists under this same
// project is success, not failure; a domain held by another project is a
// conflict. Project scoping via the access token decides ownership, never the
// subdomain string.
func (c *Client) EnsureDomain(ctx context.Context, fqdn string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"name": fqdn})

	status, body, err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/projects/%s/domains", c.cfg.ProjectID), payload)
	if err != nil {
		return "", err
	}

	switch {
	case status < 300:
		var d domainResponse
		if err := json.Unmarshal(body, &d); err != nil {
			return "", fmt.Errorf("failed to decode domain response: %w", err)
		}
		return d.CNAMETarget, nil

	case status == http.StatusConflict:
		// Already registered somewhere. If a lookup under our own project
		// succeeds the registration is ours and this call is idempotent.
		d, err := c.getDomain(ctx, fqdn)
		if err != nil {
			return "", fmt.Errorf("domain %s is held by another project: %w", fqdn, xerrors.ErrConflict)
		}
		c.logger.Info("edge host domain already registered under this project",
			zap.String("fqdn", fqdn))
		return d.CNAMETarget, nil

	default:
		return "", fmt.Errorf("edge host returned %d for %s: %w", status, fqdn, xerrors.ErrUpstream)
	}
}

// DomainExists reports whether fqdn is registered under this project.
func (c *Client) DomainExists(ctx context.Context, fqdn string) (bool, error) {
	_, err := c.getDomain(ctx, fqdn)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) getDomain(ctx context.Context, fqdn string) (*domainResponse, error) {
	status, body, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/v1/projects/%s/domains/%s", c.cfg.ProjectID, fqdn), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, xerrors.ErrNotFound
	}
	if status >= 400 {
		return nil, fmt.Errorf("edge host returned %d: %w", status, xerrors.ErrUpstream)
	}

	var d domainResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to decode domain response: %w", err)
	}
	return &d, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build edge host request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, fmt.Errorf("edge host %s %s: %w", method, path, xerrors.ErrUpstreamTimeout)
		}
		return 0, nil, fmt.Errorf("edge host %s %s: %w: %v", method, path, xerrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read edge host response: %w", err)
	}
	return resp.StatusCode, body, nil
}
