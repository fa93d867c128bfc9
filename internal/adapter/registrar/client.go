// internal/adapter/registrar/client.go
package registrar

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	xerrors "qg-chatting-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// RecordTTL is fixed at 60 seconds so a corrective re-point converges quickly.
const RecordTTL = 60

type Config struct {
	BaseURL string
	KeyID   string
	Secret  string
	Timeout time.Duration
}

// Client signs and sends requests to the DNS provider's API. Pure I/O, no
// business logic.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger

	now func() time.Time
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

type cnameRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Target string `json:"content"`
	TTL    int    `json:"ttl"`
}

// ListCNAMERecords returns the ids of CNAME records for a sub label in a zone.
func (c *Client) ListCNAMERecords(ctx context.Context, zone, label string) ([]string, error) {
	path := fmt.Sprintf("/zones/%s/records?type=CNAME&name=%s", zone, label)
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var records []cnameRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to decode record list: %w", err)
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// EnsureCNAME creates or repairs the CNAME record for label so it targets
// exactly the given value. The target is normalized to a fully-qualified name
// with a trailing dot and the TTL is forced to RecordTTL.
func (c *Client) EnsureCNAME(ctx context.Context, zone, label, target string) error {
	fq := NormalizeTarget(target)

	ids, err := c.ListCNAMERecords(ctx, zone, label)
	if err != nil {
		return err
	}

	rec := cnameRecord{Name: label, Type: "CNAME", Target: fq, TTL: RecordTTL}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if len(ids) == 0 {
		_, err = c.do(ctx, http.MethodPost, fmt.Sprintf("/zones/%s/records", zone), payload)
		return err
	}

	// Repair the first record, drop any stray duplicates.
	if _, err = c.do(ctx, http.MethodPut, fmt.Sprintf("/zones/%s/records/%s", zone, ids[0]), payload); err != nil {
		return err
	}
	for _, extra := range ids[1:] {
		if _, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/zones/%s/records/%s", zone, extra), nil); err != nil {
			c.logger.Warn("failed to delete duplicate CNAME record",
				zap.String("zone", zone),
				zap.String("label", label),
				zap.String("record_id", extra),
				zap.Error(err),
			)
		}
	}
	return nil
}

// RefreshZone asks the provider to publish pending zone changes.
func (c *Client) RefreshZone(ctx context.Context, zone string) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/zones/%s/refresh", zone), nil)
	return err
}

// NormalizeTarget appends the trailing dot a fully-qualified CNAME target needs.
func NormalizeTarget(target string) string {
	target = strings.TrimSpace(strings.ToLower(target))
	if target == "" {
		return target
	}
	if !strings.HasSuffix(target, ".") {
		target += "."
	}
	return target
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build registrar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, payload)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("registrar %s %s: %w", method, path, xerrors.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("registrar %s %s: %w: %v", method, path, xerrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read registrar response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("registrar %s %s returned %d: %w", method, path, resp.StatusCode, xerrors.ErrUpstream)
	}
	return body, nil
}

// sign adds the provider's HMAC request signature: hex(HMAC-SHA256(secret,
// timestamp + method + path + body)) with the key id and timestamp alongside.
func (c *Client) sign(req *http.Request, payload []byte) {
	ts := strconv.FormatInt(c.now().Unix(), 10)

	mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(req.Method))
	mac.Write([]byte(req.URL.RequestURI()))
	mac.Write(payload)

	req.Header.Set("X-Auth-Key", c.cfg.KeyID)
	req.Header.Set("X-Auth-Timestamp", ts)
	req.Header.Set("X-Auth-Signature", hex.EncodeToString(mac.Sum(nil)))
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	var t timeout
	return errors.As(err, &t) && t.Timeout()
}
