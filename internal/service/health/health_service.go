// internal/service/health/health_service.go
package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"
)

const probeTimeout = 3 * time.Second

// Check is a single probe outcome. Probes are diagnostic only and never
// gate access decisions.
type Check struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type DomainStatus struct {
	DNS   Check `json:"dns"`
	TLS   Check `json:"tls"`
	HTTP  Check `json:"http"`
	Ready bool  `json:"ready"`
}

type Service struct {
	db       *pgxpool.Pool
	resolver *net.Resolver
	http     *http.Client
	logger   *zap.Logger
}

func NewService(db *pgxpool.Pool, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		resolver: net.DefaultResolver,
		http: &http.Client{
			Timeout: probeTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// ProbeDomain checks DNS, TLS and HTTP reachability of a tenant FQDN. Each
// probe is bounded; a slow or failing probe reports not-ready, never an error.
func (s *Service) ProbeDomain(ctx context.Context, fqdn string) *DomainStatus {
	st := &DomainStatus{}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := s.resolver.LookupHost(ctx, fqdn); err != nil {
		st.DNS = Check{OK: false, Detail: "name does not resolve yet"}
		return st
	}
	st.DNS = Check{OK: true}

	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: probeTimeout}}
	conn, err := dialer.DialContext(ctx, "tcp", fqdn+":443")
	if err != nil {
		st.TLS = Check{OK: false, Detail: "certificate not ready"}
		return st
	}
	conn.Close()
	st.TLS = Check{OK: true}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+fqdn+"/", nil)
	if err != nil {
		st.HTTP = Check{OK: false, Detail: err.Error()}
		return st
	}
	resp, err := s.http.Do(req)
	if err != nil {
		st.HTTP = Check{OK: false, Detail: "host not responding"}
		return st
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		st.HTTP = Check{OK: false, Detail: fmt.Sprintf("upstream returned %d", resp.StatusCode)}
		return st
	}
	st.HTTP = Check{OK: true}
	st.Ready = true
	return st
}

// Ping reports service liveness, including database reachability.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
