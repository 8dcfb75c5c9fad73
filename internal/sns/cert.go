package sns

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/ignite/suppression-hub/internal/pkg/httpretry"
)

// DefaultCertHostPattern matches the hosts SNS serves signing certificates
// from (sns.<region>.amazonaws.com).
const DefaultCertHostPattern = `^sns\.[a-z0-9\-]+\.amazonaws\.com$`

// certFetchLimit bounds the certificate body read. SNS certs are ~2KB.
const certFetchLimit = 64 * 1024

// CertFetcher retrieves and caches SNS signing certificates. The cache is
// read-mostly and safe for concurrent use; each distinct URL costs at most
// one outbound fetch (plus refetches after transient failures).
type CertFetcher struct {
	client      httpretry.HTTPDoer
	hostPattern *regexp.Regexp
	timeout     time.Duration

	mu    sync.RWMutex
	cache map[string]*x509.Certificate
}

// NewCertFetcher creates a fetcher that trusts certificate URLs matching
// hostPattern. A nil client gets a default retrying client; an empty pattern
// gets DefaultCertHostPattern.
func NewCertFetcher(client httpretry.HTTPDoer, hostPattern string, timeout time.Duration) (*CertFetcher, error) {
	if hostPattern == "" {
		hostPattern = DefaultCertHostPattern
	}
	re, err := regexp.Compile(hostPattern)
	if err != nil {
		return nil, fmt.Errorf("compile cert host pattern: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if client == nil {
		client = httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 0)
	}
	return &CertFetcher{
		client:      client,
		hostPattern: re,
		timeout:     timeout,
		cache:       make(map[string]*x509.Certificate),
	}, nil
}

// Fetch returns the parsed certificate at certURL. The URL must be https on
// a trusted SNS host (ErrUntrustedCertURL otherwise). Network failures and
// malformed PEM report ErrCertFetch.
func (f *CertFetcher) Fetch(ctx context.Context, certURL string) (*x509.Certificate, error) {
	u, err := url.Parse(certURL)
	if err != nil || u.Scheme != "https" || !f.hostPattern.MatchString(u.Hostname()) {
		return nil, fmt.Errorf("%w: %q", ErrUntrustedCertURL, hostOnly(u, err))
	}

	f.mu.RLock()
	cert, ok := f.cache[certURL]
	f.mu.RUnlock()
	if ok {
		return cert, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertFetch, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrCertFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, certFetchLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertFetch, err)
	}

	cert, err = parsePEMCertificate(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertFetch, err)
	}

	f.mu.Lock()
	f.cache[certURL] = cert
	f.mu.Unlock()
	return cert, nil
}

func parsePEMCertificate(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no certificate PEM block found")
	}
	return x509.ParseCertificate(block.Bytes)
}

func hostOnly(u *url.URL, err error) string {
	if err != nil || u == nil {
		return "unparseable"
	}
	return u.Hostname()
}
