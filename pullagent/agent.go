// Package pullagent implements the client side of the pull/confirm
// transfer protocol: it leases a batch of child-file descriptors from the
// Pull Service, streams each to disk with size+SHA-256 verification, and
// confirms success/failure atomically, even when every download in the
// batch failed.
package pullagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/WilsonNous/netunna-rede-splitter-v2/build"
	"github.com/WilsonNous/netunna-rede-splitter-v2/conn"
	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
	"github.com/WilsonNous/netunna-rede-splitter-v2/hash"
)

// Transfer strategies the DOWNLOAD_MODE option selects between.
const (
	// ModeLease is the default lease -> download -> confirm cycle.
	ModeLease = "lease"
	// ModeDirect pulls through /pull-batch: the server marks the batch
	// downloaded immediately and no confirm step follows, so a crashed
	// agent loses the batch rather than re-leasing it.
	ModeDirect = "direct"
	// ModeZip is recognized but not served by this agent; it maps to the
	// legacy zip-export tooling.
	ModeZip = "zip"
)

// Config enumerates the agent's recognized configuration. A zero Mode,
// LeaseTTL, PullLimit or MaxRetries selects its default (ModeLease, 900s,
// 200, 3); VerifySHA256 is used as given, so its zero value turns digest
// checking off.
type Config struct {
	BaseURL      string // SPLITTER_BASE_URL
	APIKey       string // SPLITTER_API_KEY, sent as a bearer token
	Mode         string // DOWNLOAD_MODE, default ModeLease
	LeaseTTL     time.Duration
	PullLimit    int
	VerifySHA256 bool
	OutputDir    string // AGENTE_OUTPUT_DIR ("recebidos/")
	Lotes        []string
	MaxRetries   int // bounded per-descriptor retry attempts, default 3

	// RateLimitBytesPerSec, if non-zero, throttles the HTTP client's
	// connections via conn.Throttle.
	RateLimitBytesPerSec int64
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeLease
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 900 * time.Second
	}
	if c.PullLimit <= 0 {
		c.PullLimit = 200
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Agent is a configured pull client.
type Agent struct {
	cfg    Config
	client *http.Client
}

// New builds an Agent from cfg.
func New(cfg Config) *Agent {
	cfg = cfg.withDefaults()
	client := &http.Client{Timeout: 60 * time.Second}
	if cfg.RateLimitBytesPerSec > 0 {
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				c, err := (&net.Dialer{}).DialContext(ctx, network, addr)
				if err != nil {
					return nil, err
				}
				return conn.Throttle(c, cfg.RateLimitBytesPerSec), nil
			},
		}
	}
	return &Agent{cfg: cfg, client: client}
}

// Result summarizes one Run.
type Result struct {
	LeaseID    string
	OKIDs      []string
	FailIDs    []string
	Downloaded []string // local paths of successfully verified files
}

type fileDescriptor struct {
	ID     string `json:"id"`
	PV     string `json:"pv"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	URL    string `json:"url"`
}

type leaseResponse struct {
	LeaseID string           `json:"lease_id"`
	Files   []fileDescriptor `json:"files"`
}

// Run performs one transfer cycle using the configured mode and returns
// its outcome.
func (a *Agent) Run(ctx context.Context) (Result, error) {
	switch a.cfg.Mode {
	case ModeLease:
		return a.runLease(ctx)
	case ModeDirect:
		return a.runDirect(ctx)
	default:
		return Result{}, ferr.Wrap(ferr.ProtocolError, fmt.Errorf("pullagent: unsupported download mode %q", a.cfg.Mode))
	}
}

// runLease performs one full lease -> download -> confirm cycle. It always
// calls confirm, even when every file failed or the lease was empty, so
// the lease is released either way.
func (a *Agent) runLease(ctx context.Context) (Result, error) {
	leaseID, files, err := a.lease(ctx)
	if err != nil {
		return Result{}, err
	}
	result := Result{LeaseID: leaseID}
	if leaseID == "" {
		return result, nil
	}

	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		path, err := a.downloadWithRetry(ctx, f)
		if err != nil {
			// A cancelled download is omitted from both ok_ids and
			// fail_ids; the server will expire its lease.
			if ctx.Err() != nil {
				break
			}
			result.FailIDs = append(result.FailIDs, f.ID)
			continue
		}
		result.OKIDs = append(result.OKIDs, f.ID)
		result.Downloaded = append(result.Downloaded, path)
	}

	if err := a.confirm(ctx, leaseID, result.OKIDs, result.FailIDs); err != nil {
		return result, err
	}
	return result, nil
}

// runDirect pulls through /pull-batch: the server hands over the batch
// already marked downloaded, so there is no confirm step and a failed
// download here needs operator intervention to be re-served.
func (a *Agent) runDirect(ctx context.Context) (Result, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"limit": a.cfg.PullLimit,
		"lotes": a.cfg.Lotes,
	})
	var resp leaseResponse
	if err := a.post(ctx, "/pull-batch", body, &resp); err != nil {
		return Result{}, err
	}

	result := Result{LeaseID: resp.LeaseID}
	for _, f := range resp.Files {
		if ctx.Err() != nil {
			break
		}
		path, err := a.downloadWithRetry(ctx, f)
		if err != nil {
			result.FailIDs = append(result.FailIDs, f.ID)
			continue
		}
		result.OKIDs = append(result.OKIDs, f.ID)
		result.Downloaded = append(result.Downloaded, path)
	}
	return result, nil
}

func (a *Agent) lease(ctx context.Context) (string, []fileDescriptor, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"limit":       a.cfg.PullLimit,
		"lotes":       a.cfg.Lotes,
		"ttl_seconds": int(a.cfg.LeaseTTL.Seconds()),
	})
	var resp leaseResponse
	if err := a.post(ctx, "/lease-files", body, &resp); err != nil {
		return "", nil, err
	}
	return resp.LeaseID, resp.Files, nil
}

func (a *Agent) confirm(ctx context.Context, leaseID string, okIDs, failIDs []string) error {
	if okIDs == nil {
		okIDs = []string{}
	}
	if failIDs == nil {
		failIDs = []string{}
	}
	body, _ := json.Marshal(map[string]interface{}{
		"lease_id": leaseID,
		"ok_ids":   okIDs,
		"fail_ids": failIDs,
	})
	var resp struct {
		Confirmed int `json:"confirmed"`
		Rejected  int `json:"rejected"`
	}
	return a.post(ctx, "/confirm-download", body, &resp)
}

func (a *Agent) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(a.cfg.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return ferr.Wrap(ferr.ProtocolError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return ferr.Wrap(ferr.ProtocolError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return ferr.Wrap(ferr.ProtocolError, fmt.Errorf("pullagent: %s returned %d", path, resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// retryBackoff is the pause between download attempts, shortened outside
// standard builds so test runs don't stall on it.
var retryBackoff = build.Select(build.Var{
	Standard: 2 * time.Second,
	Dev:      500 * time.Millisecond,
	Testing:  100 * time.Millisecond,
}).(time.Duration)

// downloadWithRetry streams one descriptor to disk, retrying bounded
// attempts on transport failure; retry per descriptor is the agent's own
// responsibility, bounded and defaulting to 3 attempts. The lease itself is
// never extended by a retry.
func (a *Agent) downloadWithRetry(ctx context.Context, f fileDescriptor) (string, error) {
	var path string
	err := build.Retry(a.cfg.MaxRetries, retryBackoff, func() error {
		p, err := a.download(ctx, f)
		if err != nil {
			return err
		}
		path = p
		return nil
	})
	return path, err
}

func (a *Agent) download(ctx context.Context, f fileDescriptor) (string, error) {
	dir := filepath.Join(a.cfg.OutputDir, f.PV)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ferr.Wrap(ferr.IOError, err)
	}
	finalPath := filepath.Join(dir, f.Name)
	partPath := filepath.Join(dir, "."+f.Name+".part")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(a.cfg.BaseURL, "/")+f.URL, nil)
	if err != nil {
		return "", ferr.Wrap(ferr.ProtocolError, err)
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", ferr.Wrap(ferr.ProtocolError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", ferr.Wrap(ferr.ProtocolError, fmt.Errorf("pullagent: download %s returned %d", f.Name, resp.StatusCode))
	}

	out, err := os.Create(partPath)
	if err != nil {
		return "", ferr.Wrap(ferr.IOError, err)
	}
	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(partPath)
		return "", ferr.Wrap(ferr.IOError, copyErr)
	}
	if closeErr != nil {
		os.Remove(partPath)
		return "", ferr.Wrap(ferr.IOError, closeErr)
	}

	if f.Size > 0 && written != f.Size {
		os.Remove(partPath)
		return "", ferr.Wrap(ferr.IntegrityError, fmt.Errorf("pullagent: %s size mismatch: got %d want %d", f.Name, written, f.Size))
	}
	if a.cfg.VerifySHA256 && f.SHA256 != "" {
		digest, err := hash.SumFile(partPath)
		if err != nil {
			os.Remove(partPath)
			return "", ferr.Wrap(ferr.IOError, err)
		}
		if !strings.EqualFold(digest, f.SHA256) {
			os.Remove(partPath)
			return "", ferr.Wrap(ferr.IntegrityError, fmt.Errorf("pullagent: %s sha256 mismatch", f.Name))
		}
	}

	// The rename is idempotent: a prior crashed run may have already left
	// bytes at finalPath, and overwriting it with an independently
	// verified copy is always safe.
	if err := os.Rename(partPath, finalPath); err != nil {
		return "", ferr.Wrap(ferr.IOError, err)
	}
	return finalPath, nil
}
