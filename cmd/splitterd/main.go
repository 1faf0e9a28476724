// Command splitterd runs the Pull Service: it scans an output directory for
// split child files, serves the lease/confirm/scan HTTP surface, and sweeps
// expired leases in the background. A Server type owns the listener and
// http.Server while the API type owns only the handler tree.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WilsonNous/netunna-rede-splitter-v2/build"
	"github.com/WilsonNous/netunna-rede-splitter-v2/hash"
	"github.com/WilsonNous/netunna-rede-splitter-v2/persist"
	"github.com/WilsonNous/netunna-rede-splitter-v2/pullsvc"
)

// Server owns the listener and the Pull Service's HTTP server; pullsvc.API
// owns only the handler tree.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	store      *pullsvc.Store
	sweeper    *pullsvc.Sweeper
	log        *persist.Logger
	statePath  string
}

// Config collects the flags NewServer needs.
type Config struct {
	Addr        string
	ScanDir     string
	Token       string
	StatePath   string // file-state table persistence; empty disables
	LogPath     string // daemon log file; empty logs nowhere
	MaxLockTime time.Duration
	SweepEvery  time.Duration
}

// NewServer builds a Server: it opens the listener, restores any persisted
// file state, seeds the store from a scan of ScanDir, starts the sweeper,
// and wires the API.
func NewServer(cfg Config) (*Server, error) {
	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}

	var logger *persist.Logger
	if cfg.LogPath != "" {
		logger, err = persist.NewLogger(cfg.LogPath)
		if err != nil {
			l.Close()
			return nil, err
		}
	}

	store := pullsvc.NewStore(cfg.MaxLockTime)
	if cfg.StatePath != "" {
		if err := store.LoadState(cfg.StatePath); err != nil {
			l.Close()
			return nil, err
		}
	}
	seeded, err := seedStore(store, cfg.ScanDir)
	if err != nil {
		l.Close()
		return nil, err
	}
	if logger != nil {
		logger.Printf("scanned %s: %d files registered", cfg.ScanDir, seeded)
	}

	sweeper := pullsvc.NewSweeper(store, cfg.SweepEvery)
	if err := sweeper.Start(); err != nil {
		l.Close()
		return nil, err
	}

	api := pullsvc.New(store, cfg.Token)
	srv := &Server{
		listener:  l,
		store:     store,
		sweeper:   sweeper,
		log:       logger,
		statePath: cfg.StatePath,
		httpServer: &http.Server{
			Handler:           api.Handler,
			ReadTimeout:       5 * time.Minute,
			ReadHeaderTimeout: 2 * time.Minute,
			IdleTimeout:       5 * time.Minute,
		},
	}
	return srv, nil
}

// seedStore walks scanDir and registers every regular file it finds as a
// Pending FileRecord, inferring PV from its filename prefix (matching the
// NSA_<nsa>/<PV>_... layout the Child Writer produces). IDs are derived
// from the file's path, so a rescan after a restart maps each file onto
// the same record its restored state already tracks, and Add's no-op on an
// existing id preserves a downloaded file's terminal state.
func seedStore(store *pullsvc.Store, scanDir string) (int, error) {
	seeded := 0
	err := filepath.Walk(scanDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		pv := strings.SplitN(name, "_", 2)[0]
		digest, err := hash.SumFile(path)
		if err != nil {
			return err
		}
		store.Add(pullsvc.FileRecord{
			ID:     hash.Sum([]byte(path))[:20],
			PV:     pv,
			Name:   name,
			Path:   path,
			Size:   info.Size(),
			SHA256: digest,
			Lote:   filepath.Base(filepath.Dir(path)),
		})
		seeded++
		return nil
	})
	return seeded, err
}

// Serve blocks, accepting connections until Close is called.
func (srv *Server) Serve() error {
	err := srv.httpServer.Serve(srv.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops the sweep loop, persists the file-state table, shuts down the
// HTTP server, and closes the daemon log, composing the components' errors.
func (srv *Server) Close() error {
	var saveErr error
	if srv.statePath != "" {
		saveErr = srv.store.SaveState(srv.statePath)
	}
	closeErr := build.ComposeErrors(srv.sweeper.Close(), saveErr, srv.httpServer.Close())
	if srv.log != nil {
		closeErr = build.ComposeErrors(closeErr, srv.log.Close())
	}
	return closeErr
}

var (
	flagAddr      string
	flagScanDir   string
	flagToken     string
	flagStateFile string
	flagLogFile   string
	flagSweep     time.Duration
)

func runCmd(cmd *cobra.Command, args []string) {
	srv, err := NewServer(Config{
		Addr:        flagAddr,
		ScanDir:     flagScanDir,
		Token:       flagToken,
		StatePath:   flagStateFile,
		LogPath:     flagLogFile,
		MaxLockTime: 30 * time.Second,
		SweepEvery:  flagSweep,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "splitterd:", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		if err := srv.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "splitterd: shutdown:", err)
		}
	}()

	fmt.Println("splitterd listening on", flagAddr)
	if err := srv.Serve(); err != nil {
		fmt.Fprintln(os.Stderr, "splitterd:", err)
		os.Exit(1)
	}
}

func main() {
	root := &cobra.Command{
		Use:   "splitterd",
		Short: "splitterd v" + build.Version,
		Long:  "splitterd v" + build.Version + " - Pull Service daemon",
		Run:   runCmd,
	}
	root.Flags().StringVar(&flagAddr, "addr", "localhost:8080", "address to listen on")
	root.Flags().StringVar(&flagScanDir, "scan-dir", "output", "directory of split child files to serve")
	root.Flags().StringVar(&flagToken, "token", "", "bearer token required on every request (empty disables auth)")
	root.Flags().StringVar(&flagStateFile, "state-file", "splitterd-state.json", "file-state table persistence path (empty disables)")
	root.Flags().StringVar(&flagLogFile, "log-file", "", "daemon log file (disabled if empty)")
	root.Flags().DurationVar(&flagSweep, "sweep-interval", 30*time.Second, "lease TTL sweep interval")

	if err := root.Execute(); err != nil {
		os.Exit(64)
	}
}
