// Command pullagent is the Pull Agent: it runs one lease-download-confirm
// cycle against a Pull Service and exits. Configuration is environment-driven
// (AGENTE_OUTPUT_DIR, SPLITTER_BASE_URL, ...), expressed as cobra flags with
// os.Getenv-backed defaults.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/WilsonNous/netunna-rede-splitter-v2/build"
	"github.com/WilsonNous/netunna-rede-splitter-v2/pullagent"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

var (
	flagBaseURL      string
	flagAPIKey       string
	flagMode         string
	flagLeaseTTL     int
	flagPullLimit    int
	flagVerifySHA256 bool
	flagOutputDir    string
	flagLotes        []string
	flagRateLimit    int64
)

func runCmd(cmd *cobra.Command, args []string) {
	agent := pullagent.New(pullagent.Config{
		BaseURL:              flagBaseURL,
		APIKey:               flagAPIKey,
		Mode:                 flagMode,
		LeaseTTL:             time.Duration(flagLeaseTTL) * time.Second,
		PullLimit:            flagPullLimit,
		VerifySHA256:         flagVerifySHA256,
		OutputDir:            flagOutputDir,
		Lotes:                flagLotes,
		RateLimitBytesPerSec: flagRateLimit,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := agent.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pullagent:", err)
		os.Exit(1)
	}

	fmt.Printf("lease=%s downloaded=%d failed=%d\n", result.LeaseID, len(result.OKIDs), len(result.FailIDs))
	for _, p := range result.Downloaded {
		fmt.Println("  " + p)
	}
	if len(result.FailIDs) > 0 {
		os.Exit(1)
	}
}

func main() {
	root := &cobra.Command{
		Use:   "pullagent",
		Short: "pullagent v" + build.Version,
		Long:  "pullagent v" + build.Version + " - pull split child files from a splitterd instance",
		Run:   runCmd,
	}

	root.Flags().StringVar(&flagBaseURL, "base-url", envOr("SPLITTER_BASE_URL", "http://localhost:8080"), "Pull Service base URL")
	root.Flags().StringVar(&flagAPIKey, "api-key", envOr("SPLITTER_API_KEY", ""), "bearer token")
	root.Flags().StringVar(&flagMode, "mode", envOr("DOWNLOAD_MODE", pullagent.ModeLease), "transfer strategy: lease or direct")
	root.Flags().IntVar(&flagLeaseTTL, "lease-ttl-seconds", envIntOr("LEASE_TTL_SECONDS", 900), "requested lease TTL")
	root.Flags().IntVar(&flagPullLimit, "pull-limit", envIntOr("PULL_LIMIT", 200), "max files per lease")
	root.Flags().BoolVar(&flagVerifySHA256, "verify-sha256", envBoolOr("VERIFY_SHA256", true), "verify each download's digest")
	root.Flags().StringVar(&flagOutputDir, "output-dir", envOr("AGENTE_OUTPUT_DIR", "recebidos"), "local directory to write downloads to")
	root.Flags().StringSliceVar(&flagLotes, "lote", nil, "restrict the lease to these lote prefixes (repeatable)")
	root.Flags().Int64Var(&flagRateLimit, "rate-limit-bytes", 0, "throttle downloads to this many bytes/sec (0 disables)")

	if err := root.Execute(); err != nil {
		os.Exit(64)
	}
}
