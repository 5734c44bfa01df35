// Command hlstreectl opens an HLS manifest tree and prints its structure.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AgustinSRG/genv"
	"github.com/joho/godotenv"

	"github.com/streamtree/hlstree/hls"
)

func main() {
	godotenv.Load() // Load env vars, ignore error if no .env file is present

	cfg := hls.DefaultConfig()
	cfg.HTTP.ConnectionTimeout = time.Duration(genv.GetEnvInt("HLS_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second
	cfg.HTTP.ReadTimeout = time.Duration(genv.GetEnvInt("HLS_READ_TIMEOUT_SECONDS", 30)) * time.Second
	cfg.HTTP.MaxRedirects = genv.GetEnvInt("HLS_MAX_REDIRECTS", 5)
	cfg.Parser.StrictMode = genv.GetEnvBool("HLS_STRICT_MODE", false)
	cfg.Refresh.MinUpdateIntervalMS = uint32(genv.GetEnvInt("HLS_MIN_UPDATE_INTERVAL_MS", 1000))

	licenseKey := genv.GetEnvString("HLS_LICENSE_KEY", "")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hlstreectl <manifest-url>")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ConnectionTimeout+cfg.HTTP.ReadTimeout)
	defer cancel()

	engine, err := hls.OpenEngine(ctx, os.Args[1], licenseKey, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open manifest: %v\n", err)
		os.Exit(1)
	}

	printTree(engine)
}

func printTree(engine *hls.Engine) {
	for i, period := range engine.Periods() {
		fmt.Printf("period %d: duration=%d timescale=%d encryption=%v\n",
			i, period.Duration, period.Timescale, period.EncryptionState)
		for _, adp := range period.AdaptationSets {
			fmt.Printf("  adaptation set: type=%s language=%s\n", adp.StreamType, adp.Language)
			for _, rep := range adp.Representations {
				fmt.Printf("    representation: url=%s bandwidth=%d segments=%d\n",
					rep.SourceURL, rep.Bandwidth, len(rep.Segments))
			}
		}
	}
	fmt.Printf("total duration: %ds live=%v\n", engine.TotalDuration(), engine.IsLive())
}
