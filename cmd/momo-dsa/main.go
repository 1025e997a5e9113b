package main

import (
	"flag"
	"fmt"
	"os"

	"momoapi/internal/dsa"
	"momoapi/internal/server"
	"momoapi/internal/shared"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	samples := flag.Int("n", 20, "number of leading records to look up")
	rounds := flag.Int("rounds", 1000, "lookups per id")
	flag.Parse()

	cfg, err := shared.LoadServerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	fs, err := server.NewFileStore(cfg.DataFile, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", cfg.DataFile, err)
		os.Exit(1)
	}
	records, _, err := fs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", cfg.DataFile, err)
		os.Exit(1)
	}

	res := dsa.Compare(records, *samples, *rounds)
	if res.Samples == 0 {
		fmt.Println("No valid IDs found to test.")
		return
	}

	fmt.Println("=== DSA Comparison: Linear Search vs Dictionary Lookup ===")
	fmt.Printf("Average Linear Search Time (%d records): %.8f seconds\n", res.Samples, res.AvgLinear.Seconds())
	fmt.Printf("Average Dictionary Lookup Time (%d records): %.8f seconds\n", res.Samples, res.AvgIndexed.Seconds())
	if s := res.Speedup(); s > 0 {
		fmt.Printf("Dictionary lookup is approximately %.1f times faster than linear search.\n", s)
	}
}
