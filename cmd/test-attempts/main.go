package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/speakeval/internal/testattempts"
)

const (
	defaultNumAttempts = 1000
	defaultLearners    = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultWait        = 30 * time.Second
	defaultDuplicates  = 0.05
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		attempts   = flag.Int("attempts", defaultNumAttempts, "Number of attempts to generate")
		learners   = flag.Int("learners", defaultLearners, "Number of distinct learners")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent requests")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait       = flag.Duration("wait", defaultWait, "How long to wait for evaluations")
		duplicates = flag.Float64("duplicates", defaultDuplicates, "Fraction of attempts resubmitted")
		seed       = flag.Uint64("seed", 1, "Generator seed")
		fixtures   = flag.String("fixtures", "", "YAML question bank")
		outputFile = flag.String("output", "", "Write generated attempts to this YAML file")
		logFile    = flag.String("log", "", "Log file (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testattempts.ShowHelp()
		return
	}

	if err := testattempts.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testattempts.Config{
		BaseURL:      *baseURL,
		NumAttempts:  *attempts,
		Learners:     *learners,
		Workers:      *workers,
		Timeout:      *timeout,
		Wait:         *wait,
		Duplicates:   *duplicates,
		Seed:         *seed,
		FixturesFile: *fixtures,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}

	if _, err := testattempts.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
