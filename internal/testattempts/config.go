// Package testattempts drives a running speakeval service with generated
// attempts and checks what comes back.
package testattempts

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumAttempts  int           // Number of attempts to generate
	Learners     int           // Number of distinct learner IDs
	Workers      int           // Concurrent HTTP submitters
	Timeout      time.Duration // Per-request timeout
	Wait         time.Duration // How long to poll for results
	Duplicates   float64       // Fraction of attempts resubmitted to exercise dedupe
	Seed         uint64        // Generator seed; equal seeds give equal attempts
	FixturesFile string        // Optional YAML question bank
	OutputFile   string        // Where to write the generated attempts
	Verbose      bool
}

// AckResponse is the body of POST /attempts.
type AckResponse struct {
	Status    string `json:"status"`
	AttemptID string `json:"attempt_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Accepted   int
	Duplicate  int
	Rejected   int
	Failed     int
	Evaluated  int
	Missing    int
	Invalid    int
	MeanByTask map[string]float64
	StartTime  time.Time
	Duration   time.Duration
}
