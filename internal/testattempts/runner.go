package testattempts

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run generates attempts, submits them, waits for their evaluations and
// verifies what the service returned.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("testattempts")
	log.Info(ctx, "starting attempt test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("attempts", config.NumAttempts),
		logger.Int("learners", config.Learners),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Float64("duplicates", config.Duplicates))

	client := newHTTPClient(config.BaseURL, config.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	bank := DefaultBank()
	if config.FixturesFile != "" {
		b, err := LoadBank(config.FixturesFile)
		if err != nil {
			return stats, err
		}
		bank = b
	}

	attempts := Generate(ctx, bank, config.NumAttempts, config.Learners, config.Seed)
	stats.Generated = len(attempts)

	if config.OutputFile != "" {
		if err := SaveAttempts(config.OutputFile, attempts); err != nil {
			log.Warn(ctx, "failed to save attempts", logger.Error(err))
		} else {
			log.Info(ctx, "attempts saved", logger.String("file", config.OutputFile))
		}
	}

	submissions := withDuplicates(attempts, config.Duplicates, config.Seed)
	if err := submitAttempts(ctx, config, client, submissions, stats); err != nil {
		return stats, fmt.Errorf("attempt submission failed: %w", err)
	}

	found, err := collectEvaluations(ctx, config, client, attempts)
	if err != nil {
		return stats, fmt.Errorf("collecting evaluations failed: %w", err)
	}
	verr := verifyEvaluations(ctx, attempts, found, stats)

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, stats)
	if verr != nil {
		return stats, verr
	}
	if stats.Missing > 0 && stats.Failed == 0 && stats.Rejected == 0 {
		return stats, fmt.Errorf("%w: %d accepted attempts were never evaluated", ErrVerification, stats.Missing)
	}
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *httpClient) error {
	status, err := client.get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

// SaveAttempts writes attempts to path as YAML.
func SaveAttempts(path string, attempts []model.Attempt) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := yaml.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("encode attempts: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("write attempts: %w", err)
	}
	return nil
}

// LoadAttempts reads attempts written by SaveAttempts.
func LoadAttempts(path string) ([]model.Attempt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	var out []model.Attempt
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode attempts: %w", err)
	}
	return out, nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	fields := []logger.Field{
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("evaluated", stats.Evaluated),
		logger.Int("missing", stats.Missing),
		logger.Int("invalid", stats.Invalid),
		logger.Duration("duration", stats.Duration),
		logger.Float64("attemptsPerSecond", perSecond),
	}
	for task, mean := range stats.MeanByTask {
		fields = append(fields, logger.Float64("mean_"+task, mean))
	}
	logger.Get().Info(ctx, "final statistics", fields...)
}
