package mw

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	logfilter "github.com/jmylchreest/slog-logfilter"

	"github.com/compsight/compsight-api/internal/config"
)

// logFiltersObjectKey is where runtime log filter overrides live in the
// configured bucket.
const logFiltersObjectKey = "config/logfilters.json"

// NewLogFiltersLoader returns a loader that refreshes slog-logfilter rules
// from object storage. Filters update live without a restart; a broken
// document keeps the existing filters in place.
func NewLogFiltersLoader(client *s3.Client, bucket string, interval time.Duration, logger *slog.Logger) *config.S3Loader {
	apply := func(data []byte) error {
		var filters []logfilter.LogFilter
		if err := json.Unmarshal(data, &filters); err != nil {
			return fmt.Errorf("invalid log filters document: %w", err)
		}

		logfilter.SetFilters(filters)

		active := 0
		for _, f := range filters {
			if f.IsActive() {
				active++
			}
		}
		logger.Info("log filters applied", "total", len(filters), "active", active)
		return nil
	}
	return config.NewS3Loader(client, bucket, logFiltersObjectKey, interval, apply, logger)
}
