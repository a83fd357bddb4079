package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/compsight/compsight-api/internal/sanitize"
)

// PolicyObjectKey is where the sanitizer policy override lives in the
// configured bucket.
const PolicyObjectKey = "config/lookup_policy.json"

// NewPolicyLoader returns an S3Loader that refreshes the sanitizer policy
// from object storage. The stored JSON overlays the default policy, so a
// partial document only overrides the fields it names.
func NewPolicyLoader(client *s3.Client, bucket string, interval time.Duration, store *sanitize.PolicyStore, logger *slog.Logger) *S3Loader {
	apply := func(data []byte) error {
		policy := sanitize.DefaultPolicy()
		if err := json.Unmarshal(data, &policy); err != nil {
			return fmt.Errorf("invalid policy document: %w", err)
		}
		if policy.ConfidenceThreshold < 0 || policy.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold %v out of range", policy.ConfidenceThreshold)
		}
		store.Set(policy)
		return nil
	}
	return NewS3Loader(client, bucket, PolicyObjectKey, interval, apply, logger)
}
