package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DeriveKey computes the stable identity key naming a run configuration
// for state and manifest lookup.
//
// When a job id is supplied the identity is that job id verbatim, giving
// callers explicit grouping and resumption control. Otherwise the identity
// is the standard base64 encoding (with padding) of
// "<output_path>,<source_image>". The pair is encoded, never hashed:
// operators decode the key to recover provenance, so reversibility is a
// product requirement.
func DeriveKey(cfg RunConfig) string {
	if cfg.JobID != "" {
		return cfg.JobID
	}
	plain := cfg.OutputBasePath + "," + cfg.SourceImage
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

// DecodeKey reverses a derived identity key back to the comma-joined
// "<output_path>,<source_image>" pair it encodes. Keys that were supplied
// as verbatim job ids are not base64 and fail to decode; callers should
// treat that as "identity is a job id".
func DecodeKey(key string) (string, error) {
	plain, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("decode identity key: %w", err)
	}
	return string(plain), nil
}

// SplitIdentity separates a decoded identity pair into its output path and
// source image components. Image references never contain commas, so the
// split is taken at the last comma, letting output paths contain commas.
func SplitIdentity(plain string) (outputPath, sourceImage string, ok bool) {
	i := strings.LastIndex(plain, ",")
	if i < 0 {
		return "", "", false
	}
	return plain[:i], plain[i+1:], true
}
