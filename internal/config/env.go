package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays PUBRT_* environment variables onto cfg. CORS_ORIGINS is
// honoured as well for compatibility with existing deployments; PUBRT_CORS_ORIGINS
// wins when both are set.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PUBRT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v, ok := os.LookupEnv("PUBRT_GRPC_ADDR"); ok {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("PUBRT_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("PUBRT_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PollIntervalMs = n
		}
	}
	if v := os.Getenv("PUBRT_MAX_RECORD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxRecordBytes = n
		}
	}
	if v := os.Getenv("PUBRT_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PUBRT_STORE_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("PUBRT_STORE_ON_DISK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Store.OnDisk = b
		}
	}
	if v := os.Getenv("PUBRT_STORE_FSYNC"); v != "" {
		cfg.Store.Fsync = strings.ToLower(v)
	}
	if v := os.Getenv("PUBRT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PUBRT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PUBRT_LOG_OUTPUT"); v != "" {
		cfg.Log.Output = v
	}
	if v := os.Getenv("PUBRT_LOG_REDACT"); v != "" {
		cfg.Log.Redact = splitList(v)
	}
	if v := os.Getenv("PUBRT_LOG_SAMPLE_INITIAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Log.SampleInitial = n
		}
	}
	if v := os.Getenv("PUBRT_LOG_SAMPLE_THEREAFTER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Log.SampleThereafter = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
