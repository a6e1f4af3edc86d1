package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "WARRANTYPOOL_"

// parseEnv loads the .env file (or the one named by -env-file) into the
// process environment without overriding variables already set, then
// copies every WARRANTYPOOL_* variable it knows into config.
func parseEnv(config *Config, args []string, lookup func(string) (string, bool)) error {
	envFile := flagx.EnvFileFlags(args)
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("STORE", &config.StoreKind)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("LOG_LEVEL", &config.LogLevel)
	str("TIME_ZONE", &config.TimeZone)
	str("SECRET_KEY", &config.SecretKey)
	str("SEAL_PASSPHRASE", &config.SealPassphrase)
	str("SEAL_SALT", &config.SealSalt)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("PROBE_URL", &config.ProbeURL)
	str("PROBE_AUTHENTICATED_PREFIX", &config.ProbeAuthenticatedPrefix)
	str("PROBE_LOGIN_MARKER", &config.ProbeLoginMarker)
	str("RECONCILE_SCHEDULE", &config.ReconcileSchedule)

	if v, ok := lookup(envPrefix + "PROBE_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sPROBE_RATE: %w", envPrefix, err)
		}
		config.ProbeRatePerSecond = f
	}

	return errors.Join(
		dur("ADMIN_TOKEN_TTL", &config.AdminTokenValidityDuration),
		dur("PROBE_TIMEOUT", &config.ProbeTimeout),
		dur("LEASE_TTL", &config.LeaseTTL),
		num("PROBE_CONCURRENCY", &config.ProbeConcurrency),
		num("PROBE_BURST", &config.ProbeBurst),
		num("FALLBACK_DAYS", &config.FallbackDays),
		num("WARRANTY_KEY_LENGTH", &config.WarrantyKeyLength),
	)
}
