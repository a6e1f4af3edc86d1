package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/warrantypool/internal/flagx"
)

var serverFlags = []string{
	"-a", "-h", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-l",
	"-store", "-tz", "-seal-passphrase", "-seal-salt",
	"-probe-url", "-probe-prefix", "-probe-marker", "-probe-timeout",
	"-probe-concurrency", "-probe-rate", "-probe-burst",
	"-lease-ttl", "-fallback-days", "-key-length", "-reconcile",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms as before, long forms for pool tuning):
//
//	-a string    gRPC bind address (e.g., ":50051")
//	-h string    HTTP bind address (e.g., ":8080")
//	-d string    PostgreSQL DSN
//	-s string    JWT HMAC secret key
//	-t duration  admin token validity
//	-u/-p        S3 root user / password
//	-b/-g/-e     S3 bucket / region / base endpoint
//	-l string    log level
//
// args is first reduced to the flags handled here with flagx.FilterArgs, so
// bootstrap flags such as -c and -env-file do not collide.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "h", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.AdminTokenValidityDuration, "t", config.AdminTokenValidityDuration, "admin token validity")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 eviction archive bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.StoreKind, "store", config.StoreKind, "store backend: postgres or memory")
	fs.StringVar(&config.TimeZone, "tz", config.TimeZone, "time zone deciding the current day")
	fs.StringVar(&config.SealPassphrase, "seal-passphrase", config.SealPassphrase, "passphrase sealing secrets at rest")
	fs.StringVar(&config.SealSalt, "seal-salt", config.SealSalt, "salt for the sealing key")

	fs.StringVar(&config.ProbeURL, "probe-url", config.ProbeURL, "landing page used for session probes")
	fs.StringVar(&config.ProbeAuthenticatedPrefix, "probe-prefix", config.ProbeAuthenticatedPrefix, "path prefix of an authenticated landing page")
	fs.StringVar(&config.ProbeLoginMarker, "probe-marker", config.ProbeLoginMarker, "URL fragment that marks a login page")
	fs.DurationVar(&config.ProbeTimeout, "probe-timeout", config.ProbeTimeout, "timeout of one probe")
	fs.IntVar(&config.ProbeConcurrency, "probe-concurrency", config.ProbeConcurrency, "candidates probed at once")
	fs.Float64Var(&config.ProbeRatePerSecond, "probe-rate", config.ProbeRatePerSecond, "probe starts per second (0 = unlimited)")
	fs.IntVar(&config.ProbeBurst, "probe-burst", config.ProbeBurst, "probe rate burst")

	fs.DurationVar(&config.LeaseTTL, "lease-ttl", config.LeaseTTL, "account lease lifetime")
	fs.IntVar(&config.FallbackDays, "fallback-days", config.FallbackDays, "days granted when expiry is unknown")
	fs.IntVar(&config.WarrantyKeyLength, "key-length", config.WarrantyKeyLength, "warranty key length")
	fs.StringVar(&config.ReconcileSchedule, "reconcile", config.ReconcileSchedule, "reconciler cron schedule")

	return fs.Parse(args)
}
