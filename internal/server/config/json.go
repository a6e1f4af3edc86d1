package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/warrantypool/internal/flagx"
	"github.com/dmitrijs2005/warrantypool/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. Fields left out of the file keep their current value.
type JsonConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	StoreKind        string `json:"store"`
	DatabaseDSN      string `json:"database_dsn"`
	LogLevel         string `json:"log_level"`
	TimeZone         string `json:"time_zone"`

	SecretKey                  string         `json:"secret_key"`
	AdminTokenValidityDuration timex.Duration `json:"admin_token_validity_duration"`
	SealPassphrase             string         `json:"seal_passphrase"`
	SealSalt                   string         `json:"seal_salt"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	ProbeURL                 string         `json:"probe_url"`
	ProbeAuthenticatedPrefix string         `json:"probe_authenticated_prefix"`
	ProbeLoginMarker         string         `json:"probe_login_marker"`
	ProbeTimeout             timex.Duration `json:"probe_timeout"`
	ProbeConcurrency         int            `json:"probe_concurrency"`
	ProbeRatePerSecond       float64        `json:"probe_rate_per_second"`
	ProbeBurst               int            `json:"probe_burst"`

	LeaseTTL          timex.Duration `json:"lease_ttl"`
	FallbackDays      int            `json:"fallback_days"`
	WarrantyKeyLength int            `json:"warranty_key_length"`
	ReconcileSchedule string         `json:"reconcile_schedule"`
}

// parseJson overlays values from the JSON file named by -c or -config.
// Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config %s: %w", jsonConfigFile, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.StoreKind, c.StoreKind)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.TimeZone, c.TimeZone)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SealPassphrase, c.SealPassphrase)
	setString(&config.SealSalt, c.SealSalt)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.ProbeURL, c.ProbeURL)
	setString(&config.ProbeAuthenticatedPrefix, c.ProbeAuthenticatedPrefix)
	setString(&config.ProbeLoginMarker, c.ProbeLoginMarker)
	setString(&config.ReconcileSchedule, c.ReconcileSchedule)

	if c.AdminTokenValidityDuration.Duration != 0 {
		config.AdminTokenValidityDuration = c.AdminTokenValidityDuration.Duration
	}
	if c.ProbeTimeout.Duration != 0 {
		config.ProbeTimeout = c.ProbeTimeout.Duration
	}
	if c.LeaseTTL.Duration != 0 {
		config.LeaseTTL = c.LeaseTTL.Duration
	}
	if c.ProbeConcurrency != 0 {
		config.ProbeConcurrency = c.ProbeConcurrency
	}
	if c.ProbeRatePerSecond != 0 {
		config.ProbeRatePerSecond = c.ProbeRatePerSecond
	}
	if c.ProbeBurst != 0 {
		config.ProbeBurst = c.ProbeBurst
	}
	if c.FallbackDays != 0 {
		config.FallbackDays = c.FallbackDays
	}
	if c.WarrantyKeyLength != 0 {
		config.WarrantyKeyLength = c.WarrantyKeyLength
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
