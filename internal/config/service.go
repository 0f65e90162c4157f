package config

import "time"

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`

	// ClientURL is the base URL customers are redirected back to after a
	// hosted checkout; PublicURL is this service's externally reachable base
	// used to build provider notify URLs.
	ClientURL string `yaml:"client_url"`
	PublicURL string `yaml:"public_url"`

	JWTSecret string `yaml:"jwt_secret"`

	// CredentialKey is the 64-hex-char AES-256 key for gateway credentials
	// at rest.
	CredentialKey string `yaml:"credential_key"`

	SantimPay SantimPayConfig `yaml:"santimpay"`
	Redis     RedisConfig     `yaml:"redis"`
}

// SantimPayConfig holds the platform-owned SantimPay credentials. Merchants
// connect with their SantimPay merchant id only; the signing key belongs to
// the platform.
type SantimPayConfig struct {
	PrivateKey string `yaml:"private_key"`
	BaseURL    string `yaml:"base_url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ReconcileConfig tunes the background reconciliation sweep.
type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
	// GraceWindow is how long a processing transaction is left alone before
	// it counts as stuck.
	GraceWindow time.Duration `yaml:"grace_window"`
	// AgeCeiling is the hard bound after which an unresolved transaction is
	// forced to failed with a timeout reason.
	AgeCeiling time.Duration `yaml:"age_ceiling"`
	BatchSize  int           `yaml:"batch_size"`
	// StatusRetries bounds FetchStatus retry attempts per transaction.
	StatusRetries int `yaml:"status_retries"`
}

func (c *ReconcileConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = 2 * time.Minute
	}
	if c.AgeCeiling <= 0 {
		c.AgeCeiling = 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.StatusRetries <= 0 {
		c.StatusRetries = 3
	}
}
