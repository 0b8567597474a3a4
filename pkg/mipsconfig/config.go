// Package mipsconfig holds environment-driven configuration for the gRPC
// server and the default index parameters it trains with. Grounded on the
// teacher's pkg/config.Config: the Default/LoadFromEnv/Validate shape and
// the os.Getenv + strconv parsing idiom are kept, with VECTOR_* env names
// replaced by MIPS_*.
package mipsconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server and default-index configuration.
type Config struct {
	Server  ServerConfig
	HKMeans HKMeansConfig
	ALSH    ALSHConfig
	SubPQ   SubPQConfig
	IVFFlat IVFFlatConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
}

// ServerConfig holds gRPC server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	MaxConnections  int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	EnableTLS       bool
	CertFile        string
	KeyFile         string
}

// HKMeansConfig holds the default hierarchical k-means build parameters.
// AugmentationKind selects which of the four MIPS-to-NN reductions
// (mipskernel.AugmentationKind) the index is built against: "shrivastava",
// "neyshabur", "none", or "normalize". M and U are only consulted for
// "shrivastava" (U in (0,1), M >= 1).
type HKMeansConfig struct {
	Layers      int
	OpenedTrees int

	AugmentationKind string
	M                int
	U                float64
}

// ALSHConfig holds the default ALSH build parameters. AugmentationKind/M/U
// follow the same contract as HKMeansConfig's.
type ALSHConfig struct {
	Tables         int
	HashesPerTable int
	BucketWidth    float64

	AugmentationKind string
	M                int
	U                float64
}

// SubPQConfig holds the default subspace-quantization build parameters.
type SubPQConfig struct {
	Subspaces int
	Centroids int
}

// IVFFlatConfig holds the default parameters for the flat inverted-file
// benchmark index: how many cells to train and how many to probe per
// search.
type IVFFlatConfig struct {
	NumCentroids int
	Nprobe       int
}

// RateLimitConfig holds the per-key token-bucket limits applied at the
// gRPC boundary.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// AuthConfig holds the JWT settings for the gRPC auth interceptor. Build
// and Reset are kept admin-only by default since they mutate or discard
// an entire namespace's index.
type AuthConfig struct {
	Enabled      bool
	JWTSecret    string
	RequireAdmin bool
	PublicMethods []string
	AdminMethods  []string
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            50061,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
		},
		HKMeans: HKMeansConfig{
			Layers:           2,
			OpenedTrees:      4,
			AugmentationKind: "shrivastava",
			M:                3,
			U:                0.75,
		},
		ALSH: ALSHConfig{
			Tables:           8,
			HashesPerTable:   4,
			BucketWidth:      4.0,
			AugmentationKind: "shrivastava",
			M:                3,
			U:                0.75,
		},
		SubPQ: SubPQConfig{
			Subspaces: 8,
			Centroids: 256,
		},
		IVFFlat: IVFFlatConfig{
			NumCentroids: 100,
			Nprobe:       8,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Auth: AuthConfig{
			Enabled:       false,
			RequireAdmin:  true,
			PublicMethods: nil,
			AdminMethods:  []string{"Build", "Reset"},
		},
	}
}

// LoadFromEnv loads configuration from environment variables, falling
// back to Default for anything unset or unparsable.
func LoadFromEnv() *Config {
	cfg := Default()

	if host := os.Getenv("MIPS_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("MIPS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("MIPS_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("MIPS_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("MIPS_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("MIPS_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("MIPS_TLS_KEY")
	}

	if layers := os.Getenv("MIPS_HKMEANS_LAYERS"); layers != "" {
		if l, err := strconv.Atoi(layers); err == nil {
			cfg.HKMeans.Layers = l
		}
	}
	if opened := os.Getenv("MIPS_HKMEANS_OPENED_TREES"); opened != "" {
		if o, err := strconv.Atoi(opened); err == nil {
			cfg.HKMeans.OpenedTrees = o
		}
	}
	if aug := os.Getenv("MIPS_HKMEANS_AUGMENTATION"); aug != "" {
		cfg.HKMeans.AugmentationKind = aug
	}
	if m := os.Getenv("MIPS_HKMEANS_M"); m != "" {
		if mv, err := strconv.Atoi(m); err == nil {
			cfg.HKMeans.M = mv
		}
	}
	if u := os.Getenv("MIPS_HKMEANS_U"); u != "" {
		if uv, err := strconv.ParseFloat(u, 64); err == nil {
			cfg.HKMeans.U = uv
		}
	}

	if tables := os.Getenv("MIPS_ALSH_TABLES"); tables != "" {
		if tv, err := strconv.Atoi(tables); err == nil {
			cfg.ALSH.Tables = tv
		}
	}
	if hashes := os.Getenv("MIPS_ALSH_HASHES_PER_TABLE"); hashes != "" {
		if hv, err := strconv.Atoi(hashes); err == nil {
			cfg.ALSH.HashesPerTable = hv
		}
	}
	if width := os.Getenv("MIPS_ALSH_BUCKET_WIDTH"); width != "" {
		if wv, err := strconv.ParseFloat(width, 64); err == nil {
			cfg.ALSH.BucketWidth = wv
		}
	}
	if aug := os.Getenv("MIPS_ALSH_AUGMENTATION"); aug != "" {
		cfg.ALSH.AugmentationKind = aug
	}
	if m := os.Getenv("MIPS_ALSH_M"); m != "" {
		if mv, err := strconv.Atoi(m); err == nil {
			cfg.ALSH.M = mv
		}
	}
	if u := os.Getenv("MIPS_ALSH_U"); u != "" {
		if uv, err := strconv.ParseFloat(u, 64); err == nil {
			cfg.ALSH.U = uv
		}
	}

	if subspaces := os.Getenv("MIPS_SUBPQ_SUBSPACES"); subspaces != "" {
		if sv, err := strconv.Atoi(subspaces); err == nil {
			cfg.SubPQ.Subspaces = sv
		}
	}
	if centroids := os.Getenv("MIPS_SUBPQ_CENTROIDS"); centroids != "" {
		if cv, err := strconv.Atoi(centroids); err == nil {
			cfg.SubPQ.Centroids = cv
		}
	}

	if centroids := os.Getenv("MIPS_IVFFLAT_CENTROIDS"); centroids != "" {
		if cv, err := strconv.Atoi(centroids); err == nil {
			cfg.IVFFlat.NumCentroids = cv
		}
	}
	if nprobe := os.Getenv("MIPS_IVFFLAT_NPROBE"); nprobe != "" {
		if nv, err := strconv.Atoi(nprobe); err == nil {
			cfg.IVFFlat.Nprobe = nv
		}
	}

	if enabled := os.Getenv("MIPS_RATE_LIMIT_ENABLED"); enabled == "false" {
		cfg.RateLimit.Enabled = false
	}
	if rps := os.Getenv("MIPS_RATE_LIMIT_RPS"); rps != "" {
		if rv, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = rv
		}
	}
	if burst := os.Getenv("MIPS_RATE_LIMIT_BURST"); burst != "" {
		if bv, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = bv
		}
	}

	if enabled := os.Getenv("MIPS_AUTH_ENABLED"); enabled == "true" {
		cfg.Auth.Enabled = true
	}
	if secret := os.Getenv("MIPS_AUTH_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if requireAdmin := os.Getenv("MIPS_AUTH_REQUIRE_ADMIN"); requireAdmin == "false" {
		cfg.Auth.RequireAdmin = false
	}

	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	if c.HKMeans.Layers < 1 {
		return fmt.Errorf("invalid hkmeans layers: %d (must be >= 1)", c.HKMeans.Layers)
	}
	if c.HKMeans.OpenedTrees < 1 {
		return fmt.Errorf("invalid hkmeans opened_trees: %d (must be >= 1)", c.HKMeans.OpenedTrees)
	}
	if err := validateAugmentation("hkmeans", c.HKMeans.AugmentationKind, c.HKMeans.M, c.HKMeans.U); err != nil {
		return err
	}

	if c.ALSH.Tables < 1 {
		return fmt.Errorf("invalid alsh tables: %d (must be >= 1)", c.ALSH.Tables)
	}
	if c.ALSH.HashesPerTable < 1 {
		return fmt.Errorf("invalid alsh hashes per table: %d (must be >= 1)", c.ALSH.HashesPerTable)
	}
	if c.ALSH.BucketWidth <= 0 {
		return fmt.Errorf("invalid alsh bucket width: %v (must be > 0)", c.ALSH.BucketWidth)
	}
	if err := validateAugmentation("alsh", c.ALSH.AugmentationKind, c.ALSH.M, c.ALSH.U); err != nil {
		return err
	}

	if c.SubPQ.Subspaces < 1 {
		return fmt.Errorf("invalid subpq subspaces: %d (must be >= 1)", c.SubPQ.Subspaces)
	}
	if c.SubPQ.Centroids < 1 {
		return fmt.Errorf("invalid subpq centroids: %d (must be >= 1)", c.SubPQ.Centroids)
	}

	if c.IVFFlat.NumCentroids < 1 {
		return fmt.Errorf("invalid ivfflat centroids: %d (must be >= 1)", c.IVFFlat.NumCentroids)
	}
	if c.IVFFlat.Nprobe < 1 {
		return fmt.Errorf("invalid ivfflat nprobe: %d (must be >= 1)", c.IVFFlat.Nprobe)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid rate limit rps: %v (must be > 0)", c.RateLimit.RequestsPerSecond)
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but no JWT secret configured")
	}

	return nil
}

// validateAugmentation checks an AugmentationKind string and its
// parameters against the same parameter-domain rules
// internal/mipskernel.NewAugmentation enforces, without this package
// importing mipskernel directly.
func validateAugmentation(component, kind string, m int, u float64) error {
	switch kind {
	case "shrivastava":
		if m < 1 {
			return fmt.Errorf("invalid %s augmentation m: %d (shrivastava requires m >= 1)", component, m)
		}
		if u <= 0 || u >= 1 {
			return fmt.Errorf("invalid %s augmentation u: %v (shrivastava requires u in (0,1))", component, u)
		}
	case "neyshabur", "none", "normalize":
		// m and u are ignored for these variants.
	default:
		return fmt.Errorf("invalid %s augmentation kind: %q (must be shrivastava, neyshabur, none, or normalize)", component, kind)
	}
	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
