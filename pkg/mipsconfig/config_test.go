package mipsconfig

import "testing"

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("MIPS_PORT", "7001")
	t.Setenv("MIPS_HKMEANS_LAYERS", "3")
	t.Setenv("MIPS_ALSH_BUCKET_WIDTH", "2.5")
	t.Setenv("MIPS_RATE_LIMIT_ENABLED", "false")
	t.Setenv("MIPS_HKMEANS_AUGMENTATION", "neyshabur")
	t.Setenv("MIPS_ALSH_AUGMENTATION", "none")

	cfg := LoadFromEnv()
	if cfg.Server.Port != 7001 {
		t.Errorf("Server.Port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.HKMeans.Layers != 3 {
		t.Errorf("HKMeans.Layers = %d, want 3", cfg.HKMeans.Layers)
	}
	if cfg.ALSH.BucketWidth != 2.5 {
		t.Errorf("ALSH.BucketWidth = %v, want 2.5", cfg.ALSH.BucketWidth)
	}
	if cfg.RateLimit.Enabled {
		t.Errorf("RateLimit.Enabled = true, want false")
	}
	if cfg.HKMeans.AugmentationKind != "neyshabur" {
		t.Errorf("HKMeans.AugmentationKind = %q, want neyshabur", cfg.HKMeans.AugmentationKind)
	}
	if cfg.ALSH.AugmentationKind != "none" {
		t.Errorf("ALSH.AugmentationKind = %q, want none", cfg.ALSH.AugmentationKind)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("overridden config should still validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}

	cfg = Default()
	cfg.HKMeans.Layers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid hkmeans layers")
	}

	cfg = Default()
	cfg.ALSH.BucketWidth = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid alsh bucket width")
	}

	cfg = Default()
	cfg.HKMeans.AugmentationKind = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown hkmeans augmentation kind")
	}

	cfg = Default()
	cfg.ALSH.AugmentationKind = "shrivastava"
	cfg.ALSH.U = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for shrivastava U out of (0,1)")
	}
}

func TestAddressFormatsHostPort(t *testing.T) {
	sc := ServerConfig{Host: "127.0.0.1", Port: 9000}
	if got, want := sc.Address(), "127.0.0.1:9000"; got != want {
		t.Fatalf("Address() = %q, want %q", got, want)
	}
}
