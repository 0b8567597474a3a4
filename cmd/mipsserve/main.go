// Command mipsserve runs the mipsindex gRPC service, grounded on the
// teacher's cmd/server/main.go: load config, build the server, install
// signal-driven graceful shutdown. The teacher also starts a REST
// gateway and prints an HNSW/cache configuration banner; this service
// exposes only the gRPC surface, so those sections are dropped rather
// than carried over unused.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	grpcapi "github.com/devraj-iyer/mipsindex/pkg/mipsapi/grpc"
	"github.com/devraj-iyer/mipsindex/pkg/mipsconfig"
	"github.com/devraj-iyer/mipsindex/pkg/mipsobs"
)

var version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
		logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("mipsserve v%s\n", version)
		os.Exit(0)
	}

	cfg := mipsconfig.LoadFromEnv()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	level := mipsobs.ParseLevel(*logLevel)
	if *logLevel == "" {
		level = mipsobs.ParseLevel(os.Getenv("MIPS_LOG_LEVEL"))
	}
	logger := mipsobs.New(level, os.Stdout)
	metrics := mipsobs.NewMetrics()

	server, err := grpcapi.NewServer(cfg, logger, metrics)
	if err != nil {
		log.Fatalf("failed to create gRPC server: %v", err)
	}

	rateLimiter := grpcapi.NewRateLimiter(cfg.RateLimit, metrics)
	authCfg := grpcapi.AuthConfig{
		Enabled:       cfg.Auth.Enabled,
		JWTSecret:     cfg.Auth.JWTSecret,
		RequireAdmin:  cfg.Auth.RequireAdmin,
		PublicMethods: toSet(cfg.Auth.PublicMethods),
		AdminMethods:  toSet(cfg.Auth.AdminMethods),
	}

	logger.Infof("starting mipsindex gRPC server on %s", cfg.Server.Address())
	if err := server.Start(grpcapi.UnaryAuthInterceptor(authCfg), rateLimiter.UnaryInterceptor()); err != nil {
		log.Fatalf("failed to start gRPC server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.Infof("received signal %v, shutting down", sig)

	if err := server.Stop(); err != nil {
		logger.Errorf("error stopping gRPC server: %v", err)
	}
	logger.Info("mipsindex gRPC server stopped", nil)
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
