package cli

import (
	"context"
	"fmt"

	"atstailor/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server exposing the tailoring operations.

Available endpoints:
- POST /tailor: Tailor a résumé for a job description (?format=text|markdown|resume)
- POST /extract: Extract the keyword set of a job description
- POST /score: Score a résumé against a job description
- GET /history, /history/summary, /history/{id}: Recorded runs
- GET /health: Health check endpoint
- GET /stats: Server, rate limiting and cache statistics

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveFlags struct {
	port, host, tlsMode, certFile, keyFile, caFile string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.tlsMode, "tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.caFile, "ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	override := func(target *string, value string) {
		if value != "" {
			*target = value
		}
	}
	override(&cfg.Server.Port, serveFlags.port)
	override(&cfg.Server.Host, serveFlags.host)
	override(&cfg.Server.TLS.Mode, serveFlags.tlsMode)
	override(&cfg.Server.TLS.CertFile, serveFlags.certFile)
	override(&cfg.Server.TLS.KeyFile, serveFlags.keyFile)
	override(&cfg.Server.TLS.CAFile, serveFlags.caFile)

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	a, err := newApp(ctx, cfg, logger, appOptions{WatchDictionary: true, Observability: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.LogError(err, "Failed to release resources")
		}
	}()

	srv := server.NewServer(cfg.Server, server.Options{
		Version:       Version,
		Service:       a.service,
		Observability: a.om,
		CacheStats:    a.cacheStats(),
		Logger:        logger,
	})
	return srv.Start(ctx)
}
