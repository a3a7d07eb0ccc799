package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/yatra/internal/azure"
	"github.com/rbright/yatra/internal/config"
	"github.com/rbright/yatra/internal/server"
)

// commandServe runs the credential-holding proxy until ctx is cancelled.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	if missing := cfg.Azure.MissingCredentials(); len(missing) > 0 {
		fmt.Fprintf(r.Stderr, "error: missing credentials: %s\n", strings.Join(missing, ", "))
		return 1
	}

	upstream := azure.NewClient(azure.Credentials{
		TranslatorKey:      cfg.Azure.TranslatorKey,
		TranslatorRegion:   cfg.Azure.TranslatorRegion,
		TranslatorEndpoint: cfg.Azure.TranslatorEndpoint,
		SpeechKey:          cfg.Azure.SpeechKey,
		SpeechRegion:       cfg.Azure.SpeechRegion,
		SpeechEndpoint:     cfg.Azure.SpeechEndpoint,
	}, nil)

	fmt.Fprintf(r.Stdout, "yatra proxy on %s (grpc health %s)\n", cfg.Serve.HTTPAddr, cfg.Serve.GRPCAddr)
	if err := server.New(logger, upstream).Run(ctx, cfg.Serve.HTTPAddr, cfg.Serve.GRPCAddr); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("proxy failed", "error", err.Error())
		return 1
	}
	return 0
}
