// Command token-issuer prints a bearer token for the course API, signed with
// the configured auth.jwt_secret.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gnicolai/AI-Courses-Generator/internal/config"
	"github.com/gnicolai/AI-Courses-Generator/internal/service/auth"
)

func main() {
	subject := flag.String("subject", "operator", "token subject")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := issue(context.Background(), cfg.Auth, *subject, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func issue(ctx context.Context, cfg config.AuthConfig, subject string, out io.Writer) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set, authentication is disabled")
	}
	svc, err := auth.NewJWTService(cfg)
	if err != nil {
		return err
	}
	token, err := svc.GenerateToken(ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
