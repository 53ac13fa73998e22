package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"runtelemetry/internal/config"
	"runtelemetry/internal/security"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage reporter tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newTokenKeygenCmd(), newTokenIssueCmd())
	return cmd
}

func newTokenKeygenCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ES256 key pair for signing reporter tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			privPEM, pubPEM, err := security.GenerateKeyPair()
			if err != nil {
				return fmt.Errorf("keygen: %w", err)
			}
			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return fmt.Errorf("keygen: %w", err)
			}
			privPath := filepath.Join(outDir, "private.pem")
			pubPath := filepath.Join(outDir, "public.pem")
			if _, err := os.Stat(privPath); err == nil {
				return fmt.Errorf("keygen: %s already exists", privPath)
			}
			if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
				return fmt.Errorf("keygen: %w", err)
			}
			if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
				return fmt.Errorf("keygen: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "JWT_PRIVATE_KEY=%s\nJWT_PUBLIC_KEY=%s\n", privPath, pubPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for private.pem and public.pem")
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		subject string
		entity  string
		key     string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a reporter token",
		Long: "Issue signs a reporter token with JWT_PRIVATE_KEY (or --key) using JWT_ISSUER, JWT_AUDIENCE and JWT_TTL " +
			"from the environment or .env. With --entity the token only reports runs of that entity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			key = firstNonEmpty(key, cfg.JWTPrivateKey)
			if key == "" {
				return errors.New("token: JWT_PRIVATE_KEY or --key is required")
			}
			signer, err := security.ParsePrivateKey(key)
			if err != nil {
				return fmt.Errorf("token: private key: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL()
			}
			provider := security.NewTokenProvider(signer, nil, cfg.JWTIssuer, cfg.JWTAudience, ttl)
			token, expiresAt, err := provider.Issue(subject, entity)
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "reporter name (host, CI job)")
	cmd.Flags().StringVar(&entity, "entity", "", "restrict the token to this entity")
	cmd.Flags().StringVar(&key, "key", "", "private key PEM or path (default JWT_PRIVATE_KEY)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_TTL)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
