package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "datatrail/internal/jwt_token"
)

func newTokenCmd() *cobra.Command {
	var (
		sub jwttoken.Subject
		ttl time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with the configured secret",
		Long: "Mints an HS256 access token for local development and scripted checks.\n" +
			"The token is signed with auth.jwt_secret, so only environments sharing that secret accept it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if sub.UserID <= 0 {
				return errors.New("--user-id must be a positive identification number")
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenTTL
			}
			token, claims, err := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).GenerateAccessToken(sub, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			return renderValue(stdout, output, map[string]any{
				"access_token": token,
				"token_id":     claims.ID,
				"expires_at":   claims.ExpiresAt.Time,
			}, token+"\n")
		},
	}

	cmd.Flags().Int64Var(&sub.UserID, "user-id", 0, "Identification number of the user (required)")
	cmd.Flags().StringVar(&sub.Nombres, "nombres", "", "Given names recorded as the actor")
	cmd.Flags().StringVar(&sub.Apellidos, "apellidos", "", "Surnames recorded as the actor")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.access_token_ttl)")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
