package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/porthorian/casclient"
	"github.com/porthorian/casclient/pkg/crypto"
	"github.com/porthorian/casclient/pkg/ssl"
)

type validateConfig struct {
	ServerURL        string
	Ticket           string
	Service          string
	Variant          string
	Renew            bool
	ProxyCallbackURL string
	PrivateKeyPath   string
	PrivateKeyPass   string
	Insecure         bool
	Timeout          time.Duration
}

func init() {
	rootCmd.AddCommand(newValidateCommand())
}

func newValidateCommand() *cobra.Command {
	cfg := validateConfig{
		Variant: "serviceValidate",
		Timeout: 30 * time.Second,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a service ticket against a CAS server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(cfg.ServerURL) == "" {
				return errors.New("missing CAS server URL: set --server-url")
			}
			if strings.TrimSpace(cfg.Ticket) == "" || strings.TrimSpace(cfg.Service) == "" {
				return errors.New("both --ticket and --service are required")
			}

			clientCfg := casclient.Config{
				ServerURLPrefix:  cfg.ServerURL,
				ProxyCallbackURL: cfg.ProxyCallbackURL,
				Renew:            cfg.Renew,
				Runtime: casclient.RuntimeConfig{
					Protocol: cfg.Variant,
					TLS: ssl.Config{
						IgnoreSSLFailures: cfg.Insecure,
					},
				},
			}

			if path := strings.TrimSpace(cfg.PrivateKeyPath); path != "" {
				key, err := crypto.LoadPrivateKeyPEM(path, cfg.PrivateKeyPass)
				if err != nil {
					return fmt.Errorf("load private key: %w", err)
				}
				clientCfg.PrivateKey = key
			}

			client, err := casclient.NewDefault(clientCfg)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := client.Close(); closeErr != nil {
					cmd.PrintErrf("warning: failed to close client cleanly: %v\n", closeErr)
				}
			}()

			ctx := cmd.Context()
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			assertion, err := client.ValidateTicket(ctx, cfg.Ticket, cfg.Service)
			if err != nil {
				return fmt.Errorf("validate ticket: %w", err)
			}

			encoded, err := json.MarshalIndent(assertion, "", "  ")
			if err != nil {
				return fmt.Errorf("encode assertion: %w", err)
			}

			cmd.Printf("%s\n", encoded)
			return nil
		},
	}

	validateCmd.Flags().StringVar(&cfg.ServerURL, "server-url", "", "CAS server URL prefix, for example https://cas.example.org/cas")
	validateCmd.Flags().StringVar(&cfg.Ticket, "ticket", "", "Service ticket to validate.")
	validateCmd.Flags().StringVar(&cfg.Service, "service", "", "Service URL the ticket was issued for.")
	validateCmd.Flags().StringVar(&cfg.Variant, "variant", cfg.Variant, "Validation endpoint variant. Supported: serviceValidate, proxyValidate.")
	validateCmd.Flags().BoolVar(&cfg.Renew, "renew", false, "Require the ticket to come from a fresh authentication.")
	validateCmd.Flags().StringVar(&cfg.ProxyCallbackURL, "proxy-callback-url", "", "Callback URL the CAS server posts proxy-granting tickets to.")
	validateCmd.Flags().StringVar(&cfg.PrivateKeyPath, "private-key", "", "PEM private key used to decrypt proxy-granting tickets delivered in the response body.")
	validateCmd.Flags().StringVar(&cfg.PrivateKeyPass, "private-key-password", "", "Password for an encrypted private key block.")
	validateCmd.Flags().BoolVar(&cfg.Insecure, "insecure", false, "Skip TLS certificate verification on the CAS server connection.")
	validateCmd.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Overall timeout for the validation request.")

	return validateCmd
}
