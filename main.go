package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shopify-storefront/internal/app"
	"shopify-storefront/internal/codegen"
	"shopify-storefront/internal/config"
	"shopify-storefront/internal/logger"
	"shopify-storefront/internal/shopify"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// .env has to be in the environment before flags read their defaults
	envLoaded := config.LoadEnvFile(".env")

	if err := newRootCmd(envLoaded).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(envLoaded bool) *cobra.Command {
	option := config.NewOptions()

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Shopify Storefront API data layer and JSON server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	option.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd(option, envLoaded), newIntrospectCmd(option))
	return rootCmd
}

func newServeCmd(option *config.Options, envLoaded bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront API and the revalidation webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Create a root context with the possibility of cancellation
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			server, err := app.NewServer(ctx, option)
			if err != nil {
				return err
			}
			if envLoaded {
				server.Log.Info(".env loaded")
			}

			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(signalCh)

			stopped := make(chan struct{})
			go func() {
				defer close(stopped)
				select {
				case sig := <-signalCh:
					server.Log.Info(fmt.Sprintf("Received signal: %+v", sig))
					server.Shutdown(shutdownTimeout)
					cancel()
				case <-ctx.Done():
				}
			}()

			err = server.Serve()
			cancel()
			<-stopped
			return err
		},
	}
}

func newIntrospectCmd(option *config.Options) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Validate the GraphQL documents and write the Storefront API schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.NewLogger(option.LogLevel())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg, err := codegen.Load(configPath)
			if err != nil {
				return err
			}

			endpoint := cfg.EndpointOr(shopify.Endpoint(option.StoreDomain(), option.APIVersion()))
			client := shopify.NewEndpointClient(endpoint, option.AccessToken(), log.Named("shopify"))
			log.Info("introspecting", zap.String("endpoint", endpoint))

			return codegen.Introspect(cmd.Context(), client, cfg, filepath.Dir(configPath), log)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "codegen.yaml", "path to the codegen config")
	return cmd
}
