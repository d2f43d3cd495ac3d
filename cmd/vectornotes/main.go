package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/vectornotes/internal/profile"
	"github.com/hrygo/vectornotes/server"
	"github.com/hrygo/vectornotes/server/auth"
	"github.com/hrygo/vectornotes/store"
	"github.com/hrygo/vectornotes/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "vectornotes",
		Short: `A notes service with semantic search over your own notes.`,
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile := loadProfile()
			setupLogger(instanceProfile)
			if err := instanceProfile.Validate(); err != nil {
				slog.Error("invalid configuration", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithCancel(context.Background())
			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				cancel()
				slog.Error("failed to create db driver", "error", err)
				return
			}

			storeInstance := store.New(dbDriver, instanceProfile)
			if err := storeInstance.Migrate(ctx); err != nil {
				cancel()
				slog.Error("failed to migrate", "error", err)
				return
			}

			s, err := server.NewServer(ctx, instanceProfile, storeInstance)
			if err != nil {
				cancel()
				slog.Error("failed to create server", "error", err)
				return
			}

			c := make(chan os.Signal, 1)
			// Trigger graceful shutdown on SIGINT or SIGTERM.
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)

			if err := s.Start(ctx); err != nil {
				slog.Error("failed to start server", "error", err)
				cancel()
				return
			}

			printGreetings(instanceProfile)

			go func() {
				<-c
				s.Shutdown(ctx)
				cancel()
			}()

			// Wait for CTRL-C.
			<-ctx.Done()
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for a user id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile := loadProfile()
			secret := instanceProfile.AuthJWTSecret
			if secret == "" {
				secret = viper.GetString("dev-secret")
			}
			authenticator, err := auth.NewAuthenticator(secret, instanceProfile.AuthJWTAudience)
			if err != nil {
				return err
			}
			token, err := authenticator.GenerateToken(viper.GetString("user"), viper.GetDuration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
)

// loadProfile reads VECTORNOTES_* variables, then applies flags.
func loadProfile() *profile.Profile {
	instanceProfile := &profile.Profile{}
	instanceProfile.FromEnv()
	instanceProfile.Mode = viper.GetString("mode")
	instanceProfile.Addr = viper.GetString("addr")
	instanceProfile.Port = viper.GetInt("port")
	instanceProfile.Data = viper.GetString("data")
	instanceProfile.Driver = viper.GetString("driver")
	instanceProfile.DSN = viper.GetString("dsn")
	instanceProfile.Version = version
	if backend := viper.GetString("vector-backend"); backend != "" {
		instanceProfile.VectorBackend = backend
	}
	return instanceProfile
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

// version is set at build time.
var version = "0.1.0"

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("ttl", 24*time.Hour)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("vector-backend", "", "vector index backend, qdrant, pgvector or memory")

	tokenCmd.Flags().String("user", "", "user id put in the token subject")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	tokenCmd.Flags().String("dev-secret", auth.DevSecret, "secret used when VECTORNOTES_AUTH_JWT_SECRET is unset")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "vector-backend"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	for _, name := range []string{"user", "ttl", "dev-secret"} {
		if err := viper.BindPFlag(name, tokenCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("vectornotes")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("vectornotes %s started successfully!\n", p.Version)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Vector backend: %s\n", p.VectorBackend)
	fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
