package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Sternrassler/pokeapi-client/pkg/client"
	"github.com/Sternrassler/pokeapi-client/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultUserAgent = "pokeapi-client/0.1.0 (+https://github.com/Sternrassler/pokeapi-client)"

// app carries the state shared by all subcommands of one invocation.
type app struct {
	v      *viper.Viper
	logger zerolog.Logger
	redis  *redis.Client
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:          "pokeapi",
		Short:        "Query PokeAPI through a caching client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.redis != nil {
				a.redis.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	defaults := client.DefaultConfig(defaultUserAgent)
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("base-url", defaults.BaseURL, "API base URL")
	flags.String("user-agent", defaultUserAgent, "User-Agent sent with every request")
	flags.Duration("timeout", defaults.Timeout, "timeout per HTTP attempt")
	flags.Int("page-size", defaults.PageSize, "items per list page")
	flags.Float64("rate-limit", defaults.RateLimit, "requests per second (0 disables)")
	flags.Int("max-retries", defaults.MaxRetries, "retries after a failed attempt")
	flags.Int("cache-size", defaults.Cache.MaxEntries, "in-memory cache entries (0 is unbounded)")
	flags.Duration("cache-ttl", defaults.Cache.TTL, "in-memory cache TTL (0 never expires)")
	flags.String("redis-url", "", "Redis address for the shared payload cache (empty disables)")
	flags.Duration("payload-ttl", defaults.PayloadTTL, "payload cache TTL in Redis")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Bool("pretty", false, "human-readable logs")

	root.AddCommand(
		newGetCmd(a),
		newListCmd(a),
		newNameCmd(a),
		newSpeciesNameCmd(a),
		newServeCmd(a),
	)
	return root
}

// init loads .env, binds flags and POKEAPI_* variables, and sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix("POKEAPI")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	a.logger = logging.Setup(logging.Config{
		Level:  logging.LogLevel(a.v.GetString("log-level")),
		Pretty: a.v.GetBool("pretty"),
		Output: os.Stderr,
	})
	return nil
}

// clientConfig maps the bound settings onto a client configuration.
func (a *app) clientConfig() client.Config {
	cfg := client.DefaultConfig(a.v.GetString("user-agent"))
	cfg.BaseURL = a.v.GetString("base-url")
	cfg.Timeout = a.v.GetDuration("timeout")
	cfg.PageSize = a.v.GetInt("page-size")
	cfg.RateLimit = a.v.GetFloat64("rate-limit")
	cfg.MaxRetries = a.v.GetInt("max-retries")
	cfg.Cache.MaxEntries = a.v.GetInt("cache-size")
	cfg.Cache.TTL = a.v.GetDuration("cache-ttl")
	cfg.PayloadTTL = a.v.GetDuration("payload-ttl")
	return cfg
}

// newClient builds the client, connecting to Redis when configured.
func (a *app) newClient(ctx context.Context) (*client.Client, error) {
	cfg := a.clientConfig()

	if addr := a.v.GetString("redis-url"); addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: addr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
		}
		a.logger.Info().Str("addr", addr).Msg("Connected to Redis")
		cfg.Redis = a.redis
	}

	return client.New(cfg)
}
