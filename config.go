package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const releaseVersion = "1.0.0"

type Config struct {
	bind           string
	port           int
	allowedOrigins []string
	publicURL      string
	postgresURL    string
	jwtKey         string
	sessionTTL     time.Duration
	secureCookies  bool

	aiAPIKey            string
	aiAPIURL            string
	aiModel             string
	aiThinkDelay        time.Duration
	collaboratorTimeout time.Duration

	lobbyTTL     time.Duration
	reapInterval time.Duration
	pingInterval time.Duration
	wikiURL      string

	logLevel  string
	logPretty bool
}

func (c *Config) validate() error {
	if len(c.jwtKey) < 32 {
		return errors.New("--jwt-key must be at least 32 characters")
	}
	if len(c.allowedOrigins) == 0 {
		return errors.New("at least one --allowed-origins entry is required")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	for name, d := range map[string]time.Duration{
		"session-ttl":          c.sessionTTL,
		"collaborator-timeout": c.collaboratorTimeout,
		"lobby-ttl":            c.lobbyTTL,
		"reap-interval":        c.reapInterval,
		"ping-interval":        c.pingInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("--%s must be positive", name)
		}
	}
	if c.aiThinkDelay < 0 {
		return errors.New("--ai-think-delay must not be negative")
	}
	return nil
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.bind, c.port)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WHODAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "whodat",
		Short:         "Game server for Who Dat?, a multiplayer guess-your-own-identity game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WHODAT_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WHODAT_PORT)")
	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", []string{"http://localhost:3000"}, "origins allowed to call the server (env: WHODAT_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.publicURL, "public-url", "http://localhost:3000", "frontend url used in room join links (env: WHODAT_PUBLIC_URL)")
	fs.StringVar(&cfg.postgresURL, "postgres-url", "", "postgres connection string, rooms are kept in memory when empty (env: WHODAT_POSTGRES_URL)")
	fs.StringVar(&cfg.jwtKey, "jwt-key", "", "key signing session tokens (env: WHODAT_JWT_KEY)")
	fs.DurationVar(&cfg.sessionTTL, "session-ttl", 7*24*time.Hour, "lifetime of a guest session (env: WHODAT_SESSION_TTL)")
	fs.BoolVar(&cfg.secureCookies, "secure-cookies", true, "mark session cookies secure (env: WHODAT_SECURE_COOKIES)")
	fs.StringVar(&cfg.aiAPIKey, "ai-api-key", "", "chat completions api key, bots and judging fall back without it (env: WHODAT_AI_API_KEY)")
	fs.StringVar(&cfg.aiAPIURL, "ai-api-url", "https://api.openai.com/v1", "chat completions base url (env: WHODAT_AI_API_URL)")
	fs.StringVar(&cfg.aiModel, "ai-model", "gpt-4o-mini", "chat completions model (env: WHODAT_AI_MODEL)")
	fs.DurationVar(&cfg.aiThinkDelay, "ai-think-delay", 2*time.Second, "pause before a bot plays its turn (env: WHODAT_AI_THINK_DELAY)")
	fs.DurationVar(&cfg.collaboratorTimeout, "collaborator-timeout", 20*time.Second, "deadline for each ai or wikipedia call (env: WHODAT_COLLABORATOR_TIMEOUT)")
	fs.DurationVar(&cfg.lobbyTTL, "lobby-ttl", time.Hour, "age after which idle lobbies are removed (env: WHODAT_LOBBY_TTL)")
	fs.DurationVar(&cfg.reapInterval, "reap-interval", 5*time.Minute, "how often stale lobbies are looked for (env: WHODAT_REAP_INTERVAL)")
	fs.DurationVar(&cfg.pingInterval, "ping-interval", 30*time.Second, "websocket keepalive interval (env: WHODAT_PING_INTERVAL)")
	fs.StringVar(&cfg.wikiURL, "wiki-url", "https://en.wikipedia.org", "wikipedia base url (env: WHODAT_WIKI_URL)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "trace, debug, info, warn or error (env: WHODAT_LOG_LEVEL)")
	fs.BoolVar(&cfg.logPretty, "log-pretty", false, "human readable log output (env: WHODAT_LOG_PRETTY)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("whodat v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
