package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	minWordsPerPlayer     = 2
	maxWordsPerPlayer     = 50
	defaultWordsPerPlayer = 6
	defaultIdentityTTL    = 128 * 24 * time.Hour
)

type Config struct {
	bind           string
	game           string
	identityFile   string
	identityTTL    time.Duration
	name           string
	observer       bool
	port           int
	prefix         string
	profile        bool
	resume         bool
	server         string
	status         bool
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
	webURL         string
	wordsMode      string
	wordsPerPlayer int
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.wordsPerPlayer < minWordsPerPlayer || c.wordsPerPlayer > maxWordsPerPlayer {
		return fmt.Errorf("invalid words per player (must be between %d-%d inclusive): %d",
			minWordsPerPlayer, maxWordsPerPlayer, c.wordsPerPlayer)
	}
	if _, err := c.mode(); err != nil {
		return err
	}
	if c.game != "" && c.resume {
		return errors.New("--game and --resume cannot be used together")
	}
	if c.identityTTL <= 0 {
		return fmt.Errorf("invalid identity ttl (must be positive): %s", c.identityTTL)
	}
	if _, err := wsURL(c.server); err != nil {
		return err
	}
	if c.webURL != "" {
		if u, err := url.Parse(c.webURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid web url: %q", c.webURL)
		}
	}

	return nil
}

func (c *Config) mode() (WordsMode, error) {
	switch strings.ToLower(c.wordsMode) {
	case "players":
		return WordsFromPlayers, nil
	case "dict":
		return WordsFromDict, nil
	default:
		return "", fmt.Errorf("invalid words mode (must be players or dict): %q", c.wordsMode)
	}
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// gameID accepts either a bare identifier or a full game link.
func (c *Config) gameID() string {
	id := strings.TrimSpace(c.game)
	if i := strings.LastIndex(id, "game/"); i >= 0 {
		id = id[i+len("game/"):]
	}

	return strings.Trim(id, "/")
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("HAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "hat",
		Short:         "Terminal client for the Hat word-guessing party game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Play(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "127.0.0.1", "address to bind the status page to (env: HAT_BIND)")
	fs.StringVarP(&cfg.game, "game", "g", "", "game id or link to join (env: HAT_GAME)")
	fs.StringVar(&cfg.identityFile, "identity-file", defaultIdentityPath(), "file to persist player identity in (env: HAT_IDENTITY_FILE)")
	fs.DurationVar(&cfg.identityTTL, "identity-ttl", defaultIdentityTTL, "how long persisted identity stays valid (env: HAT_IDENTITY_TTL)")
	fs.StringVarP(&cfg.name, "name", "n", "", "your name for other players (env: HAT_NAME)")
	fs.BoolVar(&cfg.observer, "observer", false, "join as an observer, not a player (env: HAT_OBSERVER)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port for the status page (env: HAT_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to status page URLs (env: HAT_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers on the status page (env: HAT_PROFILE)")
	fs.BoolVarP(&cfg.resume, "resume", "r", false, "rejoin the last game you played (env: HAT_RESUME)")
	fs.StringVarP(&cfg.server, "server", "s", "ws://localhost:8080", "game server base url (env: HAT_SERVER)")
	fs.BoolVar(&cfg.status, "status", false, "serve a local status page (env: HAT_STATUS)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate for the status page (env: HAT_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile for the status page (env: HAT_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: HAT_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: HAT_VERSION)")
	fs.StringVar(&cfg.webURL, "web-url", "", "base url used for shareable game links (env: HAT_WEB_URL)")
	fs.StringVar(&cfg.wordsMode, "words-mode", "players", "where words come from when creating a game: players or dict (env: HAT_WORDS_MODE)")
	fs.IntVarP(&cfg.wordsPerPlayer, "words-per-player", "w", defaultWordsPerPlayer, "words each player puts in the hat when creating a game (env: HAT_WORDS_PER_PLAYER)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("hat v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
