// Package config defines the server's cobra+viper command line, grounded
// on the teacher pack's Seednode-partybox main/config pattern: pflag-backed
// fields bound through viper so every option is also settable by
// environment variable.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every recognized option from spec.md §6 plus the transport
// options a deployable server needs.
type Config struct {
	Bind string
	Port int

	TurnDuration         time.Duration
	TalonPause           time.Duration
	RecapPause           time.Duration
	MatchTargetInitial   int
	MatchTargetStep      int
	InviteTTL            time.Duration
	ReconnectTokenTTL    time.Duration
	MaxSpectatorsPerRoom int
	DevModeEnabled       bool

	AllowedOrigins []string
	AllowAnyOrigin bool

	DatabaseURL string

	Verbose bool
	Version bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.MatchTargetInitial <= 0 {
		return errors.New("match-target-initial must be positive")
	}
	if c.MatchTargetStep <= 0 {
		return errors.New("match-target-step must be positive")
	}
	return nil
}

const releaseVersion = "0.1.0"

// NewCmd builds the root cobra command. run is invoked once flags and env
// vars have been applied and Validate has passed.
func NewCmd(cfg *Config, run func(cmd *cobra.Command, args []string, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ZING")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "zingserver",
		Short:         "Realtime server for the Zing trick-taking card game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, args, cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: ZING_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: ZING_PORT)")

	fs.DurationVar(&cfg.TurnDuration, "turn-duration", 12*time.Second, "per-turn timer duration (env: ZING_TURN_DURATION)")
	fs.DurationVar(&cfg.TalonPause, "talon-pause", 1500*time.Millisecond, "visual pause after a talon capture (env: ZING_TALON_PAUSE)")
	fs.DurationVar(&cfg.RecapPause, "recap-pause", 9*time.Second, "visual pause after round_end (env: ZING_RECAP_PAUSE)")
	fs.IntVar(&cfg.MatchTargetInitial, "match-target-initial", 101, "cumulative score that wins a match (env: ZING_MATCH_TARGET_INITIAL)")
	fs.IntVar(&cfg.MatchTargetStep, "match-target-step", 50, "amount the target is raised when both teams cross it in one round (env: ZING_MATCH_TARGET_STEP)")
	fs.DurationVar(&cfg.InviteTTL, "invite-ttl", 5*time.Minute, "friend invite expiry (env: ZING_INVITE_TTL)")
	fs.DurationVar(&cfg.ReconnectTokenTTL, "reconnect-token-ttl", 10*time.Minute, "reconnect token expiry (env: ZING_RECONNECT_TOKEN_TTL)")
	fs.IntVar(&cfg.MaxSpectatorsPerRoom, "max-spectators-per-room", 8, "spectator cap per room (env: ZING_MAX_SPECTATORS_PER_ROOM)")
	fs.BoolVar(&cfg.DevModeEnabled, "dev-mode", false, "enable intent_play_card_as impersonation (env: ZING_DEV_MODE)")

	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origin", nil, "allowed websocket Origin header, repeatable (env: ZING_ALLOWED_ORIGIN)")
	fs.BoolVar(&cfg.AllowAnyOrigin, "allow-any-origin", false, "skip origin checking entirely, for local development (env: ZING_ALLOW_ANY_ORIGIN)")

	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "Postgres connection string for the repository layer (env: ZING_DATABASE_URL)")

	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: ZING_VERBOSE)")
	fs.BoolVarP(&cfg.Version, "version", "V", false, "display version and exit (env: ZING_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("zingserver v{{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
