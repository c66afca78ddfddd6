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

type Config struct {
	adminPassword  string
	allowLateJoin  bool
	bind           string
	port           int
	prefix         string
	profile        bool
	questionBank   string
	roundCountdown time.Duration
	tlsCert        string
	tlsKey         string
	totalRounds    int
	triviaBase     int
	verbose        bool
	version        bool
	voteReward     int
	winningMode    string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.adminPassword == "" {
		return errors.New("an admin password is required (--admin-password)")
	}
	if c.totalRounds < 1 {
		return fmt.Errorf("invalid round count (must be at least 1): %d", c.totalRounds)
	}
	if c.roundCountdown <= 0 {
		return fmt.Errorf("invalid round countdown (must be positive): %s", c.roundCountdown)
	}
	if c.triviaBase < 1 || c.voteReward < 1 {
		return errors.New("point values must be positive")
	}
	switch strings.ToUpper(c.winningMode) {
	case string(ModeMinority), string(ModeMajority):
	default:
		return fmt.Errorf("invalid winning mode (must be minority or majority): %q", c.winningMode)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) initialMode() WinningMode {
	return WinningMode(strings.ToUpper(c.winningMode))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "quizbox",
		Short:         "A real-time multiplayer quiz session, hosted from a single binary.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.adminPassword, "admin-password", "", "secret required to drive the session as host (env: QUIZBOX_ADMIN_PASSWORD)")
	fs.BoolVar(&cfg.allowLateJoin, "allow-late-join", false, "permit joining in any pre-question phase, not just the lobby (env: QUIZBOX_ALLOW_LATE_JOIN)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUIZBOX_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: QUIZBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: QUIZBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: QUIZBOX_PROFILE)")
	fs.StringVar(&cfg.questionBank, "question-bank", "", "path to a yaml question bank, or empty for the built-in set (env: QUIZBOX_QUESTION_BANK)")
	fs.DurationVar(&cfg.roundCountdown, "round-countdown", 3*time.Second, "delay between a round starting and its question opening (env: QUIZBOX_ROUND_COUNTDOWN)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: QUIZBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: QUIZBOX_TLS_KEY)")
	fs.IntVar(&cfg.totalRounds, "total-rounds", 5, "number of rounds in one game (env: QUIZBOX_TOTAL_ROUNDS)")
	fs.IntVar(&cfg.triviaBase, "trivia-base", 1000, "base points for a correct trivia answer (env: QUIZBOX_TRIVIA_BASE)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: QUIZBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: QUIZBOX_VERSION)")
	fs.IntVar(&cfg.voteReward, "vote-reward", 100, "points for picking a winning option in vote rounds (env: QUIZBOX_VOTE_REWARD)")
	fs.StringVar(&cfg.winningMode, "winning-mode", "minority", "initial winning mode, minority or majority (env: QUIZBOX_WINNING_MODE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("quizbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
