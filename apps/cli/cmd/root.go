package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/config"
	"github.com/abdul-hamid-achik/pollhttp/packages/history"
	"github.com/abdul-hamid-achik/pollhttp/packages/http"
	"github.com/abdul-hamid-achik/pollhttp/packages/transport"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	poolSizeFlag int
	localIPFlag  string
	insecureFlag bool
	noColorFlag  bool
	verboseFlag  int // 0=off, 1=-v, 2=-vv debug logs
	historyFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "pollhttp",
	Short: "Non-blocking HTTP requests from a fixed transport pool",
	Long: `pollhttp sends HTTP/1.1 requests over a fixed pool of transports and
collects responses by polling, never blocking on the network. Requests
that get no first byte within 60 seconds end as NoResponse.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits with the code the command asked for
func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitUsageError)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", getEnvString("POLLHTTP_CONFIG", ""), "Path to config file (env: POLLHTTP_CONFIG)")
	flags.IntVar(&poolSizeFlag, "pool-size", getEnvInt("POLLHTTP_POOL_SIZE", 0), "Maximum requests in flight (env: POLLHTTP_POOL_SIZE)")
	flags.StringVar(&localIPFlag, "local-ip", getEnvString("POLLHTTP_LOCAL_IP", ""), `Host header value: "auto", "iface:<name>" or an address (env: POLLHTTP_LOCAL_IP)`)
	flags.BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("POLLHTTP_INSECURE", false), "Skip TLS certificate verification (env: POLLHTTP_INSECURE)")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("POLLHTTP_NO_COLOR", false), "Disable colored output (env: POLLHTTP_NO_COLOR)")
	flags.CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v), debug logs (-vv)")
	flags.StringVar(&historyFlag, "history", getEnvString("POLLHTTP_HISTORY", ""), "Record responses to this SQLite database (env: POLLHTTP_HISTORY)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// loadSettings reads the config file and applies the global flags on top
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	fileCfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}

	overrides := &config.Config{
		PoolSize: poolSizeFlag,
		LocalIP:  localIPFlag,
		History:  historyFlag,
	}
	flags := cmd.Flags()
	if flags.Changed("insecure") || insecureFlag {
		overrides.Insecure = config.BoolPtr(insecureFlag)
	}
	if flags.Changed("no-color") || noColorFlag {
		overrides.NoColor = config.BoolPtr(noColorFlag)
	}
	if verboseFlag > 0 {
		overrides.Verbose = config.BoolPtr(true)
	}

	cfg := fileCfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("invalid config: %w", err))
	}
	return cfg, nil
}

// newLogger writes warnings to stderr, and debug records with -vv
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag > 1 {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func localIPFor(setting string) transport.LocalIP {
	switch {
	case setting == "" || setting == config.DefaultLocalIP:
		return transport.OutboundIP{}
	case strings.HasPrefix(setting, "iface:"):
		return transport.InterfaceIP{Name: strings.TrimPrefix(setting, "iface:")}
	default:
		return transport.StaticIP(setting)
	}
}

func transportOptions(cfg *config.Config) []transport.TCPOption {
	opts := []transport.TCPOption{
		transport.WithDialTimeout(cfg.DialTimeout),
		transport.WithBufferUntilClose(cfg.GetBufferUntilClose()),
		transport.WithInsecureSkipVerify(cfg.GetInsecure()),
	}
	if len(cfg.TLSPorts) > 0 {
		opts = append(opts, transport.WithTLSPorts(cfg.TLSPorts...))
	}
	return opts
}

// session is an engine plus whatever it records into
type session struct {
	engine *http.Engine[*transport.TCP]
	store  *history.Store
	logger *slog.Logger
}

func (s *session) Close() {
	s.engine.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("closing history", slog.Any("error", err))
		}
	}
}

// newSession builds a TCP engine from cfg. extra observers run after the
// history recorder.
func newSession(cfg *config.Config, logger *slog.Logger, extra ...http.Observer) (*session, error) {
	s := &session{logger: logger}

	opts := []http.Option{
		http.WithPoolSize(cfg.PoolSize),
		http.WithLogger(logger),
		http.WithDefaultHeaders(cfg.HeaderLines()...),
	}
	if cfg.History != "" {
		store, err := history.Open(cfg.History)
		if err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
		s.store = store
		opts = append(opts, http.WithObserver(store.Observer(logger)))
	}
	for _, obs := range extra {
		opts = append(opts, http.WithObserver(obs))
	}

	// Resolved once; the Host header does not change during a session
	localIP := transport.StaticIP(localIPFor(cfg.LocalIP).LocalIP())
	logger.Debug("local address", slog.String("ip", string(localIP)))

	tcpOpts := transportOptions(cfg)
	s.engine = http.NewEngine(
		func() *transport.TCP { return transport.NewTCP(tcpOpts...) },
		localIP,
		opts...,
	)
	return s, nil
}
