package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"proxcheck/internal/config"
	"proxcheck/internal/domain"
	"proxcheck/internal/geolite"
	"proxcheck/internal/jobs/checker"
	"proxcheck/internal/jobs/checker/judges"
	"proxcheck/internal/support"
)

type options struct {
	settingsPath  string
	proxiesPath   string
	judges        string
	proxyLimit    int
	protocolLimit int
	protocols     []domain.Protocol
	timeout       time.Duration
	geoliteDB     string
	jsonOutput    bool
	debug         bool
}

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}

	if err := config.ReadSettings(opts.settingsPath); err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	cfg := config.GetConfig()
	setLogLevel(cfg.LogLevel, opts.debug)

	proxies, err := readProxies(opts.proxiesPath, os.Stdin)
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return errors.New("no valid proxies in input")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	judgeURLs := cfg.Checker.Judges
	if opts.judges != "" {
		judgeURLs = splitList(opts.judges)
	}

	judgeSet, err := judges.NewSet(ctx, &http.Client{Timeout: cfg.JudgeTimeout()}, judgeURLs)
	if err != nil {
		return fmt.Errorf("failed to set up judges: %w", err)
	}
	for _, judge := range judgeSet.Judges() {
		log.Debug("Using judge", "judge", judge)
	}

	checkOpts := checker.Options{
		ProxyLimit:    opts.proxyLimit,
		ProtocolLimit: opts.protocolLimit,
		Timeout:       opts.timeout,
		Protocols:     opts.protocols,
	}
	logCapacity(checkOpts)

	results, err := checker.New(judgeSet, nil).CheckProxies(ctx, proxies, checkOpts)
	if err != nil {
		return fmt.Errorf("proxy check failed: %w", err)
	}

	locator := openLocator(geoliteDatabase(opts.geoliteDB, cfg.GeoLite.Database))
	defer func() {
		if err := locator.Close(); err != nil {
			log.Warn("error closing geolite database", "error", err)
		}
	}()

	return writeResults(os.Stdout, results, locator, opts.jsonOutput)
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var (
		opts      options
		protocols string
	)
	fs.StringVar(&opts.settingsPath, "settings", support.GetEnv("PROXCHECK_SETTINGS", config.DefaultSettingsPath), "Path to the settings file")
	fs.StringVar(&opts.proxiesPath, "proxies", "-", "File with one host:port proxy per line, - for stdin")
	fs.StringVar(&opts.judges, "judges", "", "Comma separated judge urls, overrides the settings file")
	fs.IntVar(&opts.proxyLimit, "proxy-limit", support.GetEnvInt("PROXCHECK_PROXY_LIMIT", 0), "Proxies checked concurrently (0 uses settings)")
	fs.IntVar(&opts.protocolLimit, "protocol-limit", support.GetEnvInt("PROXCHECK_PROTOCOL_LIMIT", 0), "Protocols probed concurrently per proxy (0 uses settings)")
	fs.StringVar(&protocols, "protocols", "", "Comma separated protocols to probe (http, socks4, socks5), empty for all")
	fs.DurationVar(&opts.timeout, "timeout", 0, "Timeout of a single probe (0 uses settings)")
	fs.StringVar(&opts.geoliteDB, "geolite", "", "Optional GeoLite2-Country database to annotate results")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Write results as JSON lines")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	parsed, err := parseProtocols(protocols)
	if err != nil {
		return options{}, err
	}
	opts.protocols = parsed

	return opts, nil
}

func parseProtocols(raw string) ([]domain.Protocol, error) {
	var out []domain.Protocol
	for _, part := range splitList(raw) {
		protocol, err := domain.ParseProtocol(part)
		if err != nil {
			return nil, err
		}
		out = append(out, protocol)
	}
	return out, nil
}

// geoliteDatabase picks the database path: flag, then environment, then settings.
func geoliteDatabase(flagValue, settingsValue string) string {
	return firstNonEmpty(flagValue, support.GetEnv("PROXCHECK_GEOLITE_DB", ""), settingsValue)
}

func setLogLevel(level string, debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
		return
	}

	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warn("invalid log level, using info", "value", level)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func logCapacity(opts checker.Options) {
	opts = opts.WithDefaults()
	log.Info("Estimated peak load",
		"max_concurrent_probes", checker.MaxConcurrentProbes(opts.ProxyLimit, opts.ProtocolLimit),
		"max_bandwidth_bytes_s", checker.EstimateMaxBandwidth(opts.ProxyLimit, opts.ProtocolLimit),
	)
}

func readProxies(path string, stdin io.Reader) ([]string, error) {
	var (
		data []byte
		err  error
	)

	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}

	return support.ParseTextToProxies(string(data)), nil
}

func openLocator(path string) *geolite.Locator {
	if path == "" {
		return nil
	}

	locator, err := geolite.Open(path)
	if err != nil {
		log.Warn("GeoLite database unavailable, results will not carry countries", "error", err)
		return nil
	}
	return locator
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
