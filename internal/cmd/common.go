package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/mailscan/internal/config"
	"github.com/harrison/mailscan/internal/decoder"
	"github.com/harrison/mailscan/internal/fileutil"
	"github.com/harrison/mailscan/internal/logger"
	"github.com/harrison/mailscan/internal/models"
	"github.com/harrison/mailscan/internal/search"
)

// loadConfig loads --config if given, otherwise .mailscan/config.yaml in the
// working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// addScanFlags registers the flags shared by search and find.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .mailscan/config.yaml)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().StringSlice("ext", nil, "File extensions to search (default: .csv)")
	cmd.Flags().String("delimiter", "", "Field delimiter (default: ,)")
	cmd.Flags().String("encoding", "", "Fallback encoding for bytes that are not UTF-8 (default: windows-1252)")
}

// flagOverrides collects the flags the user actually set.
func flagOverrides(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	flags := cmd.Flags()

	if flags.Changed("workers") {
		workers, _ := flags.GetInt("workers")
		o.Workers = &workers
	}
	if flags.Changed("timeout") {
		timeoutStr, _ := flags.GetString("timeout")
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return o, fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		o.Timeout = &timeout
	}
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		o.LogLevel = &level
	}
	if flags.Changed("log-dir") {
		logDir, _ := flags.GetString("log-dir")
		o.LogDir = &logDir
	}
	if flags.Changed("ext") {
		exts, _ := flags.GetStringSlice("ext")
		o.Extensions = exts
	}
	if flags.Changed("delimiter") {
		delim, _ := flags.GetString("delimiter")
		o.Delimiter = &delim
	}
	if flags.Changed("encoding") {
		enc, _ := flags.GetString("encoding")
		o.FallbackEncoding = &enc
	}
	if flags.Changed("no-history") {
		o.DisableHistory, _ = flags.GetBool("no-history")
	}

	return o, nil
}

// resolveConfig loads the configuration, applies flag overrides and validates the result.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// engineOptions translates the configuration into search engine options.
func engineOptions(cfg *config.Config, root string, exclude ...string) (search.Options, error) {
	fallback, err := decoder.LookupFallback(cfg.FallbackEncoding)
	if err != nil {
		return search.Options{}, err
	}

	exts := make([]string, 0, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.TrimSpace(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}

	return search.Options{
		Root: root,
		Walk: fileutil.WalkOptions{
			Extensions:   exts,
			ExcludeDirs:  cfg.ExcludeDirs,
			ExcludeFiles: exclude,
			SkipHidden:   cfg.SkipHidden,
		},
		Decode: decoder.Options{
			Delimiter:    cfg.Delimiter,
			MaxLineBytes: cfg.MaxLineBytes,
			Fallback:     fallback,
		},
		Workers: cfg.Workers,
	}, nil
}

// multiLogger fans every call out to each wrapped logger.
type multiLogger struct {
	loggers []logger.Logger
}

func (ml *multiLogger) LogTrace(message string) {
	for _, l := range ml.loggers {
		l.LogTrace(message)
	}
}

func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

func (ml *multiLogger) LogEvent(ev models.Event) {
	for _, l := range ml.loggers {
		l.LogEvent(ev)
	}
}

func (ml *multiLogger) LogProgress(p models.Progress) {
	for _, l := range ml.loggers {
		l.LogProgress(p)
	}
}

func (ml *multiLogger) LogSummary(summary models.RunSummary) {
	for _, l := range ml.loggers {
		l.LogSummary(summary)
	}
}
