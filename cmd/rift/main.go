package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/riftlang/rift/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "rift",
	Short:         "Rift project tooling",
	Long:          `Loads, checks and serves Rift visual language projects.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().String("config", "", "config file (default $RIFT_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().String("log-level", "", "override the configured log level")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failColor.Sprint("fatal:"), err)
		os.Exit(1)
	}
}

// ── Status display helpers ─────────────────────────────────────────

var (
	sectionColor = color.New(color.FgYellow)
	okColor      = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	sectionColor.Printf("  ── %s %s\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	num := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(num), 3)
	fmt.Printf("  %s %s %s\n", label, dimColor.Sprint(strings.Repeat("·", dotsLen)), okColor.Sprint(num))
}

func printOK(msg string) {
	fmt.Printf("  %s %s\n", okColor.Sprint("✓"), msg)
}

func printFail(msg string) {
	fmt.Printf("  %s %s\n", failColor.Sprint("✗"), msg)
}

func printReady(msg string) {
	fmt.Printf("  %s %s\n", okColor.Sprint("▶"), msg)
}

// loadConfig reads --config, then $RIFT_CONFIG, falling back to defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("RIFT_CONFIG")
	}
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
