package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/ytfetch/internal/app"
	"github.com/yourusername/ytfetch/internal/domain"
	"github.com/yourusername/ytfetch/internal/infrastructure"
	"github.com/yourusername/ytfetch/pkg/logger"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check yt-dlp, ffmpeg and cookie setup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		versions := rt.Tools.Versions(cmd.Context())
		browser := rt.Config.Cookies.Browser
		source := "configured"
		if browser == "" {
			browser = rt.Browsers.Detect()
			source = "detected"
		}

		ok := printDoctor(cmd.OutOrStdout(), rt.Config, versions, browser, source, runtime.GOOS)
		if !ok {
			return fmt.Errorf("%w: see the hints above", domain.ErrToolMissing)
		}
		return nil
	},
}

// printDoctor writes the report and returns false when a required tool is missing
func printDoctor(w io.Writer, config *domain.Config, v infrastructure.ToolVersions, browser, source, goos string) bool {
	ok := true

	if v.YTDLP != "" {
		fmt.Fprintf(w, "✓ yt-dlp   %s\n", v.YTDLP)
	} else {
		ok = false
		fmt.Fprintf(w, "✗ yt-dlp   not found (%s)\n%s\n", v.YTDLPError, indent(infrastructure.YTDLPInstallHint(goos)))
	}

	switch {
	case v.FFmpeg != "":
		fmt.Fprintf(w, "✓ ffmpeg   %s\n", v.FFmpeg)
	case config.Tools.SkipFFmpeg:
		fmt.Fprintf(w, "- ffmpeg   not found, check skipped by config\n")
	default:
		ok = false
		fmt.Fprintf(w, "✗ ffmpeg   not found (%s)\n%s\n", v.FFmpegError, indent(infrastructure.FFmpegInstallHint(goos)))
	}

	if browser != "" {
		fmt.Fprintf(w, "✓ cookies  %s (%s)", browser, source)
	} else {
		fmt.Fprint(w, "- cookies  no supported browser found")
	}
	if !config.Cookies.Enabled {
		fmt.Fprint(w, ", off by default")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\nOutput:    %s\n", config.Download.OutputDir)
	fmt.Fprintf(w, "History:   %s\n", config.History.DatabasePath)
	fmt.Fprintf(w, "Logs:      %s\n", config.Download.LogsDir)
	fmt.Fprintf(w, "Fallback:  format %s\n", config.Download.FallbackFormat)
	return ok
}

func indent(text string) string {
	return "    " + strings.ReplaceAll(text, "\n", "\n    ")
}

var (
	logsDate  string
	logsLines int
	logsGrep  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the yt-dlp transcript of a day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, _, err := loadConfig()
		if err != nil {
			return err
		}

		date := time.Now()
		if logsDate != "" {
			date, err = time.ParseInLocation("2006-01-02", logsDate, time.Local)
			if err != nil {
				return fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidRequest)
			}
		}

		reader := logger.NewTranscriptReader(config.Download.LogsDir)
		if _, err := os.Stat(reader.Path(date)); os.IsNotExist(err) {
			return fmt.Errorf("%w: no transcript for %s", domain.ErrNotFound, date.Format("2006-01-02"))
		}

		var lines []string
		if logsGrep != "" {
			lines, err = reader.Search(date, logsGrep, logsLines)
		} else {
			lines, err = reader.Tail(date, logsLines)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "%s (%s)\n", reader.Path(date), humanize.Bytes(uint64(reader.Size(date))))
		for _, line := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, _, err := loadConfig()
		if err != nil {
			return err
		}
		values, err := app.ConfigValues(config)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(values)
	},
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "configs", "config.yaml")
	}
	return filepath.Join(home, ".ytfetch", "config.yaml")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ytfetch %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsDate, "date", "", "Day to show, YYYY-MM-DD (default today)")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines")
	logsCmd.Flags().StringVarP(&logsGrep, "grep", "g", "", "Only lines containing this text")

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
