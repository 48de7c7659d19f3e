package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/yourusername/ytfetch/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ytfetch")
		v.AddConfigPath("/etc/ytfetch")
	}

	// YTFETCH_DOWNLOAD_OUTPUT_DIR overrides download.output_dir
	v.SetEnvPrefix("YTFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers every known key so AutomaticEnv also applies to
// keys that are absent from the config file
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port",
		"download.output_dir", "download.output_template", "download.logs_dir",
		"download.default_quality", "download.audio_format", "download.merge_format",
		"download.fallback_format", "download.retries", "download.fragment_retries",
		"download.concurrent_fragments", "download.no_warnings", "download.timeout",
		"download.output_tail_lines",
		"tools.ytdlp_binary", "tools.ffmpeg_binary", "tools.extra_args", "tools.skip_ffmpeg_check",
		"cookies.enabled", "cookies.browser",
		"history.database_path",
		"notification.enabled", "notification.sound", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" && config.Logging.OutputPath != "none" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	// $HOME first so it resolves on platforms without a HOME variable
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if !domain.ValidateQuality(config.Download.DefaultQuality) {
		return fmt.Errorf("invalid default quality: %q", config.Download.DefaultQuality)
	}

	if config.Download.FallbackFormat == "" {
		return fmt.Errorf("fallback format not configured")
	}

	if config.Download.Retries < 0 || config.Download.FragmentRetries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}

	if config.Download.ConcurrentFragments < 1 {
		return fmt.Errorf("concurrent fragments must be at least 1")
	}

	if config.Download.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if config.Cookies.Browser != "" && !validCookieBrowser(config.Cookies.Browser) {
		return fmt.Errorf("unsupported cookie browser: %q", config.Cookies.Browser)
	}

	if config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Tools.YTDLPBinary == "" {
		config.Tools.YTDLPBinary = "yt-dlp"
	}
	if config.Tools.FFmpegBinary == "" {
		config.Tools.FFmpegBinary = "ffmpeg"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

func validCookieBrowser(browser string) bool {
	for _, b := range domain.CookieBrowsers {
		if b == browser {
			return true
		}
	}
	return false
}

// ConfigValues flattens config into nested maps keyed by the same names
// LoadConfig reads
func ConfigValues(config *domain.Config) (map[string]interface{}, error) {
	var values map[string]interface{}
	if err := mapstructure.Decode(config, &values); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if d, ok := values["download"].(map[string]interface{}); ok {
		d["timeout"] = config.Download.Timeout.String()
	}
	return values, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	values, err := ConfigValues(config)
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range values {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
