package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Tools        ToolsConfig        `mapstructure:"tools"`
	Cookies      CookiesConfig      `mapstructure:"cookies"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig controls how yt-dlp is invoked and where its output lands
type DownloadConfig struct {
	OutputDir           string        `mapstructure:"output_dir"`
	OutputTemplate      string        `mapstructure:"output_template"`
	LogsDir             string        `mapstructure:"logs_dir"`
	DefaultQuality      Quality       `mapstructure:"default_quality"`
	AudioFormat         string        `mapstructure:"audio_format"`
	MergeFormat         string        `mapstructure:"merge_format"`
	FallbackFormat      string        `mapstructure:"fallback_format"`
	Retries             int           `mapstructure:"retries"`
	FragmentRetries     int           `mapstructure:"fragment_retries"`
	ConcurrentFragments int           `mapstructure:"concurrent_fragments"`
	NoWarnings          bool          `mapstructure:"no_warnings"`
	Timeout             time.Duration `mapstructure:"timeout"` // 0 disables the watchdog
	OutputTailLines     int           `mapstructure:"output_tail_lines"`
}

// ToolsConfig locates the external binaries
type ToolsConfig struct {
	YTDLPBinary  string `mapstructure:"ytdlp_binary"`
	FFmpegBinary string `mapstructure:"ffmpeg_binary"`
	ExtraArgs    string `mapstructure:"extra_args"`
	SkipFFmpeg   bool   `mapstructure:"skip_ffmpeg_check"`
}

// CookiesConfig selects the browser cookies are read from. An empty
// Browser means auto-detect.
type CookiesConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Browser string `mapstructure:"browser"`
}

// HistoryConfig contains download history persistence configuration
type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultOutputTemplate is the yt-dlp output template used when none is configured
const DefaultOutputTemplate = "%(title).200B [%(id)s].%(ext)s"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8686,
		},
		Download: DownloadConfig{
			OutputDir:           "$HOME/Videos",
			OutputTemplate:      DefaultOutputTemplate,
			LogsDir:             "$HOME/.ytfetch/logs",
			DefaultQuality:      QualityBest,
			AudioFormat:         "mp3",
			MergeFormat:         "mp4",
			FallbackFormat:      "18",
			Retries:             15,
			FragmentRetries:     15,
			ConcurrentFragments: 1,
			NoWarnings:          true,
			Timeout:             0,
			OutputTailLines:     50,
		},
		Tools: ToolsConfig{
			YTDLPBinary:  "yt-dlp",
			FFmpegBinary: "ffmpeg",
		},
		Cookies: CookiesConfig{
			Enabled: false,
			Browser: "",
		},
		History: HistoryConfig{
			DatabasePath: "$HOME/.ytfetch/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   true,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
