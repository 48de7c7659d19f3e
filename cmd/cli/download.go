package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alessio/shellescape"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/yourusername/ytfetch/internal/app"
	"github.com/yourusername/ytfetch/internal/domain"
)

// downloadFlags are the request options shared by get and batch
type downloadFlags struct {
	quality  string
	audio    bool
	playlist bool
	cookies  bool
	browser  string
	output   string
	quiet    bool
}

func (f *downloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.quality, "quality", "q", "", "Video quality: best, 1080, 720, 480, 360 (default from config)")
	cmd.Flags().BoolVarP(&f.audio, "audio", "a", false, "Extract audio only")
	cmd.Flags().BoolVar(&f.playlist, "playlist", false, "Download the whole playlist when the URL has one")
	cmd.Flags().BoolVar(&f.cookies, "cookies", false, "Use browser cookies on the first attempt (default from config)")
	cmd.Flags().StringVar(&f.browser, "browser", "", "Browser to read cookies from (implies --cookies)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Destination directory (default from config)")
	cmd.Flags().BoolVar(&f.quiet, "quiet", false, "Only show progress and errors")
}

// request builds the download request for rawURL. Cookies follow the
// config unless --cookies or --browser was given.
func (f *downloadFlags) request(cmd *cobra.Command, config *domain.Config, rawURL string) domain.DownloadRequest {
	useCookies := config.Cookies.Enabled
	switch {
	case cmd.Flags().Changed("cookies"):
		useCookies = f.cookies
	case f.browser != "":
		useCookies = true
	}

	browser := f.browser
	if !useCookies {
		browser = ""
	}

	return domain.DownloadRequest{
		RawURL:        rawURL,
		Quality:       domain.Quality(f.quality),
		AudioOnly:     f.audio,
		AllowPlaylist: f.playlist,
		UseCookies:    useCookies,
		CookieBrowser: browser,
		OutputDir:     f.output,
	}
}

var (
	getFlags     downloadFlags
	getClipboard bool
	getDryRun    bool
)

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Download a video",
	Long: `Download a video with yt-dlp.

When the first attempt fails with a retryable error, the download is retried
without browser cookies and then with the fallback format from the config.
Press Ctrl-C to cancel.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(newTerminalRenderer(getFlags.quiet))
		if err != nil {
			return err
		}
		defer rt.Close()

		var rawURL string
		if len(args) == 1 {
			rawURL = args[0]
		}
		if rawURL == "" && getClipboard {
			if url, ok := rt.Clipboard.ReadURL(); ok {
				fmt.Fprintf(os.Stderr, "Using URL from clipboard: %s\n", url)
				rawURL = url
			}
		}
		if rawURL == "" {
			return fmt.Errorf("%w: pass a URL or use --clipboard", domain.ErrInvalidURL)
		}

		req := getFlags.request(cmd, rt.Config, rawURL)
		if getDryRun {
			return printCommand(cmd.OutOrStdout(), rt, req)
		}

		rt.RecoverInterrupted()
		download, err := rt.Manager.Download(cmd.Context(), req)
		return reportDownload(cmd.OutOrStdout(), download, err)
	},
}

var batchFlags downloadFlags

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Download every URL listed in a file",
	Long: `Download every URL listed in a file, one per line.

Blank lines and lines starting with # are skipped. Each URL runs as its own
download with the same options; a failed URL does not stop the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, skipped, err := app.ReadBatchFile(args[0])
		if err != nil {
			return err
		}
		for _, e := range skipped {
			fmt.Fprintf(os.Stderr, "Skipping line %d, not a valid URL: %s\n", e.Line, e.URL)
		}
		if len(entries) == 0 {
			return fmt.Errorf("%w: no URLs in %s", domain.ErrInvalidRequest, args[0])
		}

		rt, err := openRuntime(newTerminalRenderer(batchFlags.quiet))
		if err != nil {
			return err
		}
		defer rt.Close()

		rt.RecoverInterrupted()
		result := rt.Manager.RunBatch(cmd.Context(), entries, batchFlags.request(cmd, rt.Config, ""))
		printBatchSummary(cmd.OutOrStdout(), result, len(entries))

		switch {
		case result.Cancelled:
			return domain.ErrCancelled
		case result.Failed > 0:
			return fmt.Errorf("%d of %d downloads failed", result.Failed, len(entries))
		}
		return nil
	},
}

var retryQuiet bool

var retryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Run a failed or cancelled download again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(newTerminalRenderer(retryQuiet))
		if err != nil {
			return err
		}
		defer rt.Close()

		rt.RecoverInterrupted()
		id, err := resolveID(rt.Manager, args[0])
		if err != nil {
			return err
		}

		sess, err := rt.Manager.RetryDownload(cmd.Context(), id)
		if err != nil {
			return err
		}
		<-sess.Done()
		download, err := sess.Result()
		return reportDownload(cmd.OutOrStdout(), download, err)
	},
}

func init() {
	getFlags.register(getCmd)
	getCmd.Flags().BoolVarP(&getClipboard, "clipboard", "c", false, "Take the URL from the clipboard when none is given")
	getCmd.Flags().BoolVar(&getDryRun, "dry-run", false, "Print the yt-dlp command instead of running it")

	batchFlags.register(batchCmd)

	retryCmd.Flags().BoolVar(&retryQuiet, "quiet", false, "Only show progress and errors")
}

// printCommand shows the command line of the primary stage
func printCommand(w io.Writer, rt *app.Runtime, req domain.DownloadRequest) error {
	prepared, err := rt.Manager.Prepare(req)
	if err != nil {
		return err
	}
	spec := rt.Builder.Build(prepared, prepared.UseCookies, "")
	fmt.Fprintln(w, shellescape.QuoteCommand(spec.CommandLine()))
	return nil
}

func reportDownload(w io.Writer, download *domain.Download, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Saved to %s (%s, %s in %s)\n",
		download.OutputDir,
		download.Stage,
		english.Plural(download.Attempts, "attempt", ""),
		download.Duration().Round(time.Second))
	return nil
}

func printBatchSummary(w io.Writer, result app.BatchResult, total int) {
	fmt.Fprintf(w, "\nBatch finished: %d succeeded, %d failed", result.Succeeded, result.Failed)
	if notStarted := total - len(result.Items); notStarted > 0 {
		fmt.Fprintf(w, ", %d not started", notStarted)
	}
	fmt.Fprintln(w)

	for _, item := range result.Items {
		if item.Err == nil {
			continue
		}
		label := "failed"
		if errors.Is(item.Err, domain.ErrCancelled) {
			label = "cancelled"
		}
		fmt.Fprintf(w, "  line %d %s: %s\n    %v\n", item.Entry.Line, label, item.Entry.URL, item.Err)
	}
}
