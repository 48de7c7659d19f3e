package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yourusername/ytfetch/internal/domain"
)

// downloadLookup is the part of the download manager that IDs resolve against
type downloadLookup interface {
	GetDownload(id string) (*domain.Download, error)
	ListDownloads(filter domain.DownloadFilter) ([]*domain.Download, error)
}

// resolveID accepts a full record ID or a unique prefix of one, as shown
// by the history command
func resolveID(lookup downloadLookup, idOrPrefix string) (string, error) {
	if _, err := lookup.GetDownload(idOrPrefix); err == nil {
		return idOrPrefix, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	all, err := lookup.ListDownloads(domain.DownloadFilter{})
	if err != nil {
		return "", err
	}

	var matches []string
	for _, d := range all {
		if strings.HasPrefix(d.ID, idOrPrefix) {
			matches = append(matches, d.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: id prefix %q matches %d downloads", domain.ErrInvalidRequest, idOrPrefix, len(matches))
	}
}

var (
	historyStatus string
	historyVideo  string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past downloads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		downloads, err := rt.Manager.ListDownloads(domain.DownloadFilter{
			Status:  domain.DownloadStatus(historyStatus),
			VideoID: historyVideo,
			Limit:   historyLimit,
		})
		if err != nil {
			return err
		}

		if len(downloads) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No downloads yet")
			return nil
		}
		printHistory(cmd.OutOrStdout(), downloads)
		return nil
	},
}

func printHistory(out io.Writer, downloads []*domain.Download) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTAGE\tATTEMPTS\tCREATED\tURL")
	for _, d := range downloads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			d.ID[:min(8, len(d.ID))],
			d.Status,
			orDash(string(d.Stage)),
			d.Attempts,
			humanize.Time(d.CreatedAt),
			truncate(d.URL, 60))
	}
	w.Flush()
}

var showLog bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		id, err := resolveID(rt.Manager, args[0])
		if err != nil {
			return err
		}
		download, err := rt.Manager.GetDownload(id)
		if err != nil {
			return err
		}

		printDownload(cmd.OutOrStdout(), download, showLog)
		return nil
	},
}

func printDownload(w io.Writer, d *domain.Download, withLog bool) {
	fmt.Fprintf(w, "Download Details:\n")
	fmt.Fprintf(w, "  ID:       %s\n", d.ID)
	fmt.Fprintf(w, "  URL:      %s\n", d.URL)
	if d.RawURL != d.URL {
		fmt.Fprintf(w, "  Entered:  %s\n", d.RawURL)
	}
	if d.VideoID != "" {
		fmt.Fprintf(w, "  Video ID: %s\n", d.VideoID)
	}
	fmt.Fprintf(w, "  Status:   %s\n", d.Status)
	fmt.Fprintf(w, "  Stage:    %s (%s)\n", orDash(string(d.Stage)), humanize.Ordinal(d.Attempts)+" attempt")
	fmt.Fprintf(w, "  Quality:  %s", d.Quality)
	if d.AudioOnly {
		fmt.Fprint(w, ", audio only")
	}
	if d.AllowPlaylist {
		fmt.Fprint(w, ", playlist")
	}
	fmt.Fprintln(w)
	if d.UseCookies {
		fmt.Fprintf(w, "  Cookies:  %s\n", d.CookieBrowser)
	}
	fmt.Fprintf(w, "  Output:   %s\n", d.OutputDir)
	fmt.Fprintf(w, "  Created:  %s (%s)\n", d.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(d.CreatedAt))
	if took := d.Duration(); took > 0 {
		fmt.Fprintf(w, "  Took:     %s\n", took.Round(time.Second))
	}
	if d.ErrorMessage != "" {
		fmt.Fprintf(w, "  Error:    %s\n", d.ErrorMessage)
	}

	if withLog && d.ProcessLog != "" {
		fmt.Fprintf(w, "\nLast yt-dlp output:\n%s\n", d.ProcessLog)
	}
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.Manager.Stats()
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func printStats(w io.Writer, stats *domain.DownloadStats) {
	fmt.Fprintln(w, "Download Statistics:")
	fmt.Fprintf(w, "  Total:      %s\n", humanize.Comma(stats.Total))
	fmt.Fprintf(w, "  Processing: %s\n", humanize.Comma(stats.Processing))
	fmt.Fprintf(w, "  Completed:  %s\n", humanize.Comma(stats.Completed))
	fmt.Fprintf(w, "  Failed:     %s\n", humanize.Comma(stats.Failed))
	fmt.Fprintf(w, "  Cancelled:  %s\n", humanize.Comma(stats.Cancelled))
	fmt.Fprintf(w, "  Attempts:   %s\n", humanize.Comma(stats.Attempts))
	if finished := stats.Completed + stats.Failed; finished > 0 {
		rate := float64(stats.Completed) / float64(finished) * 100
		fmt.Fprintf(w, "  Success:    %s%%\n", humanize.FtoaWithDigits(rate, 1))
	}
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a download from the history",
	Long:  `Remove a download record from the history. Downloaded files are left in place.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		id, err := resolveID(rt.Manager, args[0])
		if err != nil {
			return err
		}
		if err := rt.Manager.DeleteDownload(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyStatus, "status", "s", "", "Filter by status")
	historyCmd.Flags().StringVar(&historyVideo, "video", "", "Filter by video ID")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of rows")

	showCmd.Flags().BoolVarP(&showLog, "log", "l", false, "Include the last yt-dlp output lines")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
