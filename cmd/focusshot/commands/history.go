package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show and manage the capture history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries",
	Example: `  # List entries as a table (default)
  focusshot history list

  # List entries as JSON
  focusshot history list --format json`,
	RunE: runHistoryList,
}

var historyAddCmd = &cobra.Command{
	Use:   "add FILE",
	Short: "Record an existing image in the history",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryAdd,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every history entry (image files are kept)",
	RunE:  runHistoryClear,
}

var (
	historyFormat string
	historyTags   []string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyAddCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyListCmd.Flags().StringVarP(&historyFormat, "format", "f", "table", "output format (table, json or yaml)")
	historyAddCmd.Flags().StringSliceVar(&historyTags, "tag", nil, "tag to record (repeatable)")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	svc, _, err := newService(false)
	if err != nil {
		return err
	}
	entries, err := svc.GetHistory()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if historyFormat != "table" {
		return printStructured(cmd.OutOrStdout(), historyFormat, entries)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "TIME\tSIZE\tTAGS\tFILE")
	fmt.Fprintln(w, "----\t----\t----\t----")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%dx%d\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Width, e.Height, strings.Join(e.Tags, ","), e.FilePath)
	}
	return nil
}

func runHistoryAdd(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	_, cfg, err := codec.Sniff(data)
	if err != nil {
		return err
	}

	svc, _, err := newService(false)
	if err != nil {
		return err
	}
	entry := history.NewEntry(path, cfg.Width, cfg.Height, historyTags...)
	if err := svc.AddHistory(entry); err != nil {
		return fmt.Errorf("failed to add history entry: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), entry.ID)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	svc, _, err := newService(false)
	if err != nil {
		return err
	}
	if err := svc.ClearHistory(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
	return nil
}
