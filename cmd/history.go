package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lp-helper/config"
	"lp-helper/pkg/ledger"
)

var historyStatusFilter string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List submitted deposits",
	Long: `Display every deposit transaction recorded in the ledger, newest first.

Examples:
  # List all deposits
  lp-helper history

  # List only deposits still waiting for a receipt
  lp-helper history --status pending

  # List in JSON format
  lp-helper history --json`,
	Run: runHistory,
}

var historyWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile pending deposits until stopped",
	Long: `Run in the foreground, polling receipts of pending deposits and recording
whether each was confirmed or reverted. Stop with Ctrl+C.

Examples:
  lp-helper history watch`,
	Run: runHistoryWatch,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyWatchCmd)

	historyCmd.Flags().StringVar(&historyStatusFilter, "status", "", "Filter by status (pending, confirmed, failed)")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	led, err := openLedger(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var entries []*ledger.Entry
	if historyStatusFilter != "" {
		status := ledger.Status(strings.ToLower(historyStatusFilter))
		switch status {
		case ledger.StatusPending, ledger.StatusConfirmed, ledger.StatusFailed:
		default:
			printError(fmt.Errorf("invalid status: %s (use pending, confirmed or failed)", historyStatusFilter))
			os.Exit(1)
		}
		entries = led.GetStorage().ListByStatus(status)
	} else {
		entries = led.List()
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(entries) == 0 {
		color.Yellow("No deposits recorded.\n")
		fmt.Println("\nAdd liquidity with:")
		color.Cyan("  lp-helper add <amount> <asset> and [<amount>] <asset>\n")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 110))
	color.Green("                                              DEPOSITS")
	fmt.Println(strings.Repeat("=", 110))
	fmt.Printf("\n  Showing %d of %d recorded deposit(s)\n", len(entries), led.GetStorage().Count())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSUBMITTED\tDEPOSIT\tTRANSACTION\tSTATUS\tBLOCK")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, e := range entries {
		block := "-"
		if e.IsTerminal() {
			block = fmt.Sprintf("%d", e.BlockNumber)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Added.Format("2006-01-02 15:04"), e.Summary, shortHash(e.Hash), getColoredStatus(e.Status), block)
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 110) + "\n")
}

func runHistoryWatch(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	led, err := openLedger(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := openEnvironment(ctx, cfg, false)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer env.Close()

	watcher := ledger.NewWatcher(led, env.session)
	watcher.SetCheckInterval(cfg.WatchInterval())

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                    DEPOSIT WATCHER")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  Ledger:   %s\n", led.GetStorage().GetFilePath())
	fmt.Printf("  Recorded: %d\n", led.GetStorage().Count())
	fmt.Printf("  Pending:  %d\n", len(led.Pending()))
	fmt.Printf("  Interval: %s\n", cfg.WatchInterval())
	fmt.Println("\nPress Ctrl+C to stop.")

	if err := watcher.Start(ctx); err != nil {
		printError(err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	<-sigChan

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Yellow("\nReceived shutdown signal. Stopping watcher...")

	watcher.Stop()

	color.Green("\n✓ Watcher stopped.")
	fmt.Printf("\n%d deposit(s) still pending. You can restart with:\n", len(led.Pending()))
	color.Cyan("  lp-helper history watch\n")
	fmt.Println(strings.Repeat("=", 70) + "\n")
}

func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:10] + "..." + hash[len(hash)-4:]
}
