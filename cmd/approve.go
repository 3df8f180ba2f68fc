package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lp-helper/config"
	"lp-helper/pkg/approval"
	"lp-helper/pkg/types"
)

var approveTimeout int

var approveCmd = &cobra.Command{
	Use:   "approve <amount> <token>",
	Short: "Approve the helper contract to spend a token",
	Long: `Request an allowance for the helper contract and wait until it is mined.

By default an unlimited allowance is granted. Set exact_approval: true in
.lp-helper.yaml to approve only the given amount.

Examples:
  lp-helper approve 400 0x6B17...
  lp-helper approve 10 0xA0b8... --timeout 300`,
	Args: cobra.ExactArgs(2),
	Run:  runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().IntVar(&approveTimeout, "timeout", 600, "Seconds to wait for the approval to be mined")
}

func runApprove(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := openEnvironment(ctx, cfg, true)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer env.Close()

	asset, err := env.tokens.LoadAsset(ctx, args[1], cfg.NativeSymbol, cfg.NativeDecimals)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	amount, err := types.ParseAmount(asset, args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !approval.Required(amount) {
		printSuccess(fmt.Sprintf("No approval needed for %s %s.", amount.ToSignificant(6), asset))
		return
	}

	if err := approveAndWait(ctx, env, amount, jsonOutput); err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"token":   asset.ID(),
			"spender": env.gate.Spender().Hex(),
			"amount":  amount.ToExact(),
			"state":   approval.Approved,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
	}
}

// approveAndWait requests approval of amount and polls until the gate
// leaves Pending
func approveAndWait(ctx context.Context, env *environment, amount types.AssetAmount, jsonOutput bool) error {
	if err := env.gate.Approve(ctx, amount); err != nil {
		return fmt.Errorf("failed to approve %s: %w", amount.Asset, err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(approveTimeout)*time.Second)
	defer cancel()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " " + approval.Label(approval.Pending, amount.Asset.String())
		s.Start()
	}
	state, err := env.gate.Await(ctx, amount, pollInterval(env.cfg))
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("failed to wait for approval of %s: %w", amount.Asset, err)
	}
	if state != approval.Approved {
		return fmt.Errorf("%w: %s", types.ErrApprovalNotReady, approval.Label(state, amount.Asset.String()))
	}

	if !jsonOutput {
		color.Green("\n✓ %s", approval.Label(state, amount.Asset.String()))
	}
	return nil
}

// pollInterval is the receipt polling interval for interactive waits
func pollInterval(cfg *config.Config) time.Duration {
	interval := cfg.WatchInterval()
	if interval > 5*time.Second {
		return 5 * time.Second
	}
	return interval
}
