package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lp-helper/config"
	"lp-helper/pkg/approval"
	"lp-helper/pkg/ledger"
	"lp-helper/pkg/liquidity"
	"lp-helper/pkg/mint"
	"lp-helper/pkg/parser"
	"lp-helper/pkg/reserves"
	"lp-helper/pkg/types"
)

var (
	addRecipient   string
	addExpert      bool
	addAnyRatio    bool
	addApprove     bool
	addMaxA        bool
	addMaxB        bool
	addWait        bool
	addSlippageBps int64
	addDeadline    int
)

var addCmd = &cobra.Command{
	Use:   "add <amount> <asset> and [<amount>] <asset>",
	Short: "Add liquidity to a pool",
	Long: `Add liquidity to the pool of two assets through the helper contract.

Assets are the native coin symbol (e.g. ETH) or a token address. The first
typed amount is the one you set; when the pool exists the other side is
derived from its reserves. When no pool exists you must give both amounts and
the deposit creates the pool at that ratio.

Examples:
  # Create a pool with 1 ETH and 400 of a token
  lp-helper add 1 ETH and 400 0x6B17...

  # Deposit 10 of a token, the paired amount is derived
  lp-helper add 10 0xA0b8... with 0xdAC1...

  # Set the second side instead
  lp-helper add 0xA0b8... with 20 0xdAC1...

  # Spend the whole balance of the first asset and approve tokens as needed
  lp-helper add 0 0xA0b8... with 0xdAC1... --max-a --approve

  # Skip the confirmation step
  lp-helper add 1 ETH and 400 0x6B17... --expert`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addRecipient, "recipient", "", "Address receiving the pool tokens (defaults to your account)")
	addCmd.Flags().BoolVar(&addExpert, "expert", false, "Expert mode: submit without the confirmation step")
	addCmd.Flags().BoolVar(&addAnyRatio, "any-ratio", false, "Set both amounts freely; the helper swaps the excess")
	addCmd.Flags().BoolVar(&addApprove, "approve", false, "Request missing token approvals and wait for them")
	addCmd.Flags().BoolVar(&addMaxA, "max-a", false, "Use the max spendable balance of the first asset")
	addCmd.Flags().BoolVar(&addMaxB, "max-b", false, "Use the max spendable balance of the second asset")
	addCmd.Flags().BoolVarP(&addWait, "wait", "w", false, "Wait for the transaction to be mined")
	addCmd.Flags().Int64Var(&addSlippageBps, "slippage", -1, "Slippage tolerance in basis points (default from config)")
	addCmd.Flags().IntVar(&addDeadline, "deadline", 0, "Transaction deadline in minutes (default from config)")
}

func runAdd(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Parse the command
	req, err := parser.ParseAddCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := parser.ValidateAddRequest(req); err != nil {
		printError(err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	applyAddFlags(cfg)
	if err := cfg.Validate(); err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := checkConfirmMode(cfg, jsonOutput); err != nil {
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

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading pool..."
		s.Start()
	}
	state, derived, pair, err := resolveDeposit(ctx, env, req)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayDeposit(pair, derived)
	}
	if derived.Err != nil {
		printError(derived.Err)
		os.Exit(1)
	}

	attempt := &liquidity.Attempt{
		Pair:      pair,
		Derived:   derived,
		Recipient: env.session.Account,
	}
	if addRecipient != "" {
		if !common.IsHexAddress(addRecipient) {
			printError(fmt.Errorf("invalid recipient address: %s", addRecipient))
			os.Exit(1)
		}
		attempt.Recipient = common.HexToAddress(addRecipient)
	}

	if err := ensureApprovals(ctx, env, attempt, jsonOutput); err != nil {
		printError(err)
		os.Exit(1)
	}

	led, err := openLedger(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	pipeline := liquidity.NewPipeline(env.gateway, env.gate, led, liquidity.Options{
		ExpertMode:      cfg.ExpertMode,
		DeadlineMinutes: cfg.DeadlineMinutes,
		SlippageBps:     cfg.SlippageBps,
		GasMarginBps:    cfg.GasMarginBps,
	})
	preview := liquidity.NewPreview(attempt, cfg.SlippageBps)
	if !jsonOutput {
		pipeline.OnTransition(progressReporter(os.Stdout, s, preview.PendingText))
	}
	if !jsonOutput && !cfg.ExpertMode {
		displayPreview(preview)
	}

	status, err := pipeline.Request(ctx, attempt)
	if err == nil && status.Phase == liquidity.AwaitingConfirmation {
		if askYesNo(preview.ConfirmLabel + "?") {
			status, err = pipeline.Confirm(ctx)
		} else {
			pipeline.Decline()
			fmt.Println("\nDeposit cancelled.")
			os.Exit(0)
		}
	}
	s.Stop()

	switch status.Phase {
	case liquidity.Submitted:
		reportSubmitted(ctx, env, led, status, jsonOutput)
		pipeline.Dismiss(&state)
	case liquidity.Failed:
		pipeline.Dismiss(&state)
		printError(status.Err)
		os.Exit(1)
	default:
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		// declined at the signer
		fmt.Println("\nTransaction not signed. Nothing was sent.")
	}
}

func applyAddFlags(cfg *config.Config) {
	if addExpert {
		cfg.ExpertMode = true
	}
	if addAnyRatio {
		cfg.AnyRatio = true
	}
	if addSlippageBps >= 0 {
		cfg.SlippageBps = addSlippageBps
	}
	if addDeadline > 0 {
		cfg.DeadlineMinutes = addDeadline
	}
}

// checkConfirmMode refuses JSON runs that would need an interactive
// confirmation
func checkConfirmMode(cfg *config.Config, jsonOutput bool) error {
	if jsonOutput && !cfg.ExpertMode {
		return fmt.Errorf("--json cannot prompt for confirmation; pass --expert (or set expert_mode) to submit without it")
	}
	return nil
}

// typedState builds the input state from the command. With a fixed ratio
// only the independent amount may be typed.
func typedState(req *types.AddRequest, pair types.Pair, freeRatio bool) (mint.State, error) {
	state := mint.NewState()
	other := req.Independent.Other()
	if typed := req.TypedValue(other); typed != "" {
		if !freeRatio {
			return state, fmt.Errorf("%w: the %s amount is derived from the pool price; drop it or pass --any-ratio",
				types.ErrInputInvalid, pair.Get(other))
		}
		state.TypeInput(other, typed, true)
	}
	state.TypeInput(req.Independent, req.TypedValue(req.Independent), freeRatio)
	return state, nil
}

// resolveDeposit reads the pool and balances and derives both amounts
func resolveDeposit(ctx context.Context, env *environment, req *types.AddRequest) (mint.State, *mint.Derived, types.Pair, error) {
	state := mint.NewState()

	pair, err := env.loadPair(ctx, req.AssetA, req.AssetB)
	if err != nil {
		return state, nil, pair, err
	}

	var info *reserves.PairInfo
	if pair.Resolved() && !pair.A.Equals(pair.B) {
		info, err = env.calc.Derive(ctx, pair.A, pair.B)
		if err != nil {
			return state, nil, pair, err
		}
	}

	balances, err := env.balances(ctx, pair)
	if err != nil {
		return state, nil, pair, err
	}
	reserve, err := env.cfg.GasReserve()
	if err != nil {
		return state, nil, pair, err
	}

	// without pool info the pair is invalid and the resolver reports it
	freeRatio := env.cfg.AnyRatio || info == nil || info.NoLiquidity()
	state, err = typedState(req, pair, freeRatio)
	if err != nil {
		return state, nil, pair, err
	}

	inputs := mint.Inputs{
		Pair:          pair,
		Account:       env.session.Account,
		Info:          info,
		Balances:      balances,
		AnyRatio:      env.cfg.AnyRatio,
		NativeReserve: reserve,
	}
	derived := mint.Resolve(state, inputs)

	if addMaxA {
		mint.UseMax(&state, derived, types.FieldA)
		derived = mint.Resolve(state, inputs)
	}
	if addMaxB {
		mint.UseMax(&state, derived, types.FieldB)
		derived = mint.Resolve(state, inputs)
	}

	return state, derived, pair, nil
}

// ensureApprovals blocks until every required token is approved, requesting
// approvals when --approve is set
func ensureApprovals(ctx context.Context, env *environment, attempt *liquidity.Attempt, jsonOutput bool) error {
	res, err := env.gate.Check(ctx, attempt.Amounts())
	if err != nil {
		return err
	}
	if res.Ready() {
		return nil
	}

	for _, st := range res.Statuses {
		if !st.Required || st.State == approval.Approved {
			continue
		}
		if !addApprove {
			if !jsonOutput {
				color.Yellow("\n%s", st.Label())
				fmt.Println("Approve the helper to spend it with:")
				color.Cyan("  lp-helper approve %s %s\n", st.Amount.ToExact(), st.Amount.Asset.ID())
			}
			continue
		}
		if err := approveAndWait(ctx, env, st.Amount, jsonOutput); err != nil {
			return err
		}
	}

	res, err = env.gate.Check(ctx, attempt.Amounts())
	if err != nil {
		return err
	}
	return res.Err()
}

func progressReporter(w io.Writer, s *spinner.Spinner, pendingText string) func(from, to liquidity.Phase) {
	return func(from, to liquidity.Phase) {
		switch to {
		case liquidity.Estimating:
			s.Suffix = " Estimating gas..."
			s.Start()
		case liquidity.Submitting:
			s.Stop()
			fmt.Fprintf(w, "\n%s\n", pendingText)
		default:
			s.Stop()
		}
	}
}

func reportSubmitted(ctx context.Context, env *environment, led *ledger.Ledger, status liquidity.Status, jsonOutput bool) {
	hash := status.TxHash.Hex()

	var entry *ledger.Entry
	if addWait {
		watcher := ledger.NewWatcher(led, env.session)
		watcher.SetCheckInterval(env.cfg.WatchInterval())
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput {
			s.Suffix = " Waiting for the transaction to be mined..."
			s.Start()
		}
		var err error
		entry, err = watcher.Wait(ctx, hash)
		if !jsonOutput {
			s.Stop()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			color.Red("\nFailed to wait for transaction: %v", err)
		}
	}

	if jsonOutput {
		output := map[string]interface{}{
			"tx_hash": hash,
			"summary": status.Summary,
			"status":  ledger.StatusPending,
		}
		if entry != nil {
			output["status"] = entry.Status
			output["block_number"] = entry.BlockNumber
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	color.Green("\n✓ %s", status.Summary)
	fmt.Printf("  Transaction: %s\n", color.CyanString(hash))
	if entry != nil && entry.IsTerminal() {
		fmt.Printf("  Status:      %s (block %d)\n", getColoredStatus(entry.Status), entry.BlockNumber)
		return
	}
	fmt.Println("\nYou can check the transaction status using:")
	color.Cyan("  lp-helper status %s\n", hash)
}

func displayDeposit(pair types.Pair, d *mint.Derived) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	if d.NoLiquidity {
		color.Green("                    NEW POOL DEPOSIT")
	} else {
		color.Green("                      ADD LIQUIDITY")
	}
	fmt.Println(strings.Repeat("=", 60))

	for _, f := range types.Fields {
		asset := pair.Get(f)
		marker := ""
		if f == d.Dependent && !d.FreeRatio() {
			marker = color.HiBlackString(" (derived)")
		}
		if d.AtMax[f] {
			marker += color.HiBlackString(" (max)")
		}
		value := d.Formatted[f]
		if value == "" {
			value = "-"
		}
		fmt.Printf("\n  %-8s %s %s%s", string(f)+":", color.CyanString(value), asset, marker)
		if limit := d.Max[f]; limit != nil {
			fmt.Printf("\n  %-8s %s", "", color.HiBlackString("balance allows %s", limit.ToSignificant(6)))
		}
	}
	fmt.Println()
}

func displayPreview(pv *liquidity.Preview) {
	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Printf("  %s\n", pv.Title)
	color.Cyan("  %s", pv.Headline)
	if pv.SlippageNote != "" {
		fmt.Printf("\n  %s\n", color.HiBlackString(pv.SlippageNote))
	}
	fmt.Println()
	for _, amt := range pv.Deposits {
		fmt.Printf("  %-14s %s\n", amt.Asset.String()+" Deposited", amt.ToSignificant(6))
	}
	if pv.PriceBPerA != "" {
		fmt.Printf("  %-14s %s\n", "Rates", pv.PriceBPerA)
		fmt.Printf("  %-14s %s\n", "", pv.PriceAPerB)
	}
	fmt.Printf("  %-14s %s\n", "Share of Pool", pv.PoolShare)
	fmt.Println(strings.Repeat("-", 60))
}
