package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lp-helper/config"
	"lp-helper/pkg/liquidity"
	"lp-helper/pkg/mint"
	"lp-helper/pkg/reserves"
	"lp-helper/pkg/types"
)

var quoteAmount string

var quoteCmd = &cobra.Command{
	Use:   "quote <asset-a> <asset-b>",
	Short: "Show pool state, prices and the share a deposit would get",
	Long: `Read the pool of two assets and print its reserves and prices.
With --amount the paired amount and share of pool for depositing that much of
the first asset are shown as well. No wallet is needed.

Examples:
  lp-helper quote ETH 0x6B17...
  lp-helper quote 0xA0b8... 0xdAC1... --amount 10`,
	Args: cobra.ExactArgs(2),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVarP(&quoteAmount, "amount", "a", "", "Amount of the first asset to deposit")
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	env, err := openEnvironment(ctx, cfg, false)
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
	pair, info, derived, err := quotePair(ctx, env, args[0], args[1])
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"pair":         pair.Symbols(),
			"state":        info.State,
			"address":      info.Address,
			"no_liquidity": info.NoLiquidity(),
			"reserve_a":    info.ReserveA.ToExact(),
			"reserve_b":    info.ReserveB.ToExact(),
		}
		if price := info.Price(); price != nil {
			output["price_b_per_a"] = price.ToSignificant(6)
			output["price_a_per_b"] = price.Invert().ToSignificant(6)
		}
		if derived != nil {
			output["amount_a"] = derived.Formatted[types.FieldA]
			output["amount_b"] = derived.Formatted[types.FieldB]
			output["pool_share"] = liquidity.FormatShare(derived.PoolShare)
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayQuote(pair, info, derived)
}

func quotePair(ctx context.Context, env *environment, idA, idB string) (types.Pair, *reserves.PairInfo, *mint.Derived, error) {
	pair, err := env.loadPair(ctx, idA, idB)
	if err != nil {
		return pair, nil, nil, err
	}
	if pair.A.Equals(pair.B) {
		return pair, nil, nil, fmt.Errorf("%w: %s", types.ErrPairInvalid, pair.Symbols())
	}
	info, err := env.calc.Derive(ctx, pair.A, pair.B)
	if err != nil {
		return pair, nil, nil, err
	}
	if quoteAmount == "" {
		return pair, info, nil, nil
	}

	state := mint.NewState()
	state.TypeInput(types.FieldA, quoteAmount, info.NoLiquidity())
	derived := mint.Resolve(state, mint.Inputs{
		Pair: pair,
		Info: info,
	})
	return pair, info, derived, nil
}

func displayQuote(pair types.Pair, info *reserves.PairInfo, d *mint.Derived) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      POOL %s", pair.Symbols())
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  State:        %s\n", getColoredPairState(info))
	if info.Address != "" {
		fmt.Printf("  Pair:         %s\n", color.HiBlackString(info.Address))
	}
	fmt.Printf("  Reserve %s:  %s\n", pair.A, info.ReserveA.ToSignificant(8))
	fmt.Printf("  Reserve %s:  %s\n", pair.B, info.ReserveB.ToSignificant(8))

	if price := info.Price(); price != nil {
		fmt.Printf("\n  Price:        %s %s per %s\n", price.ToSignificant(6), pair.B, pair.A)
		fmt.Printf("                %s %s per %s\n", price.Invert().ToSignificant(6), pair.A, pair.B)
	} else {
		color.Yellow("\n  You are the first liquidity provider.")
		fmt.Println("  The ratio of tokens you add will set the price of this pool.")
	}

	if d != nil {
		fmt.Println()
		for _, f := range types.Fields {
			value := d.Formatted[f]
			if value == "" {
				value = "-"
			}
			fmt.Printf("  Deposit %s:   %s %s\n", f, color.CyanString(value), pair.Get(f))
		}
		fmt.Printf("  Share:        %s\n", liquidity.FormatShare(d.PoolShare))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func getColoredPairState(info *reserves.PairInfo) string {
	switch {
	case info.State == types.PairExists && !info.NoLiquidity():
		return color.GreenString("exists")
	case info.State == types.PairExists || info.State == types.PairDoesNotExist:
		return color.YellowString("no liquidity")
	default:
		return color.RedString(string(info.State))
	}
}
