package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lp-helper/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "lp-helper",
	Short: "A CLI for adding liquidity through a swap-and-add helper contract",
	Long: `lp-helper adds liquidity to Uniswap V2 style pools through a helper contract.
Type one side of the deposit and the other side is derived from the pool's
current reserves. When no pool exists yet you set both sides and create it.

Examples:
  lp-helper quote ETH 0x6B17...
  lp-helper add 1 ETH and 400 0x6B17...
  lp-helper add 10 0xA0b8... with 0xdAC1... --approve
  lp-helper status 0x5e1f...
  lp-helper history`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			logger.Silence()
			return
		}
		logger.SetVerbose(verbose)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
