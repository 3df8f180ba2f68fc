package parser

import (
	"fmt"
	"regexp"
	"strings"

	"lp-helper/pkg/types"
)

const amountPattern = `(\d+\.?\d*|\.\d+)`

var (
	// "1 ETH and 400 0xToken", "1 ETH + 400 0xToken"
	bothTypedPattern = regexp.MustCompile(`(?i)^` + amountPattern + `\s+(\S+)\s+(?:AND|\+)\s+` + amountPattern + `\s+(\S+)$`)
	// "10 0xTokenX with 0xTokenY"
	firstTypedPattern = regexp.MustCompile(`(?i)^` + amountPattern + `\s+(\S+)\s+(?:AND|\+|WITH)\s+(\S+)$`)
	// "0xTokenX with 20 0xTokenY"
	secondTypedPattern = regexp.MustCompile(`(?i)^(\S+)\s+(?:AND|\+|WITH)\s+` + amountPattern + `\s+(\S+)$`)
)

// ParseAddCommand parses a natural language add-liquidity command
// Examples:
//   - "add 1 ETH and 400 0x6B17..."
//   - "10 0xA0b8... with 0xdAC1..."
//   - "0xA0b8... with 20 0xdAC1..."
//
// The first typed amount is the independent field.
func ParseAddCommand(command string) (*types.AddRequest, error) {
	command = strings.Join(strings.Fields(command), " ")
	if len(command) >= 4 && strings.EqualFold(command[:4], "add ") {
		command = command[4:]
	}

	if m := bothTypedPattern.FindStringSubmatch(command); m != nil {
		return &types.AddRequest{
			AmountA:     m[1],
			AssetA:      m[2],
			AmountB:     m[3],
			AssetB:      m[4],
			Independent: types.FieldA,
		}, nil
	}

	if m := firstTypedPattern.FindStringSubmatch(command); m != nil {
		return &types.AddRequest{
			AmountA:     m[1],
			AssetA:      m[2],
			AssetB:      m[3],
			Independent: types.FieldA,
		}, nil
	}

	if m := secondTypedPattern.FindStringSubmatch(command); m != nil {
		return &types.AddRequest{
			AssetA:      m[1],
			AmountB:     m[2],
			AssetB:      m[3],
			Independent: types.FieldB,
		}, nil
	}

	return nil, fmt.Errorf("invalid add command format. Expected: 'add <amount> <asset> and [<amount>] <asset>' (e.g., 'add 1 ETH and 400 0x6B17...')")
}

// ValidateAddRequest validates that an add request has all required fields
func ValidateAddRequest(req *types.AddRequest) error {
	if req.AssetA == "" {
		return fmt.Errorf("first asset is required")
	}
	if req.AssetB == "" {
		return fmt.Errorf("second asset is required")
	}
	if req.TypedValue(req.Independent) == "" {
		return fmt.Errorf("amount is required")
	}
	return nil
}
