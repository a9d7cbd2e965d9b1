package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// InfiniteGas is the value the compiler reports when a gas cost is unbounded.
const InfiniteGas GasValue = "infinite"

// GasValue is a gas cost reported by the compiler: a decimal integer or InfiniteGas.
type GasValue string

// UnmarshalJSON accepts both JSON strings and JSON numbers, as different compiler versions emit either.
func (g *GasValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = GasValue(s)
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("gas value must be a string or number: %w", err)
		}
		*g = GasValue(n.String())
	}
	if *g != InfiniteGas && *g != "" {
		if _, err := g.Uint256(); err != nil {
			return err
		}
	}
	return nil
}

// IsInfinite indicates whether the gas cost is unbounded.
func (g GasValue) IsInfinite() bool {
	return g == InfiniteGas
}

// Uint256 returns the gas cost as an integer. Unbounded costs return an error.
func (g GasValue) Uint256() (*uint256.Int, error) {
	if g.IsInfinite() {
		return nil, fmt.Errorf("gas cost is infinite")
	}
	value, err := uint256.FromDecimal(string(g))
	if err != nil {
		return nil, fmt.Errorf("invalid gas value '%s': %w", string(g), err)
	}
	return value, nil
}

// CreationGasEstimates describes the gas required to deploy a contract.
type CreationGasEstimates struct {
	CodeDepositCost GasValue `json:"codeDepositCost"`
	ExecutionCost   GasValue `json:"executionCost"`
	TotalCost       GasValue `json:"totalCost"`
}

// GasEstimates describes the compiler's gas estimates for deploying a contract and calling its functions.
type GasEstimates struct {
	Creation CreationGasEstimates `json:"creation"`
	External map[string]GasValue  `json:"external,omitempty"`
	Internal map[string]GasValue  `json:"internal,omitempty"`
}

// MaxExternalCost returns the largest bounded external function cost, and whether any external function is unbounded.
func (g *GasEstimates) MaxExternalCost() (*uint256.Int, bool) {
	maxCost := uint256.NewInt(0)
	unbounded := false
	for _, cost := range g.External {
		if cost.IsInfinite() {
			unbounded = true
			continue
		}
		value, err := cost.Uint256()
		if err != nil {
			continue
		}
		if value.Gt(maxCost) {
			maxCost = value
		}
	}
	return maxCost, unbounded
}
