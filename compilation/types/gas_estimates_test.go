package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGasValueUnmarshal verifies gas values are accepted as strings or numbers.
func TestGasValueUnmarshal(t *testing.T) {
	var estimates GasEstimates
	err := json.Unmarshal([]byte(`{
		"creation": {"codeDepositCost": 52000, "executionCost": "infinite", "totalCost": "infinite"},
		"external": {"a()": "2400", "b()": 300, "c()": "infinite"},
		"internal": {"d()": "infinite"}
	}`), &estimates)
	require.NoError(t, err)

	cost, err := estimates.Creation.CodeDepositCost.Uint256()
	require.NoError(t, err)
	assert.EqualValues(t, 52000, cost.Uint64())

	_, err = estimates.Creation.TotalCost.Uint256()
	assert.Error(t, err)

	maxCost, unbounded := estimates.MaxExternalCost()
	assert.EqualValues(t, 2400, maxCost.Uint64())
	assert.True(t, unbounded)
}

// TestGasValueRejectsInvalid verifies non-numeric, non-infinite values are rejected.
func TestGasValueRejectsInvalid(t *testing.T) {
	var value GasValue
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &value))
	assert.Error(t, json.Unmarshal([]byte(`true`), &value))
	assert.Error(t, json.Unmarshal([]byte(`-5`), &value))
}
