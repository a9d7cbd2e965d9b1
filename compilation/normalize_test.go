package compilation

import (
	"bytes"
	"testing"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAddArtifactReportsGasEstimates(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(zerolog.DebugLevel)
	logger.AddWriter(&buf, logging.UNSTRUCTURED, false)

	artifacts := make(types.Artifacts)
	addArtifact(logger, artifacts, &types.Artifact{
		Name: "Token",
		GasEstimates: &types.GasEstimates{
			External: map[string]types.GasValue{
				"transfer(address,uint256)": "51234",
				"balanceOf(address)":        "2400",
				"batch(address[])":          "infinite",
			},
		},
	})
	assert.Contains(t, artifacts, "Token")
	assert.Contains(t, buf.String(), "costs at most 51234 gas")
	assert.Contains(t, buf.String(), "unbounded gas cost")

	// Artifacts without estimates are not reported.
	buf.Reset()
	addArtifact(logger, artifacts, &types.Artifact{Name: "Library"})
	assert.NotContains(t, buf.String(), "gas")
}
