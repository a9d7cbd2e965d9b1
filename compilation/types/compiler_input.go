package types

import "github.com/crytic/solbuild/utils"

// SolidityLanguage is the language identifier used in standard-json compiler input documents.
const SolidityLanguage = "Solidity"

// DefaultOutputSelection describes the compiler outputs requested for every contract in every source.
var DefaultOutputSelection = []string{
	"abi",
	"evm.bytecode",
	"evm.deployedBytecode",
	"evm.gasEstimates",
	"evm.methodIdentifiers",
	"metadata",
}

// CompilerInput is the standard-json request document sent to the compiler.
type CompilerInput struct {
	Language string                 `json:"language"`
	Sources  map[string]SourceInput `json:"sources"`
	Settings CompilerSettings       `json:"settings"`
}

// SourceInput describes a single source unit within a CompilerInput.
type SourceInput struct {
	Content string `json:"content"`
}

// CompilerSettings describes the settings section of a CompilerInput.
type CompilerSettings struct {
	Optimizer       OptimizerSettings              `json:"optimizer"`
	Remappings      []string                       `json:"remappings,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// OptimizerSettings describes whether the optimizer is enabled and how many runs it should be tuned for.
type OptimizerSettings struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// NewCompilerInput creates a CompilerInput for the provided sources (key to content) with the fixed output selection.
func NewCompilerInput(sources map[string]string, optimizer OptimizerSettings, remappings []Remapping) *CompilerInput {
	input := &CompilerInput{
		Language: SolidityLanguage,
		Sources:  make(map[string]SourceInput, len(sources)),
		Settings: CompilerSettings{
			Optimizer: optimizer,
			OutputSelection: map[string]map[string][]string{
				"*": {"*": DefaultOutputSelection},
			},
		},
	}
	for key, content := range sources {
		input.Sources[key] = SourceInput{Content: content}
	}
	if len(remappings) > 0 {
		input.Settings.Remappings = utils.SliceSelect(remappings, Remapping.String)
	}
	return input
}
