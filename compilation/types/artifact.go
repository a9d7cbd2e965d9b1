package types

import (
	"encoding/hex"
	"encoding/json"
	"sort"
)

const (
	// MetadataSuffixHexLength is the length, in hex characters, of the metadata hash section the compiler appends to
	// deployed bytecode: a 32-byte hash plus a 2-byte trailer.
	MetadataSuffixHexLength = 68

	// SwarmHashHexLength is the length, in hex characters, of the hash at the start of the metadata hash section.
	SwarmHashHexLength = 64
)

// Artifact describes the normalized build result for a single contract.
type Artifact struct {
	// Name is the contract name the artifact is keyed by.
	Name string `json:"name"`

	// Code is the creation bytecode as emitted by the compiler, hex encoded without a 0x prefix.
	Code string `json:"code"`

	// RuntimeBytecode is the deployed bytecode as emitted by the compiler.
	RuntimeBytecode string `json:"runtimeBytecode"`

	// RealRuntimeBytecode is RuntimeBytecode with the trailing metadata hash section removed.
	RealRuntimeBytecode string `json:"realRuntimeBytecode"`

	// SwarmHash is the metadata hash taken from the trailing section of RuntimeBytecode.
	SwarmHash string `json:"swarmHash"`

	// GasEstimates holds the compiler's gas estimates, if it produced any.
	GasEstimates *GasEstimates `json:"gasEstimates,omitempty"`

	// FunctionHashes maps canonical function signatures to their 4-byte selectors as hex.
	FunctionHashes map[string]string `json:"functionHashes"`

	// AbiDefinition is the contract ABI as JSON.
	AbiDefinition json.RawMessage `json:"abiDefinition"`

	// Metadata is the compiler metadata JSON string.
	Metadata string `json:"metadata"`

	// Filename is the source path with any configured source directory prefix removed.
	Filename string `json:"filename"`

	// OriginalFilename is the source path as reported by the compiler.
	OriginalFilename string `json:"originalFilename"`

	// EmbeddedMetadata is the CBOR metadata decoded from the end of the deployed bytecode, if present.
	EmbeddedMetadata ContractMetadata `json:"-"`

	// CompilerVersion is the compiler version recorded in EmbeddedMetadata, if any.
	CompilerVersion string `json:"compilerVersion,omitempty"`

	// BytecodeHash is the hex encoded metadata hash (bzzr0, bzzr1 or ipfs) recorded in EmbeddedMetadata, if any.
	BytecodeHash string `json:"bytecodeHash,omitempty"`

	// LibraryPlaceholders lists unlinked library references found in the creation bytecode.
	LibraryPlaceholders []string `json:"libraryPlaceholders,omitempty"`
}

// Artifacts maps contract names to their artifacts.
type Artifacts map[string]*Artifact

// Names returns the contract names in sorted order.
func (a Artifacts) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitRuntimeBytecode splits deployed bytecode into the code preceding the metadata hash section and the hash at the
// start of that section. Bytecode too short to hold the section yields two empty strings.
func SplitRuntimeBytecode(runtimeBytecode string) (realRuntimeBytecode string, swarmHash string) {
	if len(runtimeBytecode) < MetadataSuffixHexLength {
		return "", ""
	}
	suffixStart := len(runtimeBytecode) - MetadataSuffixHexLength
	return runtimeBytecode[:suffixStart], runtimeBytecode[suffixStart : suffixStart+SwarmHashHexLength]
}

// NewArtifact creates an artifact for a compiled contract. If the compiler omitted method identifiers, they are
// derived from the ABI.
func NewArtifact(name string, filename string, originalFilename string, contract ContractOutput) (*Artifact, error) {
	contractAbi, err := contract.ParsedABI()
	if err != nil {
		return nil, err
	}

	functionHashes := contract.EVM.MethodIdentifiers
	if len(functionHashes) == 0 {
		functionHashes = DeriveMethodIdentifiers(contractAbi)
	}

	abiDefinition := contract.ABI
	if len(abiDefinition) == 0 {
		abiDefinition = json.RawMessage("[]")
	}

	runtimeBytecode := contract.EVM.DeployedBytecode.Object
	realRuntimeBytecode, swarmHash := SplitRuntimeBytecode(runtimeBytecode)
	embeddedMetadata := ExtractContractMetadataFromHex(runtimeBytecode)

	return &Artifact{
		Name:                name,
		Code:                contract.EVM.Bytecode.Object,
		RuntimeBytecode:     runtimeBytecode,
		RealRuntimeBytecode: realRuntimeBytecode,
		SwarmHash:           swarmHash,
		GasEstimates:        contract.EVM.GasEstimates,
		FunctionHashes:      functionHashes,
		AbiDefinition:       abiDefinition,
		Metadata:            contract.Metadata,
		Filename:            filename,
		OriginalFilename:    originalFilename,
		EmbeddedMetadata:    embeddedMetadata,
		CompilerVersion:     embeddedMetadata.CompilerVersion(),
		BytecodeHash:        hex.EncodeToString(embeddedMetadata.ExtractBytecodeHash()),
		LibraryPlaceholders: FindLibraryPlaceholders(contract.EVM.Bytecode.Object),
	}, nil
}
