package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor"
)

// ContractMetadata is an CBOR-encoded structure describing contract information which is embedded within smart contract
// bytecode by the Solidity compiler (unless explicitly directed not to).
// Reference: https://docs.soliditylang.org/en/v0.8.16/metadata.html
type ContractMetadata map[string]any

// metadataHashPrefixes defines patterns to use in search for CBOR-encoded contract metadata appended to the end of
// bytecode.
var metadataHashPrefixes = [][]byte{
	{0xa1, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a1 65 "bzzr0" 0x58 0x20 (solc <= 0.5.8)
	{0xa2, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a2 65 "bzzr0" 0x58 0x20 (solc >= 0.5.9)
	{0xa2, 0x65, 98, 122, 122, 114, 49, 0x58, 0x20},  // a2 65 "bzzr1" 0x58 0x20 (solc >= 0.5.11)
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a2 64 "ipfs" 0x58 0x22 (solc >= 0.6.0)
}

// bytecodeHashMetadataKeys defines the keys in the CBOR-encoded ContractMetadata which contain bytecode hashes.
var bytecodeHashMetadataKeys = [...]string{
	"bzzr0",
	"bzzr1",
	"ipfs",
}

// ExtractContractMetadata extracts the CBOR metadata appended to bytecode. The trailing two bytes of the bytecode
// encode the metadata length, which is tried first. Older compilers are matched against known prefixes. If no
// metadata could be decoded, nil is returned.
func ExtractContractMetadata(bytecode []byte) ContractMetadata {
	if len(bytecode) > 2 {
		length := int(binary.BigEndian.Uint16(bytecode[len(bytecode)-2:]))
		if start := len(bytecode) - 2 - length; length > 0 && start >= 0 {
			var metadata ContractMetadata
			if err := cbor.Unmarshal(bytecode[start:len(bytecode)-2], &metadata); err == nil && len(metadata) > 0 {
				return metadata
			}
		}
	}

	for _, metadataHashPrefix := range metadataHashPrefixes {
		metadataOffset := bytes.LastIndex(bytecode, metadataHashPrefix)
		if metadataOffset == -1 {
			continue
		}
		var metadata ContractMetadata
		if err := cbor.Unmarshal(bytecode[metadataOffset:], &metadata); err != nil {
			continue
		}
		return metadata
	}
	return nil
}

// ExtractContractMetadataFromHex decodes hex bytecode (optionally 0x-prefixed) and extracts its embedded metadata.
// Bytecode which is not valid hex, such as bytecode with unlinked library placeholders, yields nil.
func ExtractContractMetadataFromHex(bytecode string) ContractMetadata {
	b, err := hex.DecodeString(strings.TrimPrefix(bytecode, "0x"))
	if err != nil {
		return nil
	}
	return ExtractContractMetadata(b)
}

// ExtractBytecodeHash extracts the bytecode hash from given contract metadata and returns the bytes representing the
// hash. If it could not be detected or extracted, nil is returned.
func (m ContractMetadata) ExtractBytecodeHash() []byte {
	for _, possibleMetadataKey := range bytecodeHashMetadataKeys {
		if bytecodeHashData, keyExists := m[possibleMetadataKey]; keyExists {
			if bytecodeHash, ok := bytecodeHashData.([]byte); ok {
				return bytecodeHash
			}
		}
	}
	return nil
}

// CompilerVersion returns the compiler version recorded in the metadata as "major.minor.patch", or an empty string if
// the metadata does not carry one. Compilers encode it as three bytes under the "solc" key.
func (m ContractMetadata) CompilerVersion() string {
	switch v := m["solc"].(type) {
	case []byte:
		if len(v) == 3 {
			return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
		}
	case string:
		return v
	}
	return ""
}
