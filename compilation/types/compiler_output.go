package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

const (
	// SeverityError marks a diagnostic which fails the compilation.
	SeverityError = "error"
	// SeverityWarning marks a diagnostic which is reported but does not fail the compilation.
	SeverityWarning = "warning"
	// SeverityInfo marks an informational diagnostic.
	SeverityInfo = "info"
)

// CompilerOutput is the subset of the standard-json response document consumed by the compilation pipeline.
type CompilerOutput struct {
	// Errors describes every diagnostic the compiler reported, regardless of severity.
	Errors []Diagnostic `json:"errors"`

	// Sources maps each source path to its source unit descriptor.
	Sources map[string]SourceOutput `json:"sources"`

	// Contracts maps each source path to a mapping of contract name to compiled contract.
	Contracts map[string]map[string]ContractOutput `json:"contracts"`
}

// Diagnostic describes a single compiler error, warning, or informational message.
type Diagnostic struct {
	Severity         string          `json:"severity"`
	Type             string          `json:"type"`
	Component        string          `json:"component"`
	Message          string          `json:"message"`
	FormattedMessage string          `json:"formattedMessage"`
	SourceLocation   *SourceLocation `json:"sourceLocation,omitempty"`
}

// SourceLocation describes the span of source a Diagnostic refers to.
type SourceLocation struct {
	File  string `json:"file"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// IsError indicates whether the diagnostic fails the compilation.
func (d Diagnostic) IsError() bool {
	return strings.EqualFold(d.Severity, SeverityError)
}

// String returns the compiler's formatted message if one was provided, otherwise a compact rendering of the
// diagnostic.
func (d Diagnostic) String() string {
	if formatted := strings.TrimSpace(d.FormattedMessage); formatted != "" {
		return formatted
	}
	msg := d.Message
	if d.Type != "" {
		msg = d.Type + ": " + msg
	}
	if d.SourceLocation != nil && d.SourceLocation.File != "" {
		msg = fmt.Sprintf("%s:%d:%d: %s", d.SourceLocation.File, d.SourceLocation.Start, d.SourceLocation.End, msg)
	}
	return msg
}

// SourceOutput describes a source unit in the compiler output.
type SourceOutput struct {
	ID int `json:"id"`
}

// ContractOutput describes a single compiled contract in the compiler output.
type ContractOutput struct {
	ABI      json.RawMessage `json:"abi"`
	Metadata string          `json:"metadata"`
	EVM      EVMOutput       `json:"evm"`
}

// EVMOutput describes the EVM-related outputs of a compiled contract.
type EVMOutput struct {
	Bytecode          BytecodeOutput    `json:"bytecode"`
	DeployedBytecode  BytecodeOutput    `json:"deployedBytecode"`
	GasEstimates      *GasEstimates     `json:"gasEstimates,omitempty"`
	MethodIdentifiers map[string]string `json:"methodIdentifiers"`
}

// BytecodeOutput describes a bytecode object in the compiler output. Object is hex encoded without a 0x prefix and may
// contain unlinked library placeholders.
type BytecodeOutput struct {
	Object string `json:"object"`
}

// ParseCompilerOutput decodes a standard-json response document. Any structural mismatch between the document and the
// consumed schema is returned as an error rather than being silently ignored.
func ParseCompilerOutput(data []byte) (*CompilerOutput, error) {
	var output CompilerOutput
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&output); err != nil {
		return nil, errors.WithStack(err)
	}
	if decoder.More() {
		return nil, errors.New("unexpected trailing data after compiler output document")
	}
	return &output, nil
}

// ErrorDiagnostics returns every diagnostic which fails the compilation, in the order they were reported.
func (o *CompilerOutput) ErrorDiagnostics() []Diagnostic {
	diagnostics := make([]Diagnostic, 0)
	for _, d := range o.Errors {
		if d.IsError() {
			diagnostics = append(diagnostics, d)
		}
	}
	return diagnostics
}

// NonErrorDiagnostics returns every diagnostic which does not fail the compilation, in the order they were reported.
func (o *CompilerOutput) NonErrorDiagnostics() []Diagnostic {
	diagnostics := make([]Diagnostic, 0)
	for _, d := range o.Errors {
		if !d.IsError() {
			diagnostics = append(diagnostics, d)
		}
	}
	return diagnostics
}

// Validate verifies every contract in the output is internally consistent.
func (o *CompilerOutput) Validate() error {
	for sourcePath, contracts := range o.Contracts {
		for name, contract := range contracts {
			if err := contract.Validate(); err != nil {
				return errors.Wrapf(err, "invalid output for contract '%s:%s'", sourcePath, name)
			}
		}
	}
	return nil
}

// ParsedABI parses the contract's ABI definition. A missing ABI is treated as empty.
func (c *ContractOutput) ParsedABI() (*abi.ABI, error) {
	return ParseABI(c.ABI)
}

// Validate ensures the ABI is well-formed, bytecode objects are hex (or unlinked placeholders), and every method
// identifier matches the selector of its signature.
func (c *ContractOutput) Validate() error {
	if _, err := c.ParsedABI(); err != nil {
		return err
	}
	if err := validateBytecodeObject(c.EVM.Bytecode.Object); err != nil {
		return errors.Wrap(err, "invalid bytecode")
	}
	if err := validateBytecodeObject(c.EVM.DeployedBytecode.Object); err != nil {
		return errors.Wrap(err, "invalid deployed bytecode")
	}
	for signature, selector := range c.EVM.MethodIdentifiers {
		if expected := MethodSelector(signature); !strings.EqualFold(expected, selector) {
			return fmt.Errorf("method identifier for '%s' is %s but its selector is %s", signature, selector, expected)
		}
	}
	return nil
}

// ParseABI parses a JSON ABI definition. A missing or null ABI is treated as empty.
func ParseABI(definition json.RawMessage) (*abi.ABI, error) {
	trimmed := bytes.TrimSpace(definition)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("[]")
	}
	result, err := abi.JSON(bytes.NewReader(trimmed))
	if err != nil {
		return nil, errors.Wrap(err, "could not parse ABI definition")
	}
	return &result, nil
}

// MethodSelector computes the 4-byte function selector for a canonical signature such as "transfer(address,uint256)",
// returned as 8 lowercase hex characters.
func MethodSelector(signature string) string {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(signature))
	return hex.EncodeToString(hasher.Sum(nil)[:4])
}

// DeriveMethodIdentifiers computes the signature-to-selector mapping for every method in an ABI.
func DeriveMethodIdentifiers(contractAbi *abi.ABI) map[string]string {
	identifiers := make(map[string]string, len(contractAbi.Methods))
	for _, method := range contractAbi.Methods {
		identifiers[method.Sig] = hex.EncodeToString(method.ID)
	}
	return identifiers
}

// validateBytecodeObject verifies a bytecode object is hex, ignoring unlinked library placeholders.
func validateBytecodeObject(object string) error {
	stripped := libraryPlaceholderExp.ReplaceAllStringFunc(strings.TrimPrefix(object, "0x"), func(s string) string {
		return strings.Repeat("0", len(s))
	})
	if len(stripped)%2 != 0 {
		return fmt.Errorf("bytecode has odd length %d", len(stripped))
	}
	if _, err := hex.DecodeString(stripped); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
