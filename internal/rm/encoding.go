// encoding.go - deterministic CBOR wire codec.
//
// Core-deterministic encoding keeps transaction bytes canonical, so a
// transaction digest is stable across encoders.
package rm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// transactionWire sheds Transaction's method set so the codec encodes the
// struct fields instead of recursing into MarshalBinary/UnmarshalBinary.
type transactionWire Transaction

// MarshalBinary encodes the transaction to canonical CBOR.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	return encMode.Marshal((*transactionWire)(tx))
}

// UnmarshalBinary decodes a transaction from CBOR.
func (tx *Transaction) UnmarshalBinary(b []byte) error {
	if err := decMode.Unmarshal(b, (*transactionWire)(tx)); err != nil {
		return fmt.Errorf("rm: decode transaction: %w", err)
	}
	return nil
}

// EncodeComplianceInstance encodes an instance for a proof backend.
func EncodeComplianceInstance(ci *ComplianceInstance) ([]byte, error) {
	return encMode.Marshal(ci)
}

// DecodeComplianceInstance decodes an instance produced by
// EncodeComplianceInstance.
func DecodeComplianceInstance(b []byte) (*ComplianceInstance, error) {
	var ci ComplianceInstance
	if err := decMode.Unmarshal(b, &ci); err != nil {
		return nil, fmt.Errorf("rm: decode compliance instance: %w", err)
	}
	return &ci, nil
}

// EncodeLogicInstance encodes a logic instance for a proof backend.
func EncodeLogicInstance(li *LogicInstance) ([]byte, error) {
	return encMode.Marshal(li)
}

// DecodeLogicInstance decodes a logic instance produced by
// EncodeLogicInstance.
func DecodeLogicInstance(b []byte) (*LogicInstance, error) {
	var li LogicInstance
	if err := decMode.Unmarshal(b, &li); err != nil {
		return nil, fmt.Errorf("rm: decode logic instance: %w", err)
	}
	return &li, nil
}
