package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the chain-specific transaction bundle returned by the backend.
// Exactly one of EVM or Solana is set, matching Family.
type Payload struct {
	Family ChainFamily
	EVM    *EVMPayload
	Solana *SolanaPayload
}

// EVMPayload carries the call the deposit transaction must make.
type EVMPayload struct {
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data"`
}

// UnmarshalJSON accepts value as either a JSON string or a JSON number.
func (p *EVMPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		To    string          `json:"to"`
		Value json.RawMessage `json:"value"`
		Data  string          `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.To = raw.To
	p.Data = raw.Data
	p.Value = "0"

	v := strings.TrimSpace(string(raw.Value))
	switch {
	case v == "" || v == "null":
	case strings.HasPrefix(v, `"`):
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
		if s != "" {
			p.Value = s
		}
	default:
		p.Value = v
	}
	return nil
}

// SolanaPayload is the base64 encoded, partially built transaction.
type SolanaPayload struct {
	Transaction string
}
