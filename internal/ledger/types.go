package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// EntryFunction identifies a Move function call and its arguments.
// Arguments use the node's JSON encoding; see [Address], [Bytes] and [U64].
type EntryFunction struct {
	// Module is "<address>::<module>".
	Module string
	// Function is the function name within the module.
	Function string
	// TypeArgs are the generic type arguments, usually empty.
	TypeArgs []string
	// Args are the JSON-encoded call arguments.
	Args []any
}

// ID returns the fully qualified function id "<address>::<module>::<function>".
func (f EntryFunction) ID() string {
	return f.Module + "::" + f.Function
}

// Transaction is a committed (or pending) transaction as reported by the node.
type Transaction struct {
	Hash     string `json:"hash"`
	Type     string `json:"type"`
	Sender   string `json:"sender,omitempty"`
	Version  uint64 `json:"version,string,omitempty"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status,omitempty"`
}

// Pending reports whether the node has not committed the transaction yet.
func (t *Transaction) Pending() bool {
	return t.Type == "pending_transaction"
}

// Signer signs transactions on behalf of one account.
type Signer interface {
	// Address returns the 0x-prefixed account address.
	Address() string
	// PublicKey returns the raw ed25519 public key.
	PublicKey() []byte
	// Sign signs an encoded submission message.
	Sign(message []byte) []byte
}

// Client is the subset of ledger operations used by the registry client.
type Client interface {
	// SubmitAndWait signs and submits fn, then blocks until the transaction
	// is committed or ctx is done.
	SubmitAndWait(ctx context.Context, signer Signer, fn EntryFunction) (*Transaction, error)

	// View calls a read-only view function and returns its raw results.
	View(ctx context.Context, fn EntryFunction) ([]json.RawMessage, error)
}

// Address encodes an account address argument.
func Address(addr string) any {
	return NormalizeAddress(addr)
}

// Bytes encodes a vector<u8> argument as 0x-prefixed hex.
func Bytes(b []byte) any {
	return "0x" + hex.EncodeToString(b)
}

// BytesText decodes the 0x-hex rendering of a vector<u8> holding UTF-8
// text. Anything else, including odd-length hex and non-UTF-8 bytes, is
// returned unchanged.
func BytesText(raw string) string {
	if !strings.HasPrefix(raw, "0x") || len(raw)%2 != 0 {
		return raw
	}
	b, err := hex.DecodeString(raw[2:])
	if err != nil || !utf8.Valid(b) {
		return raw
	}
	return string(b)
}

// U64 encodes a u64 argument. The node expects 64-bit integers as strings.
func U64(n uint64) any {
	return strconv.FormatUint(n, 10)
}

// U8 encodes a u8 argument.
func U8(n uint8) any {
	return n
}

// NormalizeAddress lower-cases addr and ensures the 0x prefix.
func NormalizeAddress(addr string) string {
	if len(addr) >= 2 && (addr[:2] == "0x" || addr[:2] == "0X") {
		addr = addr[2:]
	}
	out := make([]byte, 0, len(addr)+2)
	out = append(out, '0', 'x')
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if c >= 'A' && c <= 'F' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
