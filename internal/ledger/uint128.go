package ledger

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ID is an unsigned 128-bit ledger identifier. The ledger service uses
// 128-bit integers for account and transfer IDs; on the wire they travel
// as decimal strings so JSON round-trips never lose precision.
type ID struct {
	Hi uint64
	Lo uint64
}

var ErrInvalidID = errors.New("invalid_ledger_id")

func (id ID) IsZero() bool {
	return id.Hi == 0 && id.Lo == 0
}

func (id ID) big() *big.Int {
	v := new(big.Int).SetUint64(id.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(id.Lo))
}

func (id ID) String() string {
	return id.big().String()
}

// ParseID parses a decimal-string 128-bit identifier.
func ParseID(value string) (ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return ID{}, ErrInvalidID
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 128 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, value)
	}
	lo := new(big.Int).And(v, maxUint64).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	return ID{Hi: hi, Lo: lo}, nil
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// NewRandomID generates a random non-zero 128-bit transfer ID.
func NewRandomID() (ID, error) {
	var buf [16]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return ID{}, fmt.Errorf("generate transfer id: %w", err)
		}
		id := ID{
			Hi: binary.BigEndian.Uint64(buf[:8]),
			Lo: binary.BigEndian.Uint64(buf[8:]),
		}
		if !id.IsZero() {
			return id, nil
		}
	}
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
