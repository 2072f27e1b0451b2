package gold

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const DiscriminatorSize = 8

var GoldStateDiscriminator = accountDiscriminator("GoldState")

// GoldState is the protocol singleton stored at the "gold_state" address.
type GoldState struct {
	Authority         solana.PublicKey `json:"authority"`
	OracleAuthority   solana.PublicKey `json:"oracle_authority"`
	CustodyProvider   string           `json:"custody_provider"`
	GoldPriceUsdCents uint64           `json:"gold_price_usd_cents"`
	TotalTokensMinted uint64           `json:"total_tokens_minted"`
}

func accountDiscriminator(name string) [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	h := sha256.Sum256([]byte("account:" + name))
	copy(d[:], h[:DiscriminatorSize])
	return d
}

func instructionDiscriminator(name string) [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	h := sha256.Sum256([]byte("global:" + name))
	copy(d[:], h[:DiscriminatorSize])
	return d
}

// DecodeGoldState parses the account bytes. Trailing bytes after the known
// fields are ignored.
func DecodeGoldState(data []byte) (*GoldState, error) {
	if len(data) < DiscriminatorSize {
		return nil, fmt.Errorf("gold state too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:DiscriminatorSize], GoldStateDiscriminator[:]) {
		return nil, fmt.Errorf("account is not a gold state")
	}
	state := &GoldState{}
	if err := bin.NewBorshDecoder(data[DiscriminatorSize:]).Decode(state); err != nil {
		return nil, fmt.Errorf("decode gold state: %w", err)
	}
	return state, nil
}

func (s *GoldState) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(GoldStateDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
