package gold

import (
	"bytes"
	"fmt"

	"github.com/egaotan/solana-gold/program"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Operation names one user-invokable program instruction.
type Operation string

const (
	OpInitialize  Operation = "initialize"
	OpUpdatePrice Operation = "update_gold_price"
	OpMint        Operation = "mint_gold_tokens"
	OpBuy         Operation = "buy_gold_tokens"
	OpSell        Operation = "sell_gold_tokens"
	OpRedeem      Operation = "redeem_physical_gold"
)

var Operations = []Operation{OpInitialize, OpUpdatePrice, OpMint, OpBuy, OpSell, OpRedeem}

func (o Operation) Discriminator() [DiscriminatorSize]byte {
	return instructionDiscriminator(string(o))
}

type InitializeArgs struct {
	OracleAuthority solana.PublicKey
	CustodyProvider string
}

type MintArgs struct {
	Amount         uint64
	CustodyReceipt string
}

type BuyArgs struct {
	UsdcAmount uint64
}

type SellArgs struct {
	GoldAmount uint64
}

type RedeemArgs struct {
	GoldAmount      uint64
	ShippingAddress string
}

// Request is a fully resolved, unsigned program call.
type Request struct {
	Operation Operation
	Signer    solana.PublicKey
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	// Args holds the scaled arguments, nil for operations without any.
	Args interface{}
	Data []byte
}

func (r *Request) Instruction() solana.Instruction {
	return program.NewInstruction(r.ProgramID, r.Accounts, r.Data)
}

func encodeData(op Operation, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	d := op.Discriminator()
	buf.Write(d[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeArgs reverses the argument encoding of a built request.
func DecodeArgs(data []byte, into interface{}) error {
	if len(data) < DiscriminatorSize {
		return fmt.Errorf("instruction data too short: %d bytes", len(data))
	}
	return bin.NewBorshDecoder(data[DiscriminatorSize:]).Decode(into)
}
