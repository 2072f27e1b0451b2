package spltoken

import (
	"github.com/gagliardetto/solana-go"
)

const AccountLayoutSize = 165

// AccountLayout is the classic token account. Token-2022 accounts share the
// same prefix followed by extensions.
type AccountLayout struct {
	Mint                 solana.PublicKey
	Owner                solana.PublicKey
	Amount               uint64
	DelegateOption       [4]byte
	Delegate             solana.PublicKey
	State                uint8
	IsNativeOption       [4]byte
	IsNative             uint64
	DelegatedAmount      uint64
	CloseAuthorityOption [4]byte
	CloseAuthority       solana.PublicKey
}
