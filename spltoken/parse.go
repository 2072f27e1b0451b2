// Package spltoken decodes token program accounts.
package spltoken

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func ParseAccount(data []byte) (*AccountLayout, error) {
	if len(data) < AccountLayoutSize {
		return nil, fmt.Errorf("token account data size is not valid, expected: %d, actual: %d", AccountLayoutSize, len(data))
	}
	account := &AccountLayout{}
	err := binary.Read(bytes.NewReader(data[:AccountLayoutSize]), binary.LittleEndian, account)
	if err != nil {
		return nil, fmt.Errorf("token account data is not valid, err: %s", err)
	}
	return account, nil
}

// EncodeAccount is the inverse of ParseAccount.
func EncodeAccount(account *AccountLayout) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, account)
	return buf.Bytes()
}
