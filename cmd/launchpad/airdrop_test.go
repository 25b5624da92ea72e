package main

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecipients(t *testing.T) {
	input := strings.Join([]string{
		"address,amount",
		"# team",
		"0x0000000000000000000000000000000000000001, 1.5",
		"0x0000000000000000000000000000000000000002,2",
	}, "\n")

	recipients, amounts, err := readRecipients(strings.NewReader(input), 6)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
		common.HexToAddress("0x0000000000000000000000000000000000000002"),
	}, recipients)
	require.Len(t, amounts, 2)
	assert.Equal(t, 0, amounts[0].Cmp(big.NewInt(1_500_000)))
	assert.Equal(t, 0, amounts[1].Cmp(big.NewInt(2_000_000)))
}

func TestReadRecipientsRejectsBadRows(t *testing.T) {
	_, _, err := readRecipients(strings.NewReader("0x01,1\n"), 18)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")

	_, _, err = readRecipients(strings.NewReader("0x0000000000000000000000000000000000000001,abc\n"), 18)
	require.Error(t, err)
}
