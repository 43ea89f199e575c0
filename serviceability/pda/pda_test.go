package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestSingletonPDAsAreDistinct(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	gs, _, err := DeriveGlobalStatePDA(programID)
	require.NoError(t, err)
	gc, _, err := DeriveGlobalConfigPDA(programID)
	require.NoError(t, err)
	pc, _, err := DeriveProgramConfigPDA(programID)
	require.NoError(t, err)

	require.False(t, gs.IsZero())
	require.NotEqual(t, gs, gc)
	require.NotEqual(t, gc, pc)
	require.NotEqual(t, gs, pc)
}

func TestIndexedPDADeterminism(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	index := [16]byte{1}

	a, bumpA, err := DeriveDevicePDA(programID, index)
	require.NoError(t, err)
	b, bumpB, err := DeriveDevicePDA(programID, index)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, bumpA, bumpB)

	c, _, err := DeriveDevicePDA(programID, [16]byte{2})
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	// same index, different entity seed
	d, _, err := DeriveLinkPDA(programID, index)
	require.NoError(t, err)
	require.NotEqual(t, a, d)
}

func TestUserPDAV2KeyedByIPAndType(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	ip := [4]byte{10, 0, 0, 1}

	unicast, _, err := DeriveUserPDA(programID, ip, 0)
	require.NoError(t, err)
	multicast, _, err := DeriveUserPDA(programID, ip, 3)
	require.NoError(t, err)
	require.NotEqual(t, unicast, multicast)

	otherIP, _, err := DeriveUserPDA(programID, [4]byte{10, 0, 0, 2}, 0)
	require.NoError(t, err)
	require.NotEqual(t, unicast, otherIP)

	// v1 index addressing stays distinct from v2
	v1, _, err := DeriveUserPDAV1(programID, [16]byte{1})
	require.NoError(t, err)
	require.NotEqual(t, unicast, v1)
}

func TestAccessPassPDA(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()

	fixed, _, err := DeriveAccessPassPDA(programID, [4]byte{10, 0, 0, 1}, payer)
	require.NoError(t, err)
	dynamic, _, err := DeriveAccessPassPDA(programID, [4]byte{0, 0, 0, 0}, payer)
	require.NoError(t, err)
	require.NotEqual(t, fixed, dynamic)

	otherPayer, _, err := DeriveAccessPassPDA(programID, [4]byte{10, 0, 0, 1}, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.NotEqual(t, fixed, otherPayer)
}

func TestMGroupAllowlistEntryPDARoleSeparation(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	accessPass := solana.NewWallet().PublicKey()
	mgroup := solana.NewWallet().PublicKey()

	pub, _, err := DeriveMGroupAllowlistEntryPDA(programID, accessPass, mgroup, 0)
	require.NoError(t, err)
	sub, _, err := DeriveMGroupAllowlistEntryPDA(programID, accessPass, mgroup, 1)
	require.NoError(t, err)
	require.NotEqual(t, pub, sub)
}

func TestDzPrefixBlockPDAPerDevice(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	device := solana.NewWallet().PublicKey()

	first, _, err := DeriveDzPrefixBlockPDA(programID, device, 0)
	require.NoError(t, err)
	second, _, err := DeriveDzPrefixBlockPDA(programID, device, 1)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	otherDevice, _, err := DeriveDzPrefixBlockPDA(programID, solana.NewWallet().PublicKey(), 0)
	require.NoError(t, err)
	require.NotEqual(t, first, otherDevice)
}
