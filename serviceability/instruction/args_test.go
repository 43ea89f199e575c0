package instruction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDecodeCreateDevice(t *testing.T) {
	t.Parallel()

	args := CreateDeviceArgs{
		Code:       "ber-dz001",
		DeviceType: 2,
		PublicIp:   [4]byte{203, 0, 113, 10},
		DzPrefixes: [][5]byte{{100, 0, 0, 0, 24}},
		MgmtVrf:    "mgmt",
		MaxUsers:   128,
	}

	tag, decoded, err := Decode(args.Encode())
	require.NoError(t, err)
	require.Equal(t, TagCreateDevice, tag)
	require.Equal(t, args, decoded)
}

func TestDecodeUpdateLinkOptionals(t *testing.T) {
	t.Parallel()

	// only some fields set
	args := UpdateLinkArgs{
		Bandwidth:       ptr(uint64(400_000_000_000)),
		DelayOverrideNs: ptr(uint64(2_000_000)),
	}

	tag, decoded, err := Decode(args.Encode())
	require.NoError(t, err)
	require.Equal(t, TagUpdateLink, tag)

	got := decoded.(UpdateLinkArgs)
	require.Nil(t, got.Code)
	require.Nil(t, got.Mtu)
	require.NotNil(t, got.Bandwidth)
	require.Equal(t, uint64(400_000_000_000), *got.Bandwidth)
	require.Equal(t, uint64(2_000_000), *got.DelayOverrideNs)
}

func TestDecodeNoArgInstructions(t *testing.T) {
	t.Parallel()

	for _, tag := range []Tag{
		TagActivateDevice, TagCloseAccountUser, TagSuspendLocation,
		TagDeleteLinkAtomic, TagCloseAccessPass,
	} {
		got, decoded, err := Decode(NoArgs{Tag: tag}.Encode())
		require.NoError(t, err)
		require.Equal(t, tag, got)
		require.Equal(t, NoArgs{Tag: tag}, decoded)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	t.Parallel()

	_, _, err := Decode([]byte{250})
	require.Error(t, err)

	_, _, err = Decode(nil)
	require.Error(t, err)
}

func TestTagNamesStable(t *testing.T) {
	t.Parallel()

	require.Equal(t, "create_user", TagCreateUser.String())
	require.Equal(t, "set_access_pass", TagSetAccessPass.String())
	require.Equal(t, "unknown", Tag(200).String())
}
