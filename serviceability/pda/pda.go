// Package pda derives the program-derived addresses for every serviceability
// account. All seeds start with the shared program prefix; index-keyed
// entities append the 16-byte little-endian account index.
package pda

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

var (
	seedPrefix                  = []byte("doublezero")
	seedGlobalState             = []byte("globalstate")
	seedGlobalConfig            = []byte("config")
	seedProgramConfig           = []byte("programconfig")
	seedLocation                = []byte("location")
	seedExchange                = []byte("exchange")
	seedContributor             = []byte("contributor")
	seedDevice                  = []byte("device")
	seedLink                    = []byte("link")
	seedUser                    = []byte("user")
	seedMulticastGroup          = []byte("multicastgroup")
	seedTenant                  = []byte("tenant")
	seedAccessPass              = []byte("accesspass")
	seedMGroupAllowlist         = []byte("mgroupallowlist")
	seedLinkIds                 = []byte("linkids")
	seedSegmentRoutingIds       = []byte("segmentroutingids")
	seedUserTunnelBlock         = []byte("usertunnelblock")
	seedDeviceTunnelBlock       = []byte("devicetunnelblock")
	seedMulticastGroupBlock     = []byte("multicastgroupblock")
	seedMulticastPublisherBlock = []byte("multicastpublisherblock")
	seedDzPrefixBlock           = []byte("dzprefixblock")
)

func DeriveGlobalStatePDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedGlobalState}, programID)
}

func DeriveGlobalConfigPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedGlobalConfig}, programID)
}

func DeriveProgramConfigPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedProgramConfig}, programID)
}

func indexBytes(index [16]byte) []byte {
	out := make([]byte, 16)
	copy(out, index[:])
	return out
}

func deriveIndexed(programID solana.PublicKey, entitySeed []byte, index [16]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, entitySeed, indexBytes(index)}, programID)
}

func DeriveLocationPDA(programID solana.PublicKey, index [16]byte) (solana.PublicKey, uint8, error) {
	return deriveIndexed(programID, seedLocation, index)
}

func DeriveExchangePDA(programID solana.PublicKey, index [16]byte) (solana.PublicKey, uint8, error) {
	return deriveIndexed(programID, seedExchange, index)
}

func DeriveContributorPDA(programID solana.PublicKey, index [16]byte) (solana.PublicKey, uint8, error) {
	return deriveIndexed(programID, seedContributor, index)
}

func DeriveDevicePDA(programID solana.PublicKey, index [16]byte) (solana.PublicKey, uint8, error) {
	return deriveIndexed(programID, seedDevice, index)
}

func DeriveLinkPDA(programID solana.PublicKey, index [16]byte) (solana.PublicKey, uint8, error) {
	return deriveIndexed(programID, seedLink, index)
}

func DeriveMulticastGroupPDA(programID solana.PublicKey, index [16]byte) (solana.PublicKey, uint8, error) {
	return deriveIndexed(programID, seedMulticastGroup, index)
}

func DeriveTenantPDA(programID solana.PublicKey, index [16]byte) (solana.PublicKey, uint8, error) {
	return deriveIndexed(programID, seedTenant, index)
}

// DeriveUserPDAV1 is the legacy index-keyed user address, still readable for
// users created before the v2 scheme.
func DeriveUserPDAV1(programID solana.PublicKey, index [16]byte) (solana.PublicKey, uint8, error) {
	return deriveIndexed(programID, seedUser, index)
}

// DeriveUserPDA is the v2 user address keyed by (client_ip, user_type), which
// makes one user per client IP and type addressable without the index.
func DeriveUserPDA(programID solana.PublicKey, clientIP [4]byte, userType uint8) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		seedPrefix,
		seedUser,
		clientIP[:],
		{userType},
	}, programID)
}

// DeriveAccessPassPDA is keyed by (client_ip, user_payer). Dynamic passes use
// client IP 0.0.0.0.
func DeriveAccessPassPDA(programID solana.PublicKey, clientIP [4]byte, userPayer solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		seedPrefix,
		seedAccessPass,
		clientIP[:],
		userPayer[:],
	}, programID)
}

// DeriveMGroupAllowlistEntryPDA is keyed by (access pass, multicast group,
// role).
func DeriveMGroupAllowlistEntryPDA(programID solana.PublicKey, accessPass, mgroup solana.PublicKey, role uint8) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		seedPrefix,
		seedMGroupAllowlist,
		accessPass[:],
		mgroup[:],
		{role},
	}, programID)
}

// Global resource-extension pools.

func DeriveLinkIdsPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedLinkIds}, programID)
}

func DeriveSegmentRoutingIdsPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedSegmentRoutingIds}, programID)
}

func DeriveUserTunnelBlockPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedUserTunnelBlock}, programID)
}

func DeriveDeviceTunnelBlockPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedDeviceTunnelBlock}, programID)
}

func DeriveMulticastGroupBlockPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedMulticastGroupBlock}, programID)
}

func DeriveMulticastPublisherBlockPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPrefix, seedMulticastPublisherBlock}, programID)
}

// DeriveDzPrefixBlockPDA addresses the per-device dz-IP bitmap for one of the
// device's dz_prefixes.
func DeriveDzPrefixBlockPDA(programID solana.PublicKey, device solana.PublicKey, prefixIdx uint32) (solana.PublicKey, uint8, error) {
	idx := make([]byte, 4)
	binary.LittleEndian.PutUint32(idx, prefixIdx)
	return solana.FindProgramAddress([][]byte{
		seedPrefix,
		seedDzPrefixBlock,
		device[:],
		idx,
	}, programID)
}
