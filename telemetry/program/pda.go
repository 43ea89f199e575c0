package telemetry

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// DeriveDeviceLatencySamplesPDA derives the PDA for a device latency samples
// account, keyed by the origin/target devices, the link sampled over, and the
// epoch.
func DeriveDeviceLatencySamplesPDA(
	programID solana.PublicKey,
	originDevicePK solana.PublicKey,
	targetDevicePK solana.PublicKey,
	linkPK solana.PublicKey,
	epoch uint64,
) (solana.PublicKey, uint8, error) {
	epochBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(epochBytes, epoch)

	seeds := [][]byte{
		[]byte(TelemetrySeedPrefix),
		[]byte(DeviceLatencySamplesSeed),
		originDevicePK[:],
		targetDevicePK[:],
		linkPK[:],
		epochBytes,
	}

	return solana.FindProgramAddress(seeds, programID)
}

// DeriveInternetLatencySamplesPDA derives the PDA for an internet latency
// samples account, keyed by the data provider and the origin/target
// exchanges, per epoch.
func DeriveInternetLatencySamplesPDA(
	programID solana.PublicKey,
	dataProviderName string,
	originExchangePK solana.PublicKey,
	targetExchangePK solana.PublicKey,
	epoch uint64,
) (solana.PublicKey, uint8, error) {
	epochBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(epochBytes, epoch)

	seeds := [][]byte{
		[]byte(TelemetrySeedPrefix),
		[]byte(InternetLatencySamplesSeed),
		[]byte(dataProviderName),
		originExchangePK[:],
		targetExchangePK[:],
		epochBytes,
	}

	return solana.FindProgramAddress(seeds, programID)
}
