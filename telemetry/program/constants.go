package telemetry

// InstructionType is the single-byte discriminator at offset 0 of every
// telemetry instruction payload.
type InstructionType uint8

const (
	InitializeDeviceLatencySamplesInstructionIndex   InstructionType = 0
	WriteDeviceLatencySamplesInstructionIndex        InstructionType = 1
	InitializeInternetLatencySamplesInstructionIndex InstructionType = 2
	WriteInternetLatencySamplesInstructionIndex      InstructionType = 3
)

const (
	TelemetrySeedPrefix        = "telemetry"
	DeviceLatencySamplesSeed   = "dzlatency"
	InternetLatencySamplesSeed = "inetlatency"

	// MaxSamplesPerBatch is the maximum number of samples that can be written in a single batch.
	//
	// Messages transmitted to the validators must not exceed the IPv6 MTU size to ensure fast
	// and reliable network transmission of cluster info over UDP. The networking stack uses a
	// conservative MTU size of 1280 bytes which, after accounting for headers, leaves 1232 bytes
	// for packet data like serialized transactions.
	MaxSamplesPerBatch = 245 // 980 bytes

	// MaxDeviceLatencySamplesPerAccount is the maximum number of samples that can be written to
	// a single device latency samples account. This provides space for just over 12 samples per
	// minute, or 1 sample every 5 seconds.
	MaxDeviceLatencySamplesPerAccount = 35_000

	// MaxInternetLatencySamplesPerAccount is the maximum number of samples that can be written
	// to an internet latency samples account. This provides space for just over 1 sample per
	// minute.
	MaxInternetLatencySamplesPerAccount = 3_000
)
