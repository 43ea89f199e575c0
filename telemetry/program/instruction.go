package telemetry

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// Instruction payloads are borsh-encoded with a single-byte discriminator
// first, matching the program's wire format.

type InitializeDeviceLatencySamplesArgs struct {
	Discriminator                uint8
	Epoch                        uint64
	SamplingIntervalMicroseconds uint64
}

type WriteDeviceLatencySamplesArgs struct {
	Discriminator              uint8
	StartTimestampMicroseconds uint64
	Samples                    []uint32
}

type InitializeInternetLatencySamplesArgs struct {
	Discriminator                uint8
	DataProviderName             string
	Epoch                        uint64
	SamplingIntervalMicroseconds uint64
}

type WriteInternetLatencySamplesArgs struct {
	Discriminator              uint8
	StartTimestampMicroseconds uint64
	Samples                    []uint32
}

type InitializeDeviceLatencySamplesInstructionConfig struct {
	AgentPK                      solana.PublicKey
	OriginDevicePK               solana.PublicKey
	TargetDevicePK               solana.PublicKey
	LinkPK                       solana.PublicKey
	Epoch                        uint64
	SamplingIntervalMicroseconds uint64
}

func (c *InitializeDeviceLatencySamplesInstructionConfig) Validate() error {
	if c.AgentPK.IsZero() {
		return fmt.Errorf("agent public key is required")
	}
	if c.OriginDevicePK.IsZero() {
		return fmt.Errorf("origin device public key is required")
	}
	if c.TargetDevicePK.IsZero() {
		return fmt.Errorf("target device public key is required")
	}
	if c.LinkPK.IsZero() {
		return fmt.Errorf("link public key is required")
	}
	if c.Epoch == 0 {
		return fmt.Errorf("epoch is required")
	}
	if c.SamplingIntervalMicroseconds == 0 {
		return fmt.Errorf("sampling interval microseconds is required")
	}
	return nil
}

func BuildInitializeDeviceLatencySamplesInstruction(
	programID solana.PublicKey,
	config InitializeDeviceLatencySamplesInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	data, err := borsh.Serialize(InitializeDeviceLatencySamplesArgs{
		Discriminator:                uint8(InitializeDeviceLatencySamplesInstructionIndex),
		Epoch:                        config.Epoch,
		SamplingIntervalMicroseconds: config.SamplingIntervalMicroseconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	pda, _, err := DeriveDeviceLatencySamplesPDA(
		programID,
		config.OriginDevicePK,
		config.TargetDevicePK,
		config.LinkPK,
		config.Epoch,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: pda, IsSigner: false, IsWritable: true},
		{PublicKey: config.AgentPK, IsSigner: true, IsWritable: true},
		{PublicKey: config.OriginDevicePK, IsSigner: false, IsWritable: false},
		{PublicKey: config.TargetDevicePK, IsSigner: false, IsWritable: false},
		{PublicKey: config.LinkPK, IsSigner: false, IsWritable: false},
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}

type WriteDeviceLatencySamplesInstructionConfig struct {
	AgentPK                    solana.PublicKey
	OriginDevicePK             solana.PublicKey
	TargetDevicePK             solana.PublicKey
	LinkPK                     solana.PublicKey
	Epoch                      uint64
	StartTimestampMicroseconds uint64
	Samples                    []uint32
}

func (c *WriteDeviceLatencySamplesInstructionConfig) Validate() error {
	if c.AgentPK.IsZero() {
		return fmt.Errorf("agent public key is required")
	}
	if c.OriginDevicePK.IsZero() {
		return fmt.Errorf("origin device public key is required")
	}
	if c.TargetDevicePK.IsZero() {
		return fmt.Errorf("target device public key is required")
	}
	if c.LinkPK.IsZero() {
		return fmt.Errorf("link public key is required")
	}
	if c.Epoch == 0 {
		return fmt.Errorf("epoch is required")
	}
	if len(c.Samples) == 0 {
		return fmt.Errorf("samples are required")
	}
	if len(c.Samples) > MaxSamplesPerBatch {
		return fmt.Errorf("batch of %d samples exceeds max of %d", len(c.Samples), MaxSamplesPerBatch)
	}
	return nil
}

func BuildWriteDeviceLatencySamplesInstruction(
	programID solana.PublicKey,
	config WriteDeviceLatencySamplesInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	data, err := borsh.Serialize(WriteDeviceLatencySamplesArgs{
		Discriminator:              uint8(WriteDeviceLatencySamplesInstructionIndex),
		StartTimestampMicroseconds: config.StartTimestampMicroseconds,
		Samples:                    config.Samples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	pda, _, err := DeriveDeviceLatencySamplesPDA(
		programID,
		config.OriginDevicePK,
		config.TargetDevicePK,
		config.LinkPK,
		config.Epoch,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: pda, IsSigner: false, IsWritable: true},
		{PublicKey: config.AgentPK, IsSigner: true, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}

type InitializeInternetLatencySamplesInstructionConfig struct {
	OracleAgentPK                solana.PublicKey
	OriginExchangePK             solana.PublicKey
	TargetExchangePK             solana.PublicKey
	DataProviderName             string
	Epoch                        uint64
	SamplingIntervalMicroseconds uint64
}

func (c *InitializeInternetLatencySamplesInstructionConfig) Validate() error {
	if c.OracleAgentPK.IsZero() {
		return fmt.Errorf("oracle agent public key is required")
	}
	if c.OriginExchangePK.IsZero() {
		return fmt.Errorf("origin exchange public key is required")
	}
	if c.TargetExchangePK.IsZero() {
		return fmt.Errorf("target exchange public key is required")
	}
	if c.DataProviderName == "" {
		return fmt.Errorf("data provider name is required")
	}
	if c.Epoch == 0 {
		return fmt.Errorf("epoch is required")
	}
	if c.SamplingIntervalMicroseconds == 0 {
		return fmt.Errorf("sampling interval microseconds is required")
	}
	return nil
}

func BuildInitializeInternetLatencySamplesInstruction(
	programID solana.PublicKey,
	config InitializeInternetLatencySamplesInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	data, err := borsh.Serialize(InitializeInternetLatencySamplesArgs{
		Discriminator:                uint8(InitializeInternetLatencySamplesInstructionIndex),
		DataProviderName:             config.DataProviderName,
		Epoch:                        config.Epoch,
		SamplingIntervalMicroseconds: config.SamplingIntervalMicroseconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	pda, _, err := DeriveInternetLatencySamplesPDA(
		programID,
		config.DataProviderName,
		config.OriginExchangePK,
		config.TargetExchangePK,
		config.Epoch,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: pda, IsSigner: false, IsWritable: true},
		{PublicKey: config.OracleAgentPK, IsSigner: true, IsWritable: true},
		{PublicKey: config.OriginExchangePK, IsSigner: false, IsWritable: false},
		{PublicKey: config.TargetExchangePK, IsSigner: false, IsWritable: false},
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}

type WriteInternetLatencySamplesInstructionConfig struct {
	OracleAgentPK              solana.PublicKey
	OriginExchangePK           solana.PublicKey
	TargetExchangePK           solana.PublicKey
	DataProviderName           string
	Epoch                      uint64
	StartTimestampMicroseconds uint64
	Samples                    []uint32
}

func (c *WriteInternetLatencySamplesInstructionConfig) Validate() error {
	if c.OracleAgentPK.IsZero() {
		return fmt.Errorf("oracle agent public key is required")
	}
	if c.OriginExchangePK.IsZero() {
		return fmt.Errorf("origin exchange public key is required")
	}
	if c.TargetExchangePK.IsZero() {
		return fmt.Errorf("target exchange public key is required")
	}
	if c.DataProviderName == "" {
		return fmt.Errorf("data provider name is required")
	}
	if c.Epoch == 0 {
		return fmt.Errorf("epoch is required")
	}
	if len(c.Samples) == 0 {
		return fmt.Errorf("samples are required")
	}
	if len(c.Samples) > MaxSamplesPerBatch {
		return fmt.Errorf("batch of %d samples exceeds max of %d", len(c.Samples), MaxSamplesPerBatch)
	}
	return nil
}

func BuildWriteInternetLatencySamplesInstruction(
	programID solana.PublicKey,
	config WriteInternetLatencySamplesInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	data, err := borsh.Serialize(WriteInternetLatencySamplesArgs{
		Discriminator:              uint8(WriteInternetLatencySamplesInstructionIndex),
		StartTimestampMicroseconds: config.StartTimestampMicroseconds,
		Samples:                    config.Samples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	pda, _, err := DeriveInternetLatencySamplesPDA(
		programID,
		config.DataProviderName,
		config.OriginExchangePK,
		config.TargetExchangePK,
		config.Epoch,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: pda, IsSigner: false, IsWritable: true},
		{PublicKey: config.OracleAgentPK, IsSigner: true, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}
