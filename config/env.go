package config

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

const (
	EnvMainnetBeta = "mainnet-beta"
	EnvMainnet     = "mainnet"
	EnvTestnet     = "testnet"
	EnvDevnet      = "devnet"
	EnvLocalnet    = "localnet"
)

var (
	ErrInvalidEnvironment = fmt.Errorf("invalid environment")
)

type NetworkConfig struct {
	Moniker                    string
	LedgerPublicRPCURL         string
	LedgerPublicWSRPCURL       string
	ServiceabilityProgramID    solana.PublicKey
	TelemetryProgramID         solana.PublicKey
	InternetLatencyCollectorPK solana.PublicKey
}

func NetworkConfigForEnv(env string) (*NetworkConfig, error) {
	var config *NetworkConfig
	switch env {
	case EnvMainnetBeta, EnvMainnet:
		serviceabilityProgramID, err := solana.PublicKeyFromBase58(MainnetServiceabilityProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse serviceability program ID: %w", err)
		}
		telemetryProgramID, err := solana.PublicKeyFromBase58(MainnetTelemetryProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse telemetry program ID: %w", err)
		}
		internetLatencyCollectorPK, err := solana.PublicKeyFromBase58(MainnetInternetLatencyCollectorPK)
		if err != nil {
			return nil, fmt.Errorf("failed to parse internet latency collector oracle agent PK: %w", err)
		}
		config = &NetworkConfig{
			Moniker:                    EnvMainnetBeta,
			LedgerPublicRPCURL:         MainnetLedgerPublicRPCURL,
			LedgerPublicWSRPCURL:       MainnetLedgerPublicWSRPCURL,
			ServiceabilityProgramID:    serviceabilityProgramID,
			TelemetryProgramID:         telemetryProgramID,
			InternetLatencyCollectorPK: internetLatencyCollectorPK,
		}
	case EnvTestnet:
		serviceabilityProgramID, err := solana.PublicKeyFromBase58(TestnetServiceabilityProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse serviceability program ID: %w", err)
		}
		telemetryProgramID, err := solana.PublicKeyFromBase58(TestnetTelemetryProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse telemetry program ID: %w", err)
		}
		internetLatencyCollectorPK, err := solana.PublicKeyFromBase58(TestnetInternetLatencyCollectorPK)
		if err != nil {
			return nil, fmt.Errorf("failed to parse internet latency collector oracle agent PK: %w", err)
		}
		config = &NetworkConfig{
			Moniker:                    EnvTestnet,
			LedgerPublicRPCURL:         TestnetLedgerPublicRPCURL,
			LedgerPublicWSRPCURL:       TestnetLedgerPublicWSRPCURL,
			ServiceabilityProgramID:    serviceabilityProgramID,
			TelemetryProgramID:         telemetryProgramID,
			InternetLatencyCollectorPK: internetLatencyCollectorPK,
		}
	case EnvDevnet:
		serviceabilityProgramID, err := solana.PublicKeyFromBase58(DevnetServiceabilityProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse serviceability program ID: %w", err)
		}
		telemetryProgramID, err := solana.PublicKeyFromBase58(DevnetTelemetryProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse telemetry program ID: %w", err)
		}
		internetLatencyCollectorPK, err := solana.PublicKeyFromBase58(DevnetInternetLatencyCollectorPK)
		if err != nil {
			return nil, fmt.Errorf("failed to parse internet latency collector oracle agent PK: %w", err)
		}
		config = &NetworkConfig{
			Moniker:                    EnvDevnet,
			LedgerPublicRPCURL:         DevnetLedgerPublicRPCURL,
			LedgerPublicWSRPCURL:       DevnetLedgerPublicWSRPCURL,
			ServiceabilityProgramID:    serviceabilityProgramID,
			TelemetryProgramID:         telemetryProgramID,
			InternetLatencyCollectorPK: internetLatencyCollectorPK,
		}
	default:
		return nil, fmt.Errorf("%w %q, must be one of: %s, %s, %s", ErrInvalidEnvironment, env, EnvMainnetBeta, EnvTestnet, EnvDevnet)
	}

	ledgerRPCURL := os.Getenv("DZ_LEDGER_RPC_URL")
	if ledgerRPCURL != "" {
		config.LedgerPublicRPCURL = ledgerRPCURL
	}
	ledgerWSRPCURL := os.Getenv("DZ_LEDGER_WS_RPC_URL")
	if ledgerWSRPCURL != "" {
		config.LedgerPublicWSRPCURL = ledgerWSRPCURL
	}

	return config, nil
}
