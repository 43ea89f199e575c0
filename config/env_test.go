package config_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/doublezero-controlplane/config"
	"github.com/stretchr/testify/require"
)

func TestConfig_NetworkConfigForEnv(t *testing.T) {
	tests := []struct {
		env     string
		want    *config.NetworkConfig
		wantErr error
	}{
		{
			env: config.EnvMainnet,
			want: &config.NetworkConfig{
				Moniker:                    config.EnvMainnetBeta,
				LedgerPublicRPCURL:         config.MainnetLedgerPublicRPCURL,
				LedgerPublicWSRPCURL:       config.MainnetLedgerPublicWSRPCURL,
				ServiceabilityProgramID:    solana.MustPublicKeyFromBase58(config.MainnetServiceabilityProgramID),
				TelemetryProgramID:         solana.MustPublicKeyFromBase58(config.MainnetTelemetryProgramID),
				InternetLatencyCollectorPK: solana.MustPublicKeyFromBase58(config.MainnetInternetLatencyCollectorPK),
			},
		},
		{
			env: config.EnvMainnetBeta,
			want: &config.NetworkConfig{
				Moniker:                    config.EnvMainnetBeta,
				LedgerPublicRPCURL:         config.MainnetLedgerPublicRPCURL,
				LedgerPublicWSRPCURL:       config.MainnetLedgerPublicWSRPCURL,
				ServiceabilityProgramID:    solana.MustPublicKeyFromBase58(config.MainnetServiceabilityProgramID),
				TelemetryProgramID:         solana.MustPublicKeyFromBase58(config.MainnetTelemetryProgramID),
				InternetLatencyCollectorPK: solana.MustPublicKeyFromBase58(config.MainnetInternetLatencyCollectorPK),
			},
		},
		{
			env: config.EnvTestnet,
			want: &config.NetworkConfig{
				Moniker:                    config.EnvTestnet,
				LedgerPublicRPCURL:         config.TestnetLedgerPublicRPCURL,
				LedgerPublicWSRPCURL:       config.TestnetLedgerPublicWSRPCURL,
				ServiceabilityProgramID:    solana.MustPublicKeyFromBase58(config.TestnetServiceabilityProgramID),
				TelemetryProgramID:         solana.MustPublicKeyFromBase58(config.TestnetTelemetryProgramID),
				InternetLatencyCollectorPK: solana.MustPublicKeyFromBase58(config.TestnetInternetLatencyCollectorPK),
			},
		},
		{
			env: config.EnvDevnet,
			want: &config.NetworkConfig{
				Moniker:                    config.EnvDevnet,
				LedgerPublicRPCURL:         config.DevnetLedgerPublicRPCURL,
				LedgerPublicWSRPCURL:       config.DevnetLedgerPublicWSRPCURL,
				ServiceabilityProgramID:    solana.MustPublicKeyFromBase58(config.DevnetServiceabilityProgramID),
				TelemetryProgramID:         solana.MustPublicKeyFromBase58(config.DevnetTelemetryProgramID),
				InternetLatencyCollectorPK: solana.MustPublicKeyFromBase58(config.DevnetInternetLatencyCollectorPK),
			},
		},
		{
			env:     "invalid",
			want:    nil,
			wantErr: config.ErrInvalidEnvironment,
		},
	}

	for _, test := range tests {
		t.Run(test.env, func(t *testing.T) {
			got, err := config.NetworkConfigForEnv(test.env)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}
}

func TestConfig_NetworkConfigForEnv_RPCURLOverrideFromEnvVars(t *testing.T) {
	t.Setenv("DZ_LEDGER_RPC_URL", "https://other-rpc-url.com")
	t.Setenv("DZ_LEDGER_WS_RPC_URL", "wss://other-ws-rpc-url.com")
	got, err := config.NetworkConfigForEnv(config.EnvMainnet)
	require.NoError(t, err)
	require.Equal(t, "https://other-rpc-url.com", got.LedgerPublicRPCURL)
	require.Equal(t, "wss://other-ws-rpc-url.com", got.LedgerPublicWSRPCURL)
}
