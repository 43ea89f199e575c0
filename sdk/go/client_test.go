package dzsdk_test

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	dzsdk "github.com/malbeclabs/doublezero-controlplane/sdk/go"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

type mockRPC struct {
	programAccounts solanarpc.GetProgramAccountsResult
	accounts        map[solana.PublicKey]*solanarpc.Account
}

func (m *mockRPC) GetProgramAccounts(_ context.Context, _ solana.PublicKey) (solanarpc.GetProgramAccountsResult, error) {
	return m.programAccounts, nil
}

func (m *mockRPC) GetAccountInfo(_ context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	acct, ok := m.accounts[account]
	if !ok {
		return &solanarpc.GetAccountInfoResult{}, nil
	}
	return &solanarpc.GetAccountInfoResult{Value: acct}, nil
}

func (m *mockRPC) SendTransactionWithOpts(_ context.Context, _ *solana.Transaction, _ solanarpc.TransactionOpts) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func (m *mockRPC) GetLatestBlockhash(_ context.Context, _ solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error) {
	return &solanarpc.GetLatestBlockhashResult{Value: &solanarpc.LatestBlockhashResult{}}, nil
}

func (m *mockRPC) GetSignatureStatuses(_ context.Context, _ bool, _ ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	return &solanarpc.GetSignatureStatusesResult{}, nil
}

func (m *mockRPC) GetTransaction(_ context.Context, _ solana.Signature, _ *solanarpc.GetTransactionOpts) (*solanarpc.GetTransactionResult, error) {
	return nil, nil
}

func (m *mockRPC) GetEpochInfo(_ context.Context, _ solanarpc.CommitmentType) (*solanarpc.GetEpochInfoResult, error) {
	return &solanarpc.GetEpochInfoResult{}, nil
}

func keyed(pk solana.PublicKey, data []byte) *solanarpc.KeyedAccount {
	return &solanarpc.KeyedAccount{
		Pubkey:  pk,
		Account: &solanarpc.Account{Data: solanarpc.DataBytesOrJSONFromBytes(data)},
	}
}

func TestSDK_GetProgramData(t *testing.T) {
	t.Parallel()

	programID := solana.NewWallet().PublicKey()
	gsPK := solana.NewWallet().PublicKey()
	locPK := solana.NewWallet().PublicKey()
	devPK := solana.NewWallet().PublicKey()
	userPK := solana.NewWallet().PublicKey()

	gs := state.GlobalState{AccountType: state.GlobalStateType}
	loc := state.Location{
		AccountType: state.LocationType,
		Status:      state.LocationStatusActivated,
		Code:        "lax",
		Name:        "Los Angeles",
		Country:     "us",
	}
	dev := state.Device{
		AccountType: state.DeviceType,
		Status:      state.DeviceStatusActivated,
		Code:        "lax-dz01",
		DzPrefixes:  [][5]uint8{{10, 1, 0, 0, 23}},
		MaxUsers:    128,
	}
	user := state.User{
		AccountType: state.UserType,
		Status:      state.UserStatusPending,
		ClientIp:    [4]byte{100, 0, 0, 1},
	}

	mock := &mockRPC{
		programAccounts: solanarpc.GetProgramAccountsResult{
			keyed(gsPK, gs.Serialize()),
			keyed(locPK, loc.Serialize()),
			keyed(devPK, dev.Serialize()),
			keyed(userPK, user.Serialize()),
		},
	}

	client := dzsdk.New(mock, programID)
	require.Equal(t, programID, client.ProgramID())

	pd, err := client.GetProgramData(context.Background())
	require.NoError(t, err)

	require.NotNil(t, pd.GlobalState)
	require.Equal(t, gsPK, solana.PublicKey(pd.GlobalState.PubKey))

	require.Len(t, pd.Locations, 1)
	require.Equal(t, "lax", pd.Locations[0].Code)
	require.Equal(t, locPK, solana.PublicKey(pd.Locations[0].PubKey))

	require.Len(t, pd.Devices, 1)
	require.Equal(t, "lax-dz01", pd.Devices[0].Code)
	require.Equal(t, [][5]uint8{{10, 1, 0, 0, 23}}, pd.Devices[0].DzPrefixes)

	require.Len(t, pd.Users, 1)
	require.Equal(t, [4]byte{100, 0, 0, 1}, pd.Users[0].ClientIp)

	require.Empty(t, pd.Links)
	require.Empty(t, pd.MulticastGroups)
}

func TestSDK_GetProgramData_EmptyResult(t *testing.T) {
	t.Parallel()

	client := dzsdk.New(&mockRPC{}, solana.NewWallet().PublicKey())
	_, err := client.GetProgramData(context.Background())
	require.Error(t, err)
}

func TestSDK_GetGlobalConfig(t *testing.T) {
	t.Parallel()

	cfgPK := solana.NewWallet().PublicKey()
	cfg := state.GlobalConfig{
		AccountType: state.GlobalConfigType,
		LocalASN:    65000,
		RemoteASN:   65001,
	}

	mock := &mockRPC{
		accounts: map[solana.PublicKey]*solanarpc.Account{
			cfgPK: {Data: solanarpc.DataBytesOrJSONFromBytes(cfg.Serialize())},
		},
	}

	client := dzsdk.New(mock, solana.NewWallet().PublicKey())
	got, err := client.GetGlobalConfig(context.Background(), cfgPK)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint32(65000), got.LocalASN)

	missing, err := client.GetGlobalConfig(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Nil(t, missing)
}
