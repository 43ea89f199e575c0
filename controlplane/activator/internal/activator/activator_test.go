package activator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	dzsdk "github.com/malbeclabs/doublezero-controlplane/sdk/go"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

type mockProvider struct {
	mu        sync.Mutex
	pd        *dzsdk.ProgramData
	err       error
	programID solana.PublicKey
}

func (m *mockProvider) GetProgramData(ctx context.Context) (*dzsdk.ProgramData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.pd, nil
}

func (m *mockProvider) ProgramID() solana.PublicKey { return m.programID }

func (m *mockProvider) set(pd *dzsdk.ProgramData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pd = pd
}

type recordSubmitter struct {
	mu           sync.Mutex
	err          error
	instructions []solana.Instruction
}

func (s *recordSubmitter) SubmitInstruction(ctx context.Context, instr solana.Instruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.instructions = append(s.instructions, instr)
	return nil
}

func (s *recordSubmitter) tags(t *testing.T) []instruction.Tag {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make([]instruction.Tag, 0, len(s.instructions))
	for _, instr := range s.instructions {
		data, err := instr.Data()
		require.NoError(t, err)
		require.NotEmpty(t, data)
		tags = append(tags, instruction.Tag(data[0]))
	}
	return tags
}

func newTestActivator(t *testing.T, provider *mockProvider, submitter Submitter) *Activator {
	t.Helper()
	a, err := New(Config{
		Logger:           slog.Default(),
		Serviceability:   provider,
		Submitter:        submitter,
		SignerPK:         solana.NewWallet().PublicKey(),
		Clock:            clockwork.NewFakeClock(),
		BreakerThreshold: 2,
	})
	require.NoError(t, err)
	return a
}

func TestActivator_Config_Validate(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	require.Error(t, cfg.Validate())

	cfg.Logger = slog.Default()
	require.Error(t, cfg.Validate())

	cfg.Serviceability = &mockProvider{}
	require.Error(t, cfg.Validate())

	cfg.Submitter = &recordSubmitter{}
	require.Error(t, cfg.Validate())

	cfg.SignerPK = solana.NewWallet().PublicKey()
	require.NoError(t, cfg.Validate())
	require.Equal(t, defaultPollInterval, cfg.PollInterval)
	require.Equal(t, uint16(defaultTunnelIDRangeFrom), cfg.TunnelIDRangeFrom)
	require.Equal(t, uint16(defaultTunnelIDRangeTo), cfg.TunnelIDRangeTo)
	require.NotNil(t, cfg.Clock)
}

func TestActivator_Reconcile_ActivatesPendingEntities(t *testing.T) {
	t.Parallel()

	device := testDevice("lax-dz01", [5]uint8{10, 1, 0, 0, 29})
	device.Status = state.DeviceStatusPending
	link := state.Link{
		PubKey:      solana.NewWallet().PublicKey(),
		SideAPubKey: device.PubKey,
		Code:        "lax-dz01:lax-dz02",
		Status:      state.LinkStatusPending,
	}
	user := state.User{
		PubKey:       solana.NewWallet().PublicKey(),
		DevicePubKey: device.PubKey,
		Status:       state.UserStatusPending,
	}
	group := state.MulticastGroup{
		PubKey: solana.NewWallet().PublicKey(),
		Code:   "feed1",
		Status: state.MulticastGroupStatusPending,
	}
	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd: &dzsdk.ProgramData{
			GlobalConfig:    testGlobalConfig(),
			Devices:         []state.Device{device},
			Links:           []state.Link{link},
			Users:           []state.User{user},
			MulticastGroups: []state.MulticastGroup{group},
		},
	}
	submitter := &recordSubmitter{}
	a := newTestActivator(t, provider, submitter)

	require.NoError(t, a.reconcile(context.Background()))
	a.wg.Wait()

	require.ElementsMatch(t, []instruction.Tag{
		instruction.TagActivateDevice,
		instruction.TagActivateLink,
		instruction.TagActivateUser,
		instruction.TagActivateMulticastGroup,
	}, submitter.tags(t))

	counts := a.TransitionCounts()
	require.Equal(t, uint64(1), counts["device:pending->activated"])
	require.Equal(t, uint64(1), counts["link:pending->activated"])
	require.Equal(t, uint64(1), counts["user:pending->activated"])
	require.Equal(t, uint64(1), counts["multicast_group:pending->activated"])
}

func TestActivator_Reconcile_ClosesDeletedEntities(t *testing.T) {
	t.Parallel()

	device := testDevice("ams-dz01")
	device.Status = state.DeviceStatusDeleting
	blocked := testDevice("ams-dz02")
	blocked.Status = state.DeviceStatusDeleting
	blocked.ReferenceCount = 2
	user := state.User{
		PubKey: solana.NewWallet().PublicKey(),
		Status: state.UserStatusDeleting,
	}
	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd: &dzsdk.ProgramData{
			GlobalConfig: testGlobalConfig(),
			Devices:      []state.Device{device, blocked},
			Users:        []state.User{user},
		},
	}
	submitter := &recordSubmitter{}
	a := newTestActivator(t, provider, submitter)

	require.NoError(t, a.reconcile(context.Background()))
	a.wg.Wait()

	// The device with a nonzero reference count is left alone.
	require.ElementsMatch(t, []instruction.Tag{
		instruction.TagCloseAccountDevice,
		instruction.TagCloseAccountUser,
	}, submitter.tags(t))
}

func TestActivator_Reconcile_InFlightSuppressesResubmission(t *testing.T) {
	t.Parallel()

	device := testDevice("fra-dz01")
	device.Status = state.DeviceStatusPending
	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd: &dzsdk.ProgramData{
			GlobalConfig: testGlobalConfig(),
			Devices:      []state.Device{device},
		},
	}
	submitter := &recordSubmitter{}
	a := newTestActivator(t, provider, submitter)

	require.NoError(t, a.reconcile(context.Background()))
	require.NoError(t, a.reconcile(context.Background()))
	a.wg.Wait()

	require.Len(t, submitter.tags(t), 1)
}

func TestActivator_Reconcile_BreakerStopsRepeatedFailures(t *testing.T) {
	t.Parallel()

	device := testDevice("sin-dz01")
	device.Status = state.DeviceStatusPending
	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd: &dzsdk.ProgramData{
			GlobalConfig: testGlobalConfig(),
			Devices:      []state.Device{device},
		},
	}
	submitter := &recordSubmitter{err: backoff.Permanent(errors.New("rpc unavailable"))}
	a := newTestActivator(t, provider, submitter)

	// Threshold is 2: two failed passes open the breaker, the third never
	// reaches the submitter.
	for range 2 {
		require.NoError(t, a.reconcile(context.Background()))
		a.wg.Wait()
	}
	require.NoError(t, a.reconcile(context.Background()))
	a.wg.Wait()

	require.Empty(t, submitter.tags(t))
	require.Empty(t, a.TransitionCounts())
}

func TestActivator_Reconcile_MissingGlobalConfigFails(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd:        &dzsdk.ProgramData{},
	}
	a := newTestActivator(t, provider, &recordSubmitter{})

	err := a.reconcile(context.Background())
	require.ErrorContains(t, err, "global config account not found")
}

func TestActivator_Run_FailsWithoutGlobalConfigAtStartup(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd:        &dzsdk.ProgramData{},
	}
	a := newTestActivator(t, provider, &recordSubmitter{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.Run(ctx)
	require.ErrorContains(t, err, "startup snapshot")
}

func TestActivator_Reconcile_SubscriberOnlyUserGetsNoDzIP(t *testing.T) {
	t.Parallel()

	device := testDevice("mia-dz01", [5]uint8{10, 4, 0, 0, 29})
	group := solana.NewWallet().PublicKey()
	subscriber := state.User{
		PubKey:       solana.NewWallet().PublicKey(),
		DevicePubKey: device.PubKey,
		UserType:     state.UserTypeMulticast,
		Status:       state.UserStatusPending,
		Subscribers:  [][32]byte{group},
	}
	publisher := state.User{
		PubKey:       solana.NewWallet().PublicKey(),
		DevicePubKey: device.PubKey,
		UserType:     state.UserTypeMulticast,
		Status:       state.UserStatusPending,
		Publishers:   [][32]byte{group},
	}
	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd: &dzsdk.ProgramData{
			GlobalConfig: testGlobalConfig(),
			Devices:      []state.Device{device},
			Users:        []state.User{subscriber, publisher},
		},
	}
	submitter := &recordSubmitter{}
	a := newTestActivator(t, provider, submitter)

	require.NoError(t, a.reconcile(context.Background()))
	a.wg.Wait()

	require.Len(t, submitter.instructions, 2)
	argsByUser := map[solana.PublicKey]instruction.ActivateUserArgs{}
	for _, instr := range submitter.instructions {
		data, err := instr.Data()
		require.NoError(t, err)
		tag, decoded, err := instruction.Decode(data)
		require.NoError(t, err)
		require.Equal(t, instruction.TagActivateUser, tag)
		argsByUser[instr.Accounts()[0].PublicKey] = decoded.(instruction.ActivateUserArgs)
	}

	// The subscriber sources no traffic and carries no dz IP; the publisher
	// draws the first free address from the device prefix.
	require.Equal(t, [4]uint8{}, argsByUser[solana.PublicKey(subscriber.PubKey)].DzIp)
	require.Equal(t, [4]uint8{10, 4, 0, 1}, argsByUser[solana.PublicKey(publisher.PubKey)].DzIp)
}

func TestActivator_Reconcile_LastPublisherGoneReleasesDzIP(t *testing.T) {
	t.Parallel()

	device := testDevice("sfo-dz01", [5]uint8{10, 5, 0, 0, 29})
	group := solana.NewWallet().PublicKey()
	user := state.User{
		PubKey:       solana.NewWallet().PublicKey(),
		DevicePubKey: device.PubKey,
		UserType:     state.UserTypeMulticast,
		Status:       state.UserStatusUpdating,
		TunnelId:     500,
		TunnelNet:    [5]uint8{172, 16, 0, 0, 31},
		DzIp:         [4]uint8{10, 5, 0, 1},
		Subscribers:  [][32]byte{group},
	}
	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd: &dzsdk.ProgramData{
			GlobalConfig: testGlobalConfig(),
			Devices:      []state.Device{device},
			Users:        []state.User{user},
		},
	}
	submitter := &recordSubmitter{}
	a := newTestActivator(t, provider, submitter)

	require.NoError(t, a.reconcile(context.Background()))
	a.wg.Wait()

	require.Len(t, submitter.instructions, 1)
	data, err := submitter.instructions[0].Data()
	require.NoError(t, err)

	want := instruction.ActivateUserArgs{
		TunnelId:  500,
		TunnelNet: [5]uint8{172, 16, 0, 0, 31},
	}
	require.Equal(t, want.Encode(), data, "dz IP must be handed back when the publisher list empties")
}

func TestActivator_Reconcile_UpdatingUserKeepsAssignments(t *testing.T) {
	t.Parallel()

	device := testDevice("lhr-dz01", [5]uint8{10, 3, 0, 0, 29})
	user := state.User{
		PubKey:       solana.NewWallet().PublicKey(),
		DevicePubKey: device.PubKey,
		Status:       state.UserStatusUpdating,
		TunnelId:     500,
		TunnelNet:    [5]uint8{172, 16, 0, 0, 31},
		DzIp:         [4]uint8{10, 3, 0, 1},
	}
	provider := &mockProvider{
		programID: solana.NewWallet().PublicKey(),
		pd: &dzsdk.ProgramData{
			GlobalConfig: testGlobalConfig(),
			Devices:      []state.Device{device},
			Users:        []state.User{user},
		},
	}
	submitter := &recordSubmitter{}
	a := newTestActivator(t, provider, submitter)

	require.NoError(t, a.reconcile(context.Background()))
	a.wg.Wait()

	require.Len(t, submitter.instructions, 1)
	data, err := submitter.instructions[0].Data()
	require.NoError(t, err)
	require.Equal(t, instruction.TagActivateUser, instruction.Tag(data[0]))

	want := instruction.ActivateUserArgs{
		TunnelId:  500,
		TunnelNet: [5]uint8{172, 16, 0, 0, 31},
		DzIp:      [4]uint8{10, 3, 0, 1},
	}
	require.Equal(t, want.Encode(), data)
}
