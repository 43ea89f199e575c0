package activator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58"

	dzsdk "github.com/malbeclabs/doublezero-controlplane/sdk/go"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/allocator"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

const submitMaxRetries = 3

// Activator watches the serviceability program and drives entities through
// their lifecycle: it activates what contributors created, assigns tunnel
// IDs, tunnel subnets, dz IPs and multicast group addresses, and closes
// accounts whose deletion was requested.
//
// Each reconciliation pass rebuilds the DeviceMap mirror from a fresh
// account snapshot, so the mirror only ever reflects state the ledger has
// confirmed. A submission changes nothing locally; its effect arrives with
// the next snapshot.
type Activator struct {
	log   *slog.Logger
	cfg   Config
	sdk   dzsdk.ProgramDataProvider
	clock clockwork.Clock

	mu   sync.Mutex
	dmap *DeviceMap

	inFlight *ttlcache.Cache[solana.PublicKey, struct{}]
	breakers map[solana.PublicKey]*circuitBreaker

	countersMu sync.Mutex
	counters   map[string]uint64

	wg sync.WaitGroup
}

func New(cfg Config) (*Activator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Activator{
		log:   cfg.Logger,
		cfg:   cfg,
		sdk:   cfg.Serviceability,
		clock: cfg.Clock,
		inFlight: ttlcache.New(
			ttlcache.WithTTL[solana.PublicKey, struct{}](cfg.InFlightTTL),
		),
		breakers: make(map[solana.PublicKey]*circuitBreaker),
		counters: make(map[string]uint64),
	}, nil
}

// TransitionCounts returns a copy of the per-transition submission counters,
// keyed "entity:from->to".
func (a *Activator) TransitionCounts() map[string]uint64 {
	a.countersMu.Lock()
	defer a.countersMu.Unlock()
	out := make(map[string]uint64, len(a.counters))
	for k, v := range a.counters {
		out[k] = v
	}
	return out
}

// Run blocks until ctx is canceled. One goroutine owns the DeviceMap;
// account notifications and epoch boundaries only nudge it to take a fresh
// snapshot, with the poll ticker as the floor.
func (a *Activator) Run(ctx context.Context) error {
	go a.inFlight.Start()
	defer a.inFlight.Stop()

	// Startup snapshot. The global config carries the allocation blocks; an
	// uninitialized program is a deployment error, not something to retry
	// quietly.
	if err := a.reconcile(ctx); err != nil {
		return fmt.Errorf("startup snapshot: %w", err)
	}

	var notify <-chan struct{}
	if a.cfg.WSRPCURL != "" {
		watcher := NewWatcher(a.log, a.cfg.WSRPCURL, a.sdk.ProgramID())
		go watcher.Run(ctx)
		notify = watcher.Notify()
	}

	var epochs <-chan EpochEvent
	if a.cfg.Slots != nil {
		monitor := NewEpochMonitor(a.log, a.clock, a.cfg.Slots, a.cfg.SlotsPerEpoch, a.cfg.PollInterval)
		go monitor.Run(ctx)
		epochs = monitor.Events()
	}

	ticker := a.clock.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.wg.Wait()
			return ctx.Err()
		case <-ticker.Chan():
		case <-notify:
		case event := <-epochs:
			a.log.Info("new epoch", "epoch", event.NewEpoch, "slot", event.Slot, "timestamp", event.Timestamp)
			continue
		}
		if err := a.reconcile(ctx); err != nil {
			a.log.Error("reconciliation failed", "error", err)
		}
	}
}

func (a *Activator) reconcile(ctx context.Context) error {
	pd, err := a.sdk.GetProgramData(ctx)
	if err != nil {
		return fmt.Errorf("failed to get program data: %w", err)
	}
	if pd.GlobalConfig == nil {
		return fmt.Errorf("global config account not found for program %s", a.sdk.ProgramID().String())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.dmap, err = BuildDeviceMap(a.log, pd, pd.GlobalConfig, a.cfg.TunnelIDRangeFrom, a.cfg.TunnelIDRangeTo)
	if err != nil {
		return fmt.Errorf("failed to build device map: %w", err)
	}

	a.reconcileDevices(ctx, pd.Devices)
	a.reconcileLinks(ctx, pd.Links)
	a.reconcileUsers(ctx, pd.Users)
	a.reconcileMulticastGroups(ctx, pd.MulticastGroups)

	a.updateMetrics()
	return nil
}

func (a *Activator) reconcileDevices(ctx context.Context, devices []state.Device) {
	programID := a.sdk.ProgramID()
	for _, device := range devices {
		pk := solana.PublicKey(device.PubKey)
		switch device.Status {
		case state.DeviceStatusPending:
			instr := dzsdk.BuildActivateDeviceInstruction(programID, a.cfg.SignerPK, pk)
			a.submit(ctx, "device", pk, device.Status.String(), "activated", instr,
				"device", device.Code)
		case state.DeviceStatusDeleting, state.DeviceStatusRejected:
			if device.ReferenceCount != 0 {
				continue
			}
			instr := dzsdk.BuildCloseAccountDeviceInstruction(programID, a.cfg.SignerPK, pk)
			a.submit(ctx, "device", pk, device.Status.String(), "closed", instr,
				"device", device.Code)
		}
	}
}

func (a *Activator) reconcileLinks(ctx context.Context, links []state.Link) {
	programID := a.sdk.ProgramID()
	for _, link := range links {
		pk := solana.PublicKey(link.PubKey)
		switch link.Status {
		case state.LinkStatusPending:
			tunnelID, tunnelNet, ok := a.dmap.AllocateLinkTunnel(solana.PublicKey(link.SideAPubKey))
			if !ok {
				a.log.Warn("no tunnel capacity for link", "link", link.Code)
				continue
			}
			instr := dzsdk.BuildActivateLinkInstruction(programID, a.cfg.SignerPK, pk, instruction.ActivateLinkArgs{
				TunnelId:  tunnelID,
				TunnelNet: tunnelNet,
			})
			a.submit(ctx, "link", pk, link.Status.String(), "activated", instr,
				"link", link.Code,
				"tunnel_id", tunnelID,
				"tunnel_net", allocator.NetworkString(tunnelNet))
		case state.LinkStatusDeleting:
			instr := dzsdk.BuildCloseAccountLinkInstruction(programID, a.cfg.SignerPK, pk)
			a.submit(ctx, "link", pk, link.Status.String(), "closed", instr,
				"link", link.Code)
		}
	}
}

func (a *Activator) reconcileUsers(ctx context.Context, users []state.User) {
	programID := a.sdk.ProgramID()
	var zeroNet [5]byte
	var zeroIP [4]uint8
	for _, user := range users {
		pk := solana.PublicKey(user.PubKey)
		switch user.Status {
		case state.UserStatusPending, state.UserStatusUpdating:
			// Updating users keep their existing assignments; only missing
			// pieces are allocated.
			tunnelID := user.TunnelId
			tunnelNet := user.TunnelNet
			dzIP := user.DzIp
			if tunnelID == 0 || tunnelNet == zeroNet {
				var ok bool
				tunnelID, tunnelNet, ok = a.dmap.AllocateUserTunnel()
				if !ok {
					a.log.Warn("user tunnel pools exhausted", "user", pk.String())
					continue
				}
			}
			// A dz IP is carried only while the user sources traffic:
			// unicast users always do, multicast users only while they
			// publish at least one group. The address is handed back on the
			// transition to zero publishers.
			publishes := user.UserType != state.UserTypeMulticast || len(user.Publishers) > 0
			switch {
			case publishes && dzIP == zeroIP:
				entry, ok := a.dmap.Device(solana.PublicKey(user.DevicePubKey))
				if !ok {
					a.log.Warn("user references unknown device", "user", pk.String())
					continue
				}
				dzIP, ok = entry.AllocateDzIP()
				if !ok {
					a.log.Warn("device dz prefixes exhausted", "user", pk.String(), "device", entry.Device.Code)
					continue
				}
			case !publishes && dzIP != zeroIP:
				dzIP = zeroIP
			}
			instr := dzsdk.BuildActivateUserInstruction(programID, a.cfg.SignerPK, pk, instruction.ActivateUserArgs{
				TunnelId:  tunnelID,
				TunnelNet: tunnelNet,
				DzIp:      dzIP,
			})
			a.submit(ctx, "user", pk, user.Status.String(), "activated", instr,
				"user", pk.String(),
				"tunnel_id", tunnelID,
				"tunnel_net", allocator.NetworkString(tunnelNet),
				"dz_ip", fmt.Sprintf("%d.%d.%d.%d", dzIP[0], dzIP[1], dzIP[2], dzIP[3]))
		case state.UserStatusDeleting:
			instr := dzsdk.BuildCloseAccountUserInstruction(programID, a.cfg.SignerPK, pk)
			a.submit(ctx, "user", pk, user.Status.String(), "closed", instr,
				"user", pk.String())
		}
	}
}

func (a *Activator) reconcileMulticastGroups(ctx context.Context, groups []state.MulticastGroup) {
	programID := a.sdk.ProgramID()
	for _, group := range groups {
		pk := solana.PublicKey(group.PubKey)
		switch group.Status {
		case state.MulticastGroupStatusPending:
			ip, ok := a.dmap.AllocateMulticastIP()
			if !ok {
				a.log.Warn("multicast group block exhausted", "group", group.Code)
				continue
			}
			instr := dzsdk.BuildActivateMulticastGroupInstruction(programID, a.cfg.SignerPK, pk, instruction.ActivateMulticastGroupArgs{
				MulticastIp: ip,
			})
			a.submit(ctx, "multicast_group", pk, group.Status.String(), "activated", instr,
				"group", group.Code,
				"multicast_ip", fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3]))
		case state.MulticastGroupStatusDeleting:
			instr := dzsdk.BuildCloseAccountMulticastGroupInstruction(programID, a.cfg.SignerPK, pk)
			a.submit(ctx, "multicast_group", pk, group.Status.String(), "closed", instr,
				"group", group.Code)
		}
	}
}

// submit sends one instruction for an entity unless a submission for the
// same account is still in flight or its breaker is open. Transient failures
// are retried with exponential backoff before the breaker records a failure.
func (a *Activator) submit(ctx context.Context, entity string, pk solana.PublicKey, from, to string, instr solana.Instruction, logAttrs ...any) {
	if a.inFlight.Has(pk) {
		return
	}
	breaker, ok := a.breakers[pk]
	if !ok {
		breaker = newCircuitBreaker(a.clock, a.cfg.BreakerThreshold, a.cfg.BreakerCooldown)
		a.breakers[pk] = breaker
	}
	if !breaker.Allow() {
		a.log.Debug("circuit breaker open, skipping submission", "entity", entity, "account", pk.String())
		return
	}
	a.inFlight.Set(pk, struct{}{}, ttlcache.DefaultTTL)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), submitMaxRetries), ctx)
		err := backoff.Retry(func() error {
			return a.cfg.Submitter.SubmitInstruction(ctx, instr)
		}, bo)

		a.mu.Lock()
		if err != nil {
			breaker.Failure()
		} else {
			breaker.Success()
		}
		a.mu.Unlock()

		if err != nil {
			// Drop the in-flight hold so the next pass can retry sooner than
			// the TTL would allow.
			a.inFlight.Delete(pk)
			MetricSubmissionErrors.WithLabelValues(entity).Inc()
			a.log.Error("submission failed",
				append([]any{"entity", entity, "account", pk.String(), "transition", from + "->" + to, "error", err}, logAttrs...)...)
			return
		}

		a.countersMu.Lock()
		a.counters[entity+":"+from+"->"+to]++
		a.countersMu.Unlock()
		MetricTransitions.WithLabelValues(entity, from, to).Inc()
		a.log.Info("submitted transition",
			append([]any{"entity", entity, "account", pk.String(), "transition", from + "->" + to}, logAttrs...)...)
	}()
}

// updateMetrics publishes gauges from the freshly built mirror. Metrics are
// best effort and never influence reconciliation.
func (a *Activator) updateMetrics() {
	devices := a.dmap.Devices()
	MetricDeviceCount.Set(float64(len(devices)))
	MetricDeviceIPsUsed.Reset()
	MetricDeviceIPsTotal.Reset()
	for pk, entry := range devices {
		labels := []string{
			pk.String(),
			entry.Device.Code,
			base58.Encode(entry.Device.LocationPubKey[:]),
			base58.Encode(entry.Device.ExchangePubKey[:]),
		}
		MetricDeviceIPsUsed.WithLabelValues(labels...).Set(float64(entry.AssignedIPs()))
		MetricDeviceIPsTotal.WithLabelValues(labels...).Set(float64(entry.TotalIPs()))
	}
}
