package activator

import (
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	dzsdk "github.com/malbeclabs/doublezero-controlplane/sdk/go"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/allocator"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// maxPoolBits caps the span of any IP pool bitmap. The multicast group block
// defaults to 224.0.0.0/4, which would need a 32MB bitmap at /32 granularity;
// clamping to 2^16 blocks keeps pools small while leaving far more room than
// any deployment uses.
const maxPoolBits = 16

// fullHostPrefix allocates single addresses out of an IP pool.
const fullHostPrefix = 32

// DeviceEntry mirrors one on-chain device plus the allocator state carved
// from its dz prefixes and its link tunnel ID space.
type DeviceEntry struct {
	Device state.Device

	// One allocator per entry in Device.DzPrefixes, same order.
	DzIPs []*allocator.IPAllocator

	// Tunnel IDs for links whose side A is this device.
	LinkTunnelIDs *allocator.IDAllocator
}

// AllocateDzIP hands out the lowest free address across the device's
// dz prefixes.
func (e *DeviceEntry) AllocateDzIP() ([4]uint8, bool) {
	for _, pool := range e.DzIPs {
		if net, ok := pool.Allocate(); ok {
			return [4]uint8{net[0], net[1], net[2], net[3]}, true
		}
	}
	return [4]uint8{}, false
}

func (e *DeviceEntry) AssignedIPs() int {
	n := 0
	for _, pool := range e.DzIPs {
		n += pool.AllocatedCount()
	}
	return n
}

func (e *DeviceEntry) TotalIPs() int {
	n := 0
	for _, pool := range e.DzIPs {
		n += pool.Capacity()
	}
	return n
}

// DeviceMap is the activator's in-memory mirror of the serviceability
// program. It is rebuilt from a fresh account snapshot before every
// reconciliation pass, so every allocator reflects exactly what the chain
// has already handed out.
type DeviceMap struct {
	devices map[solana.PublicKey]*DeviceEntry

	userTunnelIDs  *allocator.IDAllocator
	userTunnelNets *allocator.IPAllocator
	linkTunnelNets *allocator.IPAllocator
	multicastIPs   *allocator.IPAllocator
}

// boundedIPPool builds an IP allocator over base, narrowing the pool to at
// most 2^maxPoolBits blocks.
func boundedIPPool(base [5]byte, allocPrefix uint8) (*allocator.IPAllocator, error) {
	if allocPrefix > 32 || allocPrefix < base[4] {
		return nil, fmt.Errorf("allocation prefix /%d does not fit in %s", allocPrefix, allocator.NetworkString(base))
	}
	if allocPrefix-base[4] > maxPoolBits {
		base[4] = allocPrefix - maxPoolBits
	}
	bits := make([]byte, allocator.BitmapLen(1<<(allocPrefix-base[4])))
	return allocator.NewIP(base, allocPrefix, bits)
}

func newIDPool(from, to uint16) (*allocator.IDAllocator, error) {
	return allocator.NewID(from, to, make([]byte, allocator.BitmapLen(int(to-from))))
}

// BuildDeviceMap constructs the mirror from a program snapshot: pools are
// carved from the global config blocks and every allocation already visible
// on chain is replayed into the bitmaps before any new assignment is made.
func BuildDeviceMap(log *slog.Logger, pd *dzsdk.ProgramData, cfg *state.GlobalConfig, tunnelIDFrom, tunnelIDTo uint16) (*DeviceMap, error) {
	userTunnelIDs, err := newIDPool(tunnelIDFrom, tunnelIDTo)
	if err != nil {
		return nil, fmt.Errorf("user tunnel ID pool: %w", err)
	}
	userTunnelNets, err := boundedIPPool(cfg.UserTunnelBlock, cfg.UserTunnelPrefix)
	if err != nil {
		return nil, fmt.Errorf("user tunnel block %s: %w", allocator.NetworkString(cfg.UserTunnelBlock), err)
	}
	linkTunnelNets, err := boundedIPPool(cfg.DeviceTunnelBlock, cfg.LinkTunnelPrefix)
	if err != nil {
		return nil, fmt.Errorf("device tunnel block %s: %w", allocator.NetworkString(cfg.DeviceTunnelBlock), err)
	}
	multicastIPs, err := boundedIPPool(cfg.MulticastGroupBlock, fullHostPrefix)
	if err != nil {
		return nil, fmt.Errorf("multicast group block %s: %w", allocator.NetworkString(cfg.MulticastGroupBlock), err)
	}

	m := &DeviceMap{
		devices:        make(map[solana.PublicKey]*DeviceEntry, len(pd.Devices)),
		userTunnelIDs:  userTunnelIDs,
		userTunnelNets: userTunnelNets,
		linkTunnelNets: linkTunnelNets,
		multicastIPs:   multicastIPs,
	}

	for _, device := range pd.Devices {
		entry := &DeviceEntry{Device: device}
		for _, prefix := range device.DzPrefixes {
			pool, err := boundedIPPool(prefix, fullHostPrefix)
			if err != nil {
				log.Warn("skipping unusable dz prefix",
					"device", device.Code,
					"prefix", allocator.NetworkString(prefix),
					"error", err)
				continue
			}
			reserveEdges(pool)
			entry.DzIPs = append(entry.DzIPs, pool)
		}
		entry.LinkTunnelIDs, err = newIDPool(tunnelIDFrom, tunnelIDTo)
		if err != nil {
			return nil, fmt.Errorf("link tunnel ID pool for %s: %w", device.Code, err)
		}
		m.devices[device.PubKey] = entry
	}

	m.replayLinks(log, pd.Links)
	m.replayUsers(log, pd.Users)
	m.replayMulticastGroups(log, pd.MulticastGroups)
	return m, nil
}

func reserveEdges(pool *allocator.IPAllocator) {
	base := pool.BaseNet()
	// A /31 or /32 has no distinct network and broadcast addresses; every
	// address in it is assignable.
	if base[4] >= 31 {
		return
	}
	_ = pool.AllocateSpecific([5]byte{base[0], base[1], base[2], base[3], fullHostPrefix})
	span := uint32(1)<<(32-base[4]) - 1
	last := (uint32(base[0])<<24 | uint32(base[1])<<16 | uint32(base[2])<<8 | uint32(base[3])) | span
	_ = pool.AllocateSpecific([5]byte{byte(last >> 24), byte(last >> 16), byte(last >> 8), byte(last), fullHostPrefix})
}

func (m *DeviceMap) replayLinks(log *slog.Logger, links []state.Link) {
	var zeroNet [5]byte
	for _, link := range links {
		if link.TunnelId == 0 && link.TunnelNet == zeroNet {
			continue
		}
		if link.TunnelNet != zeroNet {
			if err := m.linkTunnelNets.AllocateSpecific(link.TunnelNet); err != nil {
				log.Warn("link tunnel net replay conflict", "link", link.Code, "net", allocator.NetworkString(link.TunnelNet), "error", err)
			}
		}
		if link.TunnelId != 0 {
			entry, ok := m.devices[solana.PublicKey(link.SideAPubKey)]
			if !ok {
				log.Warn("link references unknown side A device", "link", link.Code)
				continue
			}
			if err := entry.LinkTunnelIDs.AllocateSpecific(link.TunnelId); err != nil {
				log.Warn("link tunnel ID replay conflict", "link", link.Code, "tunnel_id", link.TunnelId, "error", err)
			}
		}
	}
}

func (m *DeviceMap) replayUsers(log *slog.Logger, users []state.User) {
	var zeroNet [5]byte
	var zeroIP [4]uint8
	for _, user := range users {
		if user.TunnelId != 0 {
			if err := m.userTunnelIDs.AllocateSpecific(user.TunnelId); err != nil {
				log.Warn("user tunnel ID replay conflict", "user", solana.PublicKey(user.PubKey).String(), "tunnel_id", user.TunnelId, "error", err)
			}
		}
		if user.TunnelNet != zeroNet {
			if err := m.userTunnelNets.AllocateSpecific(user.TunnelNet); err != nil {
				log.Warn("user tunnel net replay conflict", "user", solana.PublicKey(user.PubKey).String(), "net", allocator.NetworkString(user.TunnelNet), "error", err)
			}
		}
		if user.DzIp != zeroIP {
			entry, ok := m.devices[solana.PublicKey(user.DevicePubKey)]
			if !ok {
				log.Warn("user references unknown device", "user", solana.PublicKey(user.PubKey).String())
				continue
			}
			target := [5]byte{user.DzIp[0], user.DzIp[1], user.DzIp[2], user.DzIp[3], fullHostPrefix}
			replayed := false
			for _, pool := range entry.DzIPs {
				if err := pool.AllocateSpecific(target); err == nil {
					replayed = true
					break
				}
			}
			if !replayed {
				log.Warn("user dz IP outside device prefixes", "user", solana.PublicKey(user.PubKey).String(), "dz_ip", allocator.NetworkString(target))
			}
		}
	}
}

func (m *DeviceMap) replayMulticastGroups(log *slog.Logger, groups []state.MulticastGroup) {
	var zeroIP [4]uint8
	for _, group := range groups {
		if group.MulticastIp == zeroIP {
			continue
		}
		target := [5]byte{group.MulticastIp[0], group.MulticastIp[1], group.MulticastIp[2], group.MulticastIp[3], fullHostPrefix}
		if err := m.multicastIPs.AllocateSpecific(target); err != nil {
			log.Warn("multicast IP replay conflict", "group", group.Code, "ip", allocator.NetworkString(target), "error", err)
		}
	}
}

func (m *DeviceMap) Device(pk solana.PublicKey) (*DeviceEntry, bool) {
	entry, ok := m.devices[pk]
	return entry, ok
}

func (m *DeviceMap) Devices() map[solana.PublicKey]*DeviceEntry { return m.devices }

// AllocateUserTunnel reserves a tunnel ID and a tunnel subnet for a user.
// Nothing is allocated when either pool is exhausted.
func (m *DeviceMap) AllocateUserTunnel() (uint16, [5]byte, bool) {
	id, ok := m.userTunnelIDs.Allocate()
	if !ok {
		return 0, [5]byte{}, false
	}
	net, ok := m.userTunnelNets.Allocate()
	if !ok {
		m.userTunnelIDs.Deallocate(id)
		return 0, [5]byte{}, false
	}
	return id, net, true
}

// AllocateLinkTunnel reserves a tunnel ID on the link's side A device and a
// subnet from the device tunnel block.
func (m *DeviceMap) AllocateLinkTunnel(sideA solana.PublicKey) (uint16, [5]byte, bool) {
	entry, ok := m.devices[sideA]
	if !ok {
		return 0, [5]byte{}, false
	}
	id, ok := entry.LinkTunnelIDs.Allocate()
	if !ok {
		return 0, [5]byte{}, false
	}
	net, ok := m.linkTunnelNets.Allocate()
	if !ok {
		entry.LinkTunnelIDs.Deallocate(id)
		return 0, [5]byte{}, false
	}
	return id, net, true
}

func (m *DeviceMap) AllocateMulticastIP() ([4]uint8, bool) {
	net, ok := m.multicastIPs.Allocate()
	if !ok {
		return [4]uint8{}, false
	}
	return [4]uint8{net[0], net[1], net[2], net[3]}, true
}
