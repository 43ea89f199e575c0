package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/allocator"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/pda"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// resourcePDA derives the pool account for a resource kind. The dz-prefix
// pool is per device and prefix index; every other pool is a program-wide
// singleton.
func (p *Processor) resourcePDA(kind instruction.ResourceKind, devPK solana.PublicKey, prefixIdx uint32) (solana.PublicKey, uint8, error) {
	switch kind {
	case instruction.ResourceKindLinkIds:
		return pda.DeriveLinkIdsPDA(p.programID)
	case instruction.ResourceKindSegmentRoutingIds:
		return pda.DeriveSegmentRoutingIdsPDA(p.programID)
	case instruction.ResourceKindUserTunnelBlock:
		return pda.DeriveUserTunnelBlockPDA(p.programID)
	case instruction.ResourceKindDeviceTunnelBlock:
		return pda.DeriveDeviceTunnelBlockPDA(p.programID)
	case instruction.ResourceKindMulticastGroupBlock:
		return pda.DeriveMulticastGroupBlockPDA(p.programID)
	case instruction.ResourceKindMulticastPublisherBlock:
		return pda.DeriveMulticastPublisherBlockPDA(p.programID)
	case instruction.ResourceKindDzPrefixBlock:
		return pda.DeriveDzPrefixBlockPDA(p.programID, devPK, prefixIdx)
	default:
		return solana.PublicKey{}, 0, dzerror.Newf(dzerror.InvalidAccountData, "unknown resource kind %d", kind)
	}
}

// InitializeResourceExtension creates a pool account for a resource kind.
// IP pools default their base network and carve size from GlobalConfig when
// the arguments leave them zero. Foundation only.
func (p *Processor) InitializeResourceExtension(payer, devPK solana.PublicKey, args instruction.InitializeResourceExtensionArgs) (extPK solana.PublicKey, err error) {
	err = p.atomic(func() error {
		gs, _, err := p.globalState()
		if err != nil {
			return err
		}
		if err := requireFoundation(gs, payer); err != nil {
			return err
		}
		pk, bump, err := p.resourcePDA(args.Kind, devPK, args.PrefixIdx)
		if err != nil {
			return err
		}
		if _, ok := p.ledger.Account(pk); ok {
			return dzerror.Newf(dzerror.AccountAlreadyExists, "%s pool already initialized", args.Kind)
		}

		ext := &state.ResourceExtension{
			AccountType: state.ResourceExtensionType,
			Owner:       pk32(payer),
			BumpSeed:    bump,
			PubKey:      pk32(pk),
		}
		var capacity int
		switch args.Kind {
		case instruction.ResourceKindLinkIds, instruction.ResourceKindSegmentRoutingIds:
			if args.RangeEnd <= args.RangeStart {
				return dzerror.Newf(dzerror.IDOutOfRange, "id range [%d, %d) is empty", args.RangeStart, args.RangeEnd)
			}
			ext.Allocator = state.Allocator{
				Type:        state.AllocatorTypeId,
				IdAllocator: &state.IdAllocator{RangeStart: args.RangeStart, RangeEnd: args.RangeEnd},
			}
			capacity = int(args.RangeEnd - args.RangeStart)

		case instruction.ResourceKindDzPrefixBlock:
			dev, err := p.device(devPK)
			if err != nil {
				return err
			}
			if int(args.PrefixIdx) >= len(dev.DzPrefixes) {
				return dzerror.Newf(dzerror.IPOutOfRange, "device %q has no dz prefix %d", dev.Code, args.PrefixIdx)
			}
			base := dev.DzPrefixes[args.PrefixIdx]
			ext.AssociatedWith = pk32(devPK)
			ext.Allocator = state.Allocator{
				Type:        state.AllocatorTypeIp,
				IpAllocator: &state.IpAllocator{BaseNet: base},
			}
			capacity = 1 << (32 - base[4])

		default:
			cfg, err := p.globalConfig()
			if err != nil {
				return err
			}
			base, allocPrefix := args.BaseNet, args.AllocPrefix
			if base == ([5]byte{}) {
				switch args.Kind {
				case instruction.ResourceKindUserTunnelBlock:
					base = cfg.UserTunnelBlock
				case instruction.ResourceKindDeviceTunnelBlock:
					base = cfg.DeviceTunnelBlock
				case instruction.ResourceKindMulticastGroupBlock:
					base = cfg.MulticastGroupBlock
				case instruction.ResourceKindMulticastPublisherBlock:
					base = cfg.MulticastPublisherBlock
				}
			}
			if allocPrefix == 0 {
				switch args.Kind {
				case instruction.ResourceKindUserTunnelBlock:
					allocPrefix = cfg.UserTunnelPrefix
				case instruction.ResourceKindDeviceTunnelBlock:
					allocPrefix = cfg.LinkTunnelPrefix
				default:
					allocPrefix = 32
				}
			}
			if base[4] == 0 || base[4] > 32 || allocPrefix < base[4] || allocPrefix > 32 {
				return dzerror.Newf(dzerror.IPOutOfRange, "invalid pool %s/%d carving /%d", state.NetworkV4String(base), base[4], allocPrefix)
			}
			ext.AssociatedWith = pk32(asPK(cfg.PubKey))
			ext.Allocator = state.Allocator{
				Type:        state.AllocatorTypeIp,
				IpAllocator: &state.IpAllocator{BaseNet: base},
			}
			capacity = 1 << (allocPrefix - base[4])
		}

		ext.Storage = make([]byte, allocator.BitmapLen(capacity))
		if err := ext.Validate(); err != nil {
			return err
		}
		extPK = pk
		return p.create(pk, payer, ext.Serialize())
	})
	return extPK, err
}

// firstFreeIndex returns the lowest clear bit, for the pool's stored scan
// hint.
func firstFreeIndex(bits []byte) uint64 {
	for i, b := range bits {
		if b == 0xff {
			continue
		}
		for j := 0; j < 8; j++ {
			if b&(1<<j) == 0 {
				return uint64(i*8 + j)
			}
		}
	}
	return uint64(len(bits) * 8)
}

func (p *Processor) idPool(extPK solana.PublicKey) (*state.ResourceExtension, *allocator.IDAllocator, error) {
	ext, err := p.resourceExtension(extPK)
	if err != nil {
		return nil, nil, err
	}
	if ext.Allocator.Type != state.AllocatorTypeId || ext.Allocator.IdAllocator == nil {
		return nil, nil, dzerror.Newf(dzerror.InvalidAccountData, "account %s is not an id pool", extPK)
	}
	a, err := allocator.NewID(ext.Allocator.IdAllocator.RangeStart, ext.Allocator.IdAllocator.RangeEnd, ext.Storage)
	if err != nil {
		return nil, nil, err
	}
	return ext, a, nil
}

func (p *Processor) ipPool(extPK solana.PublicKey, allocPrefix uint8) (*state.ResourceExtension, *allocator.IPAllocator, error) {
	ext, err := p.resourceExtension(extPK)
	if err != nil {
		return nil, nil, err
	}
	if ext.Allocator.Type != state.AllocatorTypeIp || ext.Allocator.IpAllocator == nil {
		return nil, nil, dzerror.Newf(dzerror.InvalidAccountData, "account %s is not an ip pool", extPK)
	}
	a, err := allocator.NewIP(ext.Allocator.IpAllocator.BaseNet, allocPrefix, ext.Storage)
	if err != nil {
		return nil, nil, err
	}
	return ext, a, nil
}

func (p *Processor) storePool(ext *state.ResourceExtension, payer solana.PublicKey) error {
	switch ext.Allocator.Type {
	case state.AllocatorTypeId:
		ext.Allocator.IdAllocator.FirstFreeIndex = firstFreeIndex(ext.Storage)
	case state.AllocatorTypeIp:
		ext.Allocator.IpAllocator.FirstFreeIndex = firstFreeIndex(ext.Storage)
	}
	return p.store(asPK(ext.PubKey), payer, ext.Serialize())
}

// allocID takes the lowest free id from a pool.
func (p *Processor) allocID(extPK, payer solana.PublicKey) (uint16, error) {
	ext, a, err := p.idPool(extPK)
	if err != nil {
		return 0, err
	}
	id, ok := a.Allocate()
	if !ok {
		return 0, dzerror.Newf(dzerror.AllocationFailed, "id pool %s is exhausted", extPK)
	}
	return id, p.storePool(ext, payer)
}

func (p *Processor) deallocID(extPK, payer solana.PublicKey, id uint16) error {
	ext, a, err := p.idPool(extPK)
	if err != nil {
		return err
	}
	a.Deallocate(id)
	return p.storePool(ext, payer)
}

// allocIP carves the lowest free /allocPrefix block from an IP pool.
func (p *Processor) allocIP(extPK, payer solana.PublicKey, allocPrefix uint8) ([5]byte, error) {
	ext, a, err := p.ipPool(extPK, allocPrefix)
	if err != nil {
		return [5]byte{}, err
	}
	network, ok := a.Allocate()
	if !ok {
		return [5]byte{}, dzerror.Newf(dzerror.AllocationFailed, "ip pool %s is exhausted", extPK)
	}
	return network, p.storePool(ext, payer)
}

func (p *Processor) deallocIP(extPK, payer solana.PublicKey, network [5]byte, allocPrefix uint8) error {
	ext, a, err := p.ipPool(extPK, allocPrefix)
	if err != nil {
		return err
	}
	a.Deallocate(network)
	return p.storePool(ext, payer)
}
