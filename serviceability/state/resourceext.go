package state

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/dzerror"
)

type AllocatorType uint8

const (
	AllocatorTypeIp AllocatorType = 0
	AllocatorTypeId AllocatorType = 1
)

func (a AllocatorType) String() string {
	switch a {
	case AllocatorTypeIp:
		return "ip"
	case AllocatorTypeId:
		return "id"
	default:
		return "unknown"
	}
}

// IpAllocator header for a CIDR-block pool.
type IpAllocator struct {
	BaseNet        [5]byte
	FirstFreeIndex uint64
}

// IdAllocator header for a numeric-range pool. RangeEnd is exclusive.
type IdAllocator struct {
	RangeStart     uint16
	RangeEnd       uint16
	FirstFreeIndex uint64
}

// Allocator is a tagged union over the two pool kinds.
type Allocator struct {
	Type        AllocatorType
	IpAllocator *IpAllocator
	IdAllocator *IdAllocator
}

// ResourceExtensionHeaderSize is the fixed byte-addressed header before the
// bitmap: the largest variant is 84 bytes, padded for 8-byte alignment of the
// bitmap words that follow.
const ResourceExtensionHeaderSize = 88

// ResourceExtension is a byte-addressed resource pool (IP block or ID range)
// with a bitmap of allocated entries. Unlike the borsh-framed entities it is
// a fixed-offset layout so the bitmap can be mutated in place.
//
//	[0]      account type
//	[1..32]  owner
//	[33]     bump seed
//	[34..65] associated_with (device pubkey, or zero for global pools)
//	[66]     allocator discriminant (0 = Ip, 1 = Id)
//	Ip:  [67..70] base ip, [71] prefix len, [72..79] first_free_index
//	Id:  [67..68] range_start, [69..70] range_end, [71..78] first_free_index
//	[..87]   padding
//	[88..]   bitmap storage
type ResourceExtension struct {
	AccountType    AccountType
	Owner          [32]byte
	BumpSeed       uint8
	AssociatedWith [32]byte
	Allocator      Allocator
	Storage        []byte
	PubKey         [32]byte
}

func DeserializeResourceExtension(data []byte, ext *ResourceExtension) error {
	if len(data) < ResourceExtensionHeaderSize {
		return dzerror.Newf(dzerror.InvalidAccountData, "resource extension truncated: %d bytes", len(data))
	}
	ext.AccountType = AccountType(data[0])
	copy(ext.Owner[:], data[1:33])
	ext.BumpSeed = data[33]
	copy(ext.AssociatedWith[:], data[34:66])
	ext.Allocator = Allocator{Type: AllocatorType(data[66])}
	switch ext.Allocator.Type {
	case AllocatorTypeIp:
		ip := &IpAllocator{}
		copy(ip.BaseNet[:4], data[67:71])
		ip.BaseNet[4] = data[71]
		ip.FirstFreeIndex = binary.LittleEndian.Uint64(data[72:80])
		ext.Allocator.IpAllocator = ip
	case AllocatorTypeId:
		id := &IdAllocator{}
		id.RangeStart = binary.LittleEndian.Uint16(data[67:69])
		id.RangeEnd = binary.LittleEndian.Uint16(data[69:71])
		id.FirstFreeIndex = binary.LittleEndian.Uint64(data[71:79])
		ext.Allocator.IdAllocator = id
	default:
		return dzerror.Newf(dzerror.InvalidAccountData, "unknown allocator type %d", data[66])
	}
	ext.Storage = append([]byte(nil), data[ResourceExtensionHeaderSize:]...)
	return nil
}

func (r *ResourceExtension) Serialize() []byte {
	out := make([]byte, ResourceExtensionHeaderSize+len(r.Storage))
	out[0] = byte(r.AccountType)
	copy(out[1:33], r.Owner[:])
	out[33] = r.BumpSeed
	copy(out[34:66], r.AssociatedWith[:])
	out[66] = byte(r.Allocator.Type)
	switch r.Allocator.Type {
	case AllocatorTypeIp:
		if ip := r.Allocator.IpAllocator; ip != nil {
			copy(out[67:71], ip.BaseNet[:4])
			out[71] = ip.BaseNet[4]
			binary.LittleEndian.PutUint64(out[72:80], ip.FirstFreeIndex)
		}
	case AllocatorTypeId:
		if id := r.Allocator.IdAllocator; id != nil {
			binary.LittleEndian.PutUint16(out[67:69], id.RangeStart)
			binary.LittleEndian.PutUint16(out[69:71], id.RangeEnd)
			binary.LittleEndian.PutUint64(out[71:79], id.FirstFreeIndex)
		}
	}
	copy(out[ResourceExtensionHeaderSize:], r.Storage)
	return out
}

func (r *ResourceExtension) Validate() error {
	if r.AccountType != ResourceExtensionType {
		return dzerror.New(dzerror.InvalidAccountType)
	}
	switch r.Allocator.Type {
	case AllocatorTypeIp:
		if r.Allocator.IpAllocator == nil {
			return dzerror.Newf(dzerror.InvalidAccountData, "ip allocator header missing")
		}
		if r.Allocator.IpAllocator.BaseNet[4] > 32 {
			return dzerror.Newf(dzerror.InvalidAccountData, "ip allocator prefix %d out of range", r.Allocator.IpAllocator.BaseNet[4])
		}
	case AllocatorTypeId:
		id := r.Allocator.IdAllocator
		if id == nil {
			return dzerror.Newf(dzerror.InvalidAccountData, "id allocator header missing")
		}
		if id.RangeEnd < id.RangeStart {
			return dzerror.Newf(dzerror.InvalidAccountData, "id allocator range [%d, %d) inverted", id.RangeStart, id.RangeEnd)
		}
	default:
		return dzerror.Newf(dzerror.InvalidAccountData, "unknown allocator type %d", r.Allocator.Type)
	}
	return nil
}

// TotalCapacity returns the number of resources the pool covers.
func (r *ResourceExtension) TotalCapacity() int {
	switch r.Allocator.Type {
	case AllocatorTypeIp:
		if r.Allocator.IpAllocator == nil {
			return 0
		}
		prefixLen := r.Allocator.IpAllocator.BaseNet[4]
		if prefixLen > 32 {
			return 0
		}
		return 1 << (32 - prefixLen)
	case AllocatorTypeId:
		if r.Allocator.IdAllocator == nil {
			return 0
		}
		return int(r.Allocator.IdAllocator.RangeEnd - r.Allocator.IdAllocator.RangeStart)
	default:
		return 0
	}
}

// AllocatedCount returns the number of set bits in the bitmap.
func (r *ResourceExtension) AllocatedCount() int {
	count := 0
	for _, b := range r.Storage {
		for b != 0 {
			count += int(b & 1)
			b >>= 1
		}
	}
	return count
}

// AvailableCount returns the number of unallocated resources.
func (r *ResourceExtension) AvailableCount() int {
	return r.TotalCapacity() - r.AllocatedCount()
}

// BaseNetString returns the base network as CIDR for IP allocators.
func (r *ResourceExtension) BaseNetString() string {
	if r.Allocator.Type != AllocatorTypeIp || r.Allocator.IpAllocator == nil {
		return ""
	}
	return NetworkV4String(r.Allocator.IpAllocator.BaseNet)
}

// RangeString returns the ID range for ID allocators.
func (r *ResourceExtension) RangeString() string {
	if r.Allocator.Type != AllocatorTypeId || r.Allocator.IdAllocator == nil {
		return ""
	}
	return fmt.Sprintf("[%d, %d)", r.Allocator.IdAllocator.RangeStart, r.Allocator.IdAllocator.RangeEnd)
}

func (r ResourceExtension) MarshalJSON() ([]byte, error) {
	type ResourceExtensionAlias ResourceExtension

	jsonExt := &struct {
		ResourceExtensionAlias
		Owner          string `json:"Owner"`
		AssociatedWith string `json:"AssociatedWith"`
		PubKey         string `json:"PubKey"`
		AllocatorType  string `json:"AllocatorType"`
		BaseNet        string `json:"BaseNet,omitempty"`
		Range          string `json:"Range,omitempty"`
		TotalCapacity  int    `json:"TotalCapacity"`
		AllocatedCount int    `json:"AllocatedCount"`
		AvailableCount int    `json:"AvailableCount"`
	}{
		ResourceExtensionAlias: ResourceExtensionAlias(r),
		Owner:                  base58.Encode(r.Owner[:]),
		AssociatedWith:         base58.Encode(r.AssociatedWith[:]),
		PubKey:                 base58.Encode(r.PubKey[:]),
		AllocatorType:          r.Allocator.Type.String(),
		BaseNet:                r.BaseNetString(),
		Range:                  r.RangeString(),
		TotalCapacity:          r.TotalCapacity(),
		AllocatedCount:         r.AllocatedCount(),
		AvailableCount:         r.AvailableCount(),
	}

	return json.Marshal(jsonExt)
}
