package dzsdk

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/config"
	"github.com/malbeclabs/doublezero-controlplane/serviceability/state"
)

// ProgramData aggregates all deserialized serviceability accounts.
type ProgramData struct {
	GlobalState           *state.GlobalState
	GlobalConfig          *state.GlobalConfig
	ProgramConfig         *state.ProgramConfig
	Locations             []state.Location
	Exchanges             []state.Exchange
	Contributors          []state.Contributor
	Tenants               []state.Tenant
	Devices               []state.Device
	Links                 []state.Link
	Users                 []state.User
	MulticastGroups       []state.MulticastGroup
	AccessPasses          []state.AccessPass
	ResourceExtensions    []state.ResourceExtension
	MGroupAllowlistEntries []state.MGroupAllowlistEntry
}

// ProgramDataProvider is an interface for types that can provide program data.
type ProgramDataProvider interface {
	GetProgramData(ctx context.Context) (*ProgramData, error)
	ProgramID() solana.PublicKey
}

// Client provides read-only access to serviceability program accounts.
type Client struct {
	rpc       RPCClient
	programID solana.PublicKey
}

// New creates a new serviceability client.
func New(rpc RPCClient, programID solana.PublicKey) *Client {
	return &Client{rpc: rpc, programID: programID}
}

// NewForEnv creates a client configured for the given environment.
// Valid environments: "mainnet-beta", "testnet", "devnet".
func NewForEnv(env string) (*Client, error) {
	cfg, err := config.NetworkConfigForEnv(env)
	if err != nil {
		return nil, err
	}
	return New(NewRPCClient(cfg.LedgerPublicRPCURL), cfg.ServiceabilityProgramID), nil
}

// ProgramID returns the program ID this client is configured with.
func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

// GetGlobalConfig fetches and deserializes the GlobalConfig account.
func (c *Client) GetGlobalConfig(ctx context.Context, pda solana.PublicKey) (*state.GlobalConfig, error) {
	accountInfo, err := c.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch global config account: %w", err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, nil
	}
	data := accountInfo.Value.Data.GetBinary()
	if len(data) == 0 {
		return nil, nil
	}
	var cfg state.GlobalConfig
	state.DeserializeGlobalConfig(state.NewByteReader(data), &cfg)
	cfg.PubKey = pda
	return &cfg, nil
}

// GetProgramData fetches all program accounts and deserializes them by type.
func (c *Client) GetProgramData(ctx context.Context) (*ProgramData, error) {
	out, err := c.rpc.GetProgramAccounts(ctx, c.programID)
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("GetProgramAccounts returned empty result for program %s", c.programID)
	}

	pd := &ProgramData{
		Locations:              []state.Location{},
		Exchanges:              []state.Exchange{},
		Contributors:           []state.Contributor{},
		Tenants:                []state.Tenant{},
		Devices:                []state.Device{},
		Links:                  []state.Link{},
		Users:                  []state.User{},
		MulticastGroups:        []state.MulticastGroup{},
		AccessPasses:           []state.AccessPass{},
		ResourceExtensions:     []state.ResourceExtension{},
		MGroupAllowlistEntries: []state.MGroupAllowlistEntry{},
	}

	for _, element := range out {
		data := element.Account.Data.GetBinary()
		if len(data) == 0 {
			continue
		}
		reader := state.NewByteReader(data)

		switch state.AccountType(data[0]) {
		case state.GlobalStateType:
			var gs state.GlobalState
			state.DeserializeGlobalState(reader, &gs)
			gs.PubKey = element.Pubkey
			pd.GlobalState = &gs
		case state.GlobalConfigType:
			var gc state.GlobalConfig
			state.DeserializeGlobalConfig(reader, &gc)
			gc.PubKey = element.Pubkey
			pd.GlobalConfig = &gc
		case state.ProgramConfigType:
			var pc state.ProgramConfig
			state.DeserializeProgramConfig(reader, &pc)
			pd.ProgramConfig = &pc
		case state.LocationType:
			var loc state.Location
			state.DeserializeLocation(reader, &loc)
			loc.PubKey = element.Pubkey
			pd.Locations = append(pd.Locations, loc)
		case state.ExchangeType:
			var exch state.Exchange
			state.DeserializeExchange(reader, &exch)
			exch.PubKey = element.Pubkey
			pd.Exchanges = append(pd.Exchanges, exch)
		case state.ContributorType:
			var contrib state.Contributor
			state.DeserializeContributor(reader, &contrib)
			contrib.PubKey = element.Pubkey
			pd.Contributors = append(pd.Contributors, contrib)
		case state.TenantType:
			var tenant state.Tenant
			state.DeserializeTenant(reader, &tenant)
			tenant.PubKey = element.Pubkey
			pd.Tenants = append(pd.Tenants, tenant)
		case state.DeviceType:
			var dev state.Device
			if err := state.DeserializeDevice(reader, &dev); err != nil {
				continue
			}
			dev.PubKey = element.Pubkey
			pd.Devices = append(pd.Devices, dev)
		case state.LinkType:
			var link state.Link
			state.DeserializeLink(reader, &link)
			link.PubKey = element.Pubkey
			pd.Links = append(pd.Links, link)
		case state.UserType:
			var user state.User
			state.DeserializeUser(reader, &user)
			user.PubKey = element.Pubkey
			pd.Users = append(pd.Users, user)
		case state.MulticastGroupType:
			var mg state.MulticastGroup
			state.DeserializeMulticastGroup(reader, &mg)
			mg.PubKey = element.Pubkey
			pd.MulticastGroups = append(pd.MulticastGroups, mg)
		case state.AccessPassType:
			var ap state.AccessPass
			state.DeserializeAccessPass(reader, &ap)
			ap.PubKey = element.Pubkey
			pd.AccessPasses = append(pd.AccessPasses, ap)
		case state.ResourceExtensionType:
			var ext state.ResourceExtension
			if err := state.DeserializeResourceExtension(data, &ext); err != nil {
				continue
			}
			ext.PubKey = element.Pubkey
			pd.ResourceExtensions = append(pd.ResourceExtensions, ext)
		case state.MGroupAllowlistEntryType:
			var entry state.MGroupAllowlistEntry
			state.DeserializeMGroupAllowlistEntry(reader, &entry)
			entry.PubKey = element.Pubkey
			pd.MGroupAllowlistEntries = append(pd.MGroupAllowlistEntries, entry)
		}
	}

	return pd, nil
}
