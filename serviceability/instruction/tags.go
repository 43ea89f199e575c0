// Package instruction defines the wire format of the serviceability program:
// a single tag byte followed by borsh-encoded arguments. Tags are
// append-only; a tag is never renumbered or reused once shipped.
package instruction

type Tag uint8

const (
	TagInitGlobalState           Tag = 0
	TagSetAuthority              Tag = 1
	TagAddFoundationAllowlist    Tag = 2
	TagRemoveFoundationAllowlist Tag = 3
	TagSetGlobalConfig           Tag = 4

	TagCreateLocation  Tag = 5
	TagUpdateLocation  Tag = 6
	TagSuspendLocation Tag = 7
	TagResumeLocation  Tag = 8
	TagDeleteLocation  Tag = 9

	TagCreateExchange  Tag = 10
	TagUpdateExchange  Tag = 11
	TagSuspendExchange Tag = 12
	TagResumeExchange  Tag = 13
	TagDeleteExchange  Tag = 14

	TagCreateContributor  Tag = 15
	TagUpdateContributor  Tag = 16
	TagSuspendContributor Tag = 17
	TagResumeContributor  Tag = 18
	TagDeleteContributor  Tag = 19

	TagCreateDevice       Tag = 20
	TagUpdateDevice       Tag = 21
	TagActivateDevice     Tag = 22
	TagRejectDevice       Tag = 23
	TagSuspendDevice      Tag = 24
	TagResumeDevice       Tag = 25
	TagDeleteDevice       Tag = 26
	TagCloseAccountDevice Tag = 27

	TagCreateDeviceInterface Tag = 28
	TagUpdateDeviceInterface Tag = 29
	TagRemoveDeviceInterface Tag = 30
	TagSetDeviceHealth       Tag = 31

	TagCreateLink       Tag = 32
	TagAcceptLink       Tag = 33
	TagUpdateLink       Tag = 34
	TagActivateLink     Tag = 35
	TagRejectLink       Tag = 36
	TagSetLinkHealth    Tag = 37
	TagDeleteLink       Tag = 38
	TagDeleteLinkAtomic Tag = 39
	TagCloseAccountLink Tag = 40

	TagCreateUser                Tag = 41
	TagCreateSubscribeUser       Tag = 42
	TagActivateUser              Tag = 43
	TagUpdateUser                Tag = 44
	TagRejectUser                Tag = 45
	TagSubscribeMulticastGroup   Tag = 46
	TagUnsubscribeMulticastGroup Tag = 47
	TagDeleteUser                Tag = 48
	TagDeleteUserAtomic          Tag = 49
	TagCloseAccountUser          Tag = 50

	TagCreateMulticastGroup       Tag = 51
	TagUpdateMulticastGroup       Tag = 52
	TagActivateMulticastGroup     Tag = 53
	TagRejectMulticastGroup       Tag = 54
	TagSuspendMulticastGroup      Tag = 55
	TagResumeMulticastGroup       Tag = 56
	TagDeleteMulticastGroup       Tag = 57
	TagDeleteMulticastGroupAtomic Tag = 58
	TagCloseAccountMulticastGroup Tag = 59

	TagAddMGroupPubAllowlist    Tag = 60
	TagRemoveMGroupPubAllowlist Tag = 61
	TagAddMGroupSubAllowlist    Tag = 62
	TagRemoveMGroupSubAllowlist Tag = 63

	TagSetAccessPass   Tag = 64
	TagCloseAccessPass Tag = 65

	TagCreateTenant Tag = 66
	TagUpdateTenant Tag = 67
	TagDeleteTenant Tag = 68

	TagInitializeResourceExtension Tag = 69
	TagSetProgramVersion           Tag = 70

	TagAddQAAllowlist    Tag = 71
	TagRemoveQAAllowlist Tag = 72
	TagSetFeatureFlags   Tag = 73
)

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unknown"
}

var tagNames = map[Tag]string{
	TagInitGlobalState:           "init_global_state",
	TagSetAuthority:              "set_authority",
	TagAddFoundationAllowlist:    "add_foundation_allowlist",
	TagRemoveFoundationAllowlist: "remove_foundation_allowlist",
	TagSetGlobalConfig:           "set_global_config",

	TagCreateLocation:  "create_location",
	TagUpdateLocation:  "update_location",
	TagSuspendLocation: "suspend_location",
	TagResumeLocation:  "resume_location",
	TagDeleteLocation:  "delete_location",

	TagCreateExchange:  "create_exchange",
	TagUpdateExchange:  "update_exchange",
	TagSuspendExchange: "suspend_exchange",
	TagResumeExchange:  "resume_exchange",
	TagDeleteExchange:  "delete_exchange",

	TagCreateContributor:  "create_contributor",
	TagUpdateContributor:  "update_contributor",
	TagSuspendContributor: "suspend_contributor",
	TagResumeContributor:  "resume_contributor",
	TagDeleteContributor:  "delete_contributor",

	TagCreateDevice:       "create_device",
	TagUpdateDevice:       "update_device",
	TagActivateDevice:     "activate_device",
	TagRejectDevice:       "reject_device",
	TagSuspendDevice:      "suspend_device",
	TagResumeDevice:       "resume_device",
	TagDeleteDevice:       "delete_device",
	TagCloseAccountDevice: "close_account_device",

	TagCreateDeviceInterface: "create_device_interface",
	TagUpdateDeviceInterface: "update_device_interface",
	TagRemoveDeviceInterface: "remove_device_interface",
	TagSetDeviceHealth:       "set_device_health",

	TagCreateLink:       "create_link",
	TagAcceptLink:       "accept_link",
	TagUpdateLink:       "update_link",
	TagActivateLink:     "activate_link",
	TagRejectLink:       "reject_link",
	TagSetLinkHealth:    "set_link_health",
	TagDeleteLink:       "delete_link",
	TagDeleteLinkAtomic: "delete_link_atomic",
	TagCloseAccountLink: "close_account_link",

	TagCreateUser:                "create_user",
	TagCreateSubscribeUser:       "create_subscribe_user",
	TagActivateUser:              "activate_user",
	TagUpdateUser:                "update_user",
	TagRejectUser:                "reject_user",
	TagSubscribeMulticastGroup:   "subscribe_multicast_group",
	TagUnsubscribeMulticastGroup: "unsubscribe_multicast_group",
	TagDeleteUser:                "delete_user",
	TagDeleteUserAtomic:          "delete_user_atomic",
	TagCloseAccountUser:          "close_account_user",

	TagCreateMulticastGroup:       "create_multicast_group",
	TagUpdateMulticastGroup:       "update_multicast_group",
	TagActivateMulticastGroup:     "activate_multicast_group",
	TagRejectMulticastGroup:       "reject_multicast_group",
	TagSuspendMulticastGroup:      "suspend_multicast_group",
	TagResumeMulticastGroup:       "resume_multicast_group",
	TagDeleteMulticastGroup:       "delete_multicast_group",
	TagDeleteMulticastGroupAtomic: "delete_multicast_group_atomic",
	TagCloseAccountMulticastGroup: "close_account_multicast_group",

	TagAddMGroupPubAllowlist:    "add_mgroup_pub_allowlist",
	TagRemoveMGroupPubAllowlist: "remove_mgroup_pub_allowlist",
	TagAddMGroupSubAllowlist:    "add_mgroup_sub_allowlist",
	TagRemoveMGroupSubAllowlist: "remove_mgroup_sub_allowlist",

	TagSetAccessPass:   "set_access_pass",
	TagCloseAccessPass: "close_access_pass",

	TagCreateTenant: "create_tenant",
	TagUpdateTenant: "update_tenant",
	TagDeleteTenant: "delete_tenant",

	TagInitializeResourceExtension: "initialize_resource_extension",
	TagSetProgramVersion:           "set_program_version",

	TagAddQAAllowlist:    "add_qa_allowlist",
	TagRemoveQAAllowlist: "remove_qa_allowlist",
	TagSetFeatureFlags:   "set_feature_flags",
}
