package dzsdk

import (
	"github.com/gagliardetto/solana-go"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/instruction"
)

// The builders below produce the instructions the activator submits. Account
// ordering matches the program's dispatch layout: the entity accounts the
// instruction touches, in positional order, followed by the signer.

func newInstruction(programID solana.PublicKey, signer solana.PublicKey, data []byte, writable ...solana.PublicKey) solana.Instruction {
	accounts := make([]*solana.AccountMeta, 0, len(writable)+1)
	for _, pk := range writable {
		accounts = append(accounts, &solana.AccountMeta{PublicKey: pk, IsWritable: true})
	}
	accounts = append(accounts, &solana.AccountMeta{PublicKey: signer, IsSigner: true, IsWritable: true})
	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}
}

// BuildActivateDeviceInstruction marks a pending device as activated.
func BuildActivateDeviceInstruction(programID, signer, devicePK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagActivateDevice}.Encode()
	return newInstruction(programID, signer, data, devicePK)
}

// BuildRejectDeviceInstruction rejects a pending device.
func BuildRejectDeviceInstruction(programID, signer, devicePK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagRejectDevice}.Encode()
	return newInstruction(programID, signer, data, devicePK)
}

// BuildCloseAccountDeviceInstruction closes a deleting or rejected device account.
func BuildCloseAccountDeviceInstruction(programID, signer, devicePK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagCloseAccountDevice}.Encode()
	return newInstruction(programID, signer, data, devicePK)
}

// BuildActivateLinkInstruction activates a pending link with the allocated
// tunnel ID and tunnel network.
func BuildActivateLinkInstruction(programID, signer, linkPK solana.PublicKey, args instruction.ActivateLinkArgs) solana.Instruction {
	return newInstruction(programID, signer, args.Encode(), linkPK)
}

// BuildRejectLinkInstruction rejects a requested or pending link.
func BuildRejectLinkInstruction(programID, signer, linkPK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagRejectLink}.Encode()
	return newInstruction(programID, signer, data, linkPK)
}

// BuildCloseAccountLinkInstruction closes a deleting or rejected link account.
func BuildCloseAccountLinkInstruction(programID, signer, linkPK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagCloseAccountLink}.Encode()
	return newInstruction(programID, signer, data, linkPK)
}

// BuildDeleteLinkAtomicInstruction deallocates a link's tunnel resources and
// closes the account in a single transaction. linkIDPoolPK and
// tunnelBlockPoolPK are the resource extension pools the link's allocations
// came from.
func BuildDeleteLinkAtomicInstruction(programID, signer, linkPK, linkIDPoolPK, tunnelBlockPoolPK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagDeleteLinkAtomic}.Encode()
	return newInstruction(programID, signer, data, linkPK, linkIDPoolPK, tunnelBlockPoolPK)
}

// BuildActivateUserInstruction activates a pending or updating user with the
// allocated tunnel ID, tunnel network, and dz IP.
func BuildActivateUserInstruction(programID, signer, userPK solana.PublicKey, args instruction.ActivateUserArgs) solana.Instruction {
	return newInstruction(programID, signer, args.Encode(), userPK)
}

// BuildRejectUserInstruction rejects a pending user.
func BuildRejectUserInstruction(programID, signer, userPK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagRejectUser}.Encode()
	return newInstruction(programID, signer, data, userPK)
}

// BuildCloseAccountUserInstruction closes a deleting, rejected, or banned user account.
func BuildCloseAccountUserInstruction(programID, signer, userPK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagCloseAccountUser}.Encode()
	return newInstruction(programID, signer, data, userPK)
}

// BuildActivateMulticastGroupInstruction activates a pending multicast group
// with the allocated multicast IP.
func BuildActivateMulticastGroupInstruction(programID, signer, mgroupPK solana.PublicKey, args instruction.ActivateMulticastGroupArgs) solana.Instruction {
	return newInstruction(programID, signer, args.Encode(), mgroupPK)
}

// BuildRejectMulticastGroupInstruction rejects a pending multicast group.
func BuildRejectMulticastGroupInstruction(programID, signer, mgroupPK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagRejectMulticastGroup}.Encode()
	return newInstruction(programID, signer, data, mgroupPK)
}

// BuildCloseAccountMulticastGroupInstruction closes a deleting or rejected multicast group account.
func BuildCloseAccountMulticastGroupInstruction(programID, signer, mgroupPK solana.PublicKey) solana.Instruction {
	data := instruction.NoArgs{Tag: instruction.TagCloseAccountMulticastGroup}.Encode()
	return newInstruction(programID, signer, data, mgroupPK)
}
