package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootstrapRegistrySetsOwner(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.contract.BootstrapRegistry(env.ctxFor(ownerID)))

	owner, err := env.contract.GetRegistryOwner(env.ctxFor(unknownID))
	require.NoError(t, err)
	require.Equal(t, ownerID, owner)

	event := env.stub.lastEvent()
	require.NotNil(t, event)
	require.Equal(t, "RegistryBootstrapped", event.name)
}

func TestBootstrapRegistryRejectsSecondRun(t *testing.T) {
	env := bootstrapped(t)

	err := env.contract.BootstrapRegistry(env.ctxFor(aliceID))
	require.Error(t, err)

	owner, err := env.contract.GetRegistryOwner(env.ctxFor(unknownID))
	require.NoError(t, err)
	require.Equal(t, ownerID, owner, "owner must be unchanged after a rejected re-bootstrap")
}

func TestTransferOwnership(t *testing.T) {
	env := bootstrapped(t)

	require.NoError(t, env.contract.TransferOwnership(env.ctxFor(ownerID), aliceID))

	owner, err := env.contract.GetRegistryOwner(env.ctxFor(unknownID))
	require.NoError(t, err)
	require.Equal(t, aliceID, owner)

	// The previous owner lost the grant capability along with ownership.
	err = env.contract.GrantContributor(env.ctxFor(ownerID), bobID, "Lab B")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.NoError(t, env.contract.GrantContributor(env.ctxFor(aliceID), bobID, "Lab B"))
}

func TestTransferOwnershipRequiresOwner(t *testing.T) {
	env := bootstrapped(t)

	err := env.contract.TransferOwnership(env.ctxFor(aliceID), bobID)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetContributorUnknownIdentityIsZeroValue(t *testing.T) {
	env := bootstrapped(t)

	contributor, err := env.contract.GetContributor(env.ctxFor(unknownID), unknownID)
	require.NoError(t, err)
	require.Equal(t, unknownID, contributor.Identity)
	require.Empty(t, contributor.Name)
	require.False(t, contributor.Authorized)
}

func TestGrantContributor(t *testing.T) {
	env := bootstrapped(t)

	require.NoError(t, env.contract.GrantContributor(env.ctxFor(ownerID), aliceID, "Lab A"))

	contributor, err := env.contract.GetContributor(env.ctxFor(unknownID), aliceID)
	require.NoError(t, err)
	require.Equal(t, "Lab A", contributor.Name)
	require.True(t, contributor.Authorized)
	require.Equal(t, ownerID, contributor.GrantedBy)

	event := env.stub.lastEvent()
	require.Equal(t, "ContributorAuthorized", event.name)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(event.payload, &payload))
	require.Equal(t, aliceID, payload["identity"])
	require.Equal(t, "Lab A", payload["name"])
}

func TestGrantContributorRequiresOwner(t *testing.T) {
	env := bootstrapped(t)

	err := env.contract.GrantContributor(env.ctxFor(aliceID), bobID, "Lab B")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestGrantContributorValidatesInputs(t *testing.T) {
	env := bootstrapped(t)

	err := env.contract.GrantContributor(env.ctxFor(ownerID), "", "Lab A")
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = env.contract.GrantContributor(env.ctxFor(ownerID), aliceID, "  ")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGrantAlreadyAuthorizedFailsWithoutStateChange(t *testing.T) {
	env := bootstrapped(t)
	env.grant(t, aliceID, "Lab A")

	err := env.contract.GrantContributor(env.ctxFor(ownerID), aliceID, "Lab A Renamed")
	require.ErrorIs(t, err, ErrAlreadyAuthorized)

	contributor, err := env.contract.GetContributor(env.ctxFor(unknownID), aliceID)
	require.NoError(t, err)
	require.Equal(t, "Lab A", contributor.Name, "a failed grant must not touch state")
	require.True(t, contributor.Authorized)
}

func TestRevokeContributorFlipsFlagAndKeepsName(t *testing.T) {
	env := bootstrapped(t)
	env.grant(t, aliceID, "Lab A")

	require.NoError(t, env.contract.RevokeContributor(env.ctxFor(ownerID), aliceID))

	contributor, err := env.contract.GetContributor(env.ctxFor(unknownID), aliceID)
	require.NoError(t, err)
	require.False(t, contributor.Authorized)
	require.Equal(t, "Lab A", contributor.Name, "name persists across revocation")

	event := env.stub.lastEvent()
	require.Equal(t, "ContributorRevoked", event.name)
}

func TestRevokeRequiresCurrentAuthorization(t *testing.T) {
	env := bootstrapped(t)

	// Never granted.
	err := env.contract.RevokeContributor(env.ctxFor(ownerID), aliceID)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Already revoked.
	env.grant(t, aliceID, "Lab A")
	require.NoError(t, env.contract.RevokeContributor(env.ctxFor(ownerID), aliceID))
	err = env.contract.RevokeContributor(env.ctxFor(ownerID), aliceID)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRevokeRequiresOwner(t *testing.T) {
	env := bootstrapped(t)
	env.grant(t, aliceID, "Lab A")

	err := env.contract.RevokeContributor(env.ctxFor(bobID), aliceID)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegrantAfterRevoke(t *testing.T) {
	env := bootstrapped(t)
	env.grant(t, aliceID, "Lab A")
	require.NoError(t, env.contract.RevokeContributor(env.ctxFor(ownerID), aliceID))

	// The grant guard only rejects currently authorized identities, so a
	// revoked contributor can be re-granted, with a refreshed name.
	require.NoError(t, env.contract.GrantContributor(env.ctxFor(ownerID), aliceID, "Lab A (rejoined)"))

	contributor, err := env.contract.GetContributor(env.ctxFor(unknownID), aliceID)
	require.NoError(t, err)
	require.True(t, contributor.Authorized)
	require.Equal(t, "Lab A (rejoined)", contributor.Name)
}

func TestGetAllContributorsOwnerOnly(t *testing.T) {
	env := bootstrapped(t)
	env.grant(t, aliceID, "Lab A")
	env.grant(t, bobID, "Lab B")
	require.NoError(t, env.contract.RevokeContributor(env.ctxFor(ownerID), bobID))

	_, err := env.contract.GetAllContributors(env.ctxFor(aliceID))
	require.ErrorIs(t, err, ErrUnauthorized)

	contributors, err := env.contract.GetAllContributors(env.ctxFor(ownerID))
	require.NoError(t, err)
	require.Len(t, contributors, 2, "revoked contributors stay listed")

	byIdentity := map[string]bool{}
	for _, c := range contributors {
		byIdentity[c.Identity] = c.Authorized
	}
	require.True(t, byIdentity[aliceID])
	require.False(t, byIdentity[bobID])
}
