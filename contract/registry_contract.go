package contract

import (
	"errors"
	"fmt"
	"strings"

	"frogregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("frogregistry.registrycontract")

// RegistryContract provides functions for managing the frog species registry:
// a single owner grants and revokes contributors, and contributors record and
// amend species-observation entries that reference external detail data by
// content hash.
// @contract:RegistryContract
type RegistryContract struct {
	contractapi.Contract
}

// Instantiate is called during chaincode instantiation.
// It's a lifecycle method of the contract.
func (s *RegistryContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("RegistryContract Instantiated/Upgraded")
}

// --- Ownership Operations ---

// BootstrapRegistry binds the registry to its owning authority: the first
// caller becomes the owner. Re-running against a bootstrapped registry fails
// without touching state.
func (s *RegistryContract) BootstrapRegistry(ctx contractapi.TransactionContextInterface) error {
	logger.Info("Attempting to bootstrap registry with initial owner...")
	cm := NewContributorManager(ctx)

	owner, err := cm.GetOwner()
	if err != nil {
		return fmt.Errorf("BootstrapRegistry: failed to check for existing owner: %w", err)
	}
	if owner != "" {
		msg := "registry already has an owner. BootstrapRegistry should not be re-run."
		logger.Info(msg)
		return errors.New(msg)
	}

	callerFullID, err := cm.GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("BootstrapRegistry: failed to get caller identity for bootstrap: %w", err)
	}
	if err := cm.setOwner(callerFullID); err != nil {
		return fmt.Errorf("BootstrapRegistry: %w", err)
	}

	emitRegistryEvent(ctx, "RegistryBootstrapped", map[string]interface{}{
		"owner": callerFullID,
	})
	logger.Infof("Registry bootstrapped successfully. Identity '%s' is now the owner.", callerFullID)
	return nil
}

// TransferOwnership hands the owning authority to another identity.
// Owner-only; exactly one owner exists at any time.
func (s *RegistryContract) TransferOwnership(ctx contractapi.TransactionContextInterface, newOwnerID string) error {
	cm := NewContributorManager(ctx)
	callerFullID, err := cm.RequireOwner()
	if err != nil {
		return fmt.Errorf("TransferOwnership: %w", err)
	}

	newOwnerID = strings.TrimSpace(newOwnerID)
	if newOwnerID == "" {
		return fmt.Errorf("TransferOwnership: newOwnerID cannot be empty: %w", ErrInvalidArgument)
	}
	if newOwnerID == callerFullID {
		logger.Infof("TransferOwnership: '%s' is already the owner. No changes made.", newOwnerID)
		return nil
	}

	if err := cm.setOwner(newOwnerID); err != nil {
		return fmt.Errorf("TransferOwnership: %w", err)
	}

	emitRegistryEvent(ctx, "OwnershipTransferred", map[string]interface{}{
		"previousOwner": callerFullID,
		"newOwner":      newOwnerID,
	})
	logger.Infof("Registry ownership transferred from '%s' to '%s'.", callerFullID, newOwnerID)
	return nil
}

// GetRegistryOwner returns the full ID of the current owner, or the empty
// string if the registry has not been bootstrapped.
func (s *RegistryContract) GetRegistryOwner(ctx contractapi.TransactionContextInterface) (string, error) {
	return NewContributorManager(ctx).GetOwner()
}

// --- Contributor Management Wrappers (Delegating to ContributorManager) ---
// These are direct pass-throughs to ContributorManager, keeping the contract
// API clean.

func (s *RegistryContract) GrantContributor(ctx contractapi.TransactionContextInterface, identity, name string) error {
	logger.Infof("Chaincode Call: GrantContributor for '%s' (name: '%s')", identity, name)
	return NewContributorManager(ctx).GrantContributor(identity, name)
}

func (s *RegistryContract) RevokeContributor(ctx contractapi.TransactionContextInterface, identity string) error {
	logger.Infof("Chaincode Call: RevokeContributor for '%s'", identity)
	return NewContributorManager(ctx).RevokeContributor(identity)
}

func (s *RegistryContract) GetContributor(ctx contractapi.TransactionContextInterface, identity string) (*model.Contributor, error) {
	logger.Debugf("Chaincode Call: GetContributor for '%s' (public access)", identity)
	return NewContributorManager(ctx).GetContributor(identity)
}

func (s *RegistryContract) GetAllContributors(ctx contractapi.TransactionContextInterface) ([]model.Contributor, error) {
	logger.Debug("Chaincode Call: GetAllContributors")
	return NewContributorManager(ctx).GetAllContributors()
}
