package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"frogregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var cmLogger = flogging.MustGetLogger("frogregistry.contributormanager")

// Object types for composite keys, also usable as 'docType' or 'objectType' in CouchDB.
const (
	contributorObjectType = "Contributor"   // Stores Contributor objects. Attribute for composite key: Identity.
	ownerObjectType       = "RegistryOwner" // Single key holding the owner's full ID.
	ownerKeyAttribute     = "current"
)

// ContributorManager gates all contributor-authority changes through the
// single registry owner and answers authorization queries for record ops.
type ContributorManager struct {
	Ctx contractapi.TransactionContextInterface
}

// NewContributorManager creates a new instance of ContributorManager.
func NewContributorManager(ctx contractapi.TransactionContextInterface) *ContributorManager {
	return &ContributorManager{Ctx: ctx}
}

// --- Internal Helper Functions ---

func (cm *ContributorManager) getCurrentTxTimestamp() (time.Time, error) {
	ts, err := cm.Ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// --- Key Creation Helpers (using Composite Keys) ---

func (cm *ContributorManager) createContributorCompositeKey(identity string) (string, error) {
	return cm.Ctx.GetStub().CreateCompositeKey(contributorObjectType, []string{identity})
}

func (cm *ContributorManager) createOwnerCompositeKey() (string, error) {
	return cm.Ctx.GetStub().CreateCompositeKey(ownerObjectType, []string{ownerKeyAttribute})
}

// --- Owner State ---

// GetOwner returns the full ID of the current registry owner, or the empty
// string if the registry has not been bootstrapped yet.
func (cm *ContributorManager) GetOwner() (string, error) {
	ownerKey, err := cm.createOwnerCompositeKey()
	if err != nil {
		return "", fmt.Errorf("failed to create owner key: %w", err)
	}
	ownerBytes, err := cm.Ctx.GetStub().GetState(ownerKey)
	if err != nil {
		return "", fmt.Errorf("ledger error reading registry owner: %w", err)
	}
	if ownerBytes == nil {
		return "", nil
	}
	return string(ownerBytes), nil
}

func (cm *ContributorManager) setOwner(fullID string) error {
	ownerKey, err := cm.createOwnerCompositeKey()
	if err != nil {
		return fmt.Errorf("failed to create owner key: %w", err)
	}
	if err := cm.Ctx.GetStub().PutState(ownerKey, []byte(fullID)); err != nil {
		return fmt.Errorf("failed to save registry owner: %w", err)
	}
	return nil
}

// IsOwner reports whether the given identity is the current registry owner.
func (cm *ContributorManager) IsOwner(fullID string) (bool, error) {
	owner, err := cm.GetOwner()
	if err != nil {
		return false, err
	}
	return owner != "" && owner == fullID, nil
}

// RequireOwner ensures the current transactor is the registry owner.
func (cm *ContributorManager) RequireOwner() (string, error) {
	callerFullID, err := cm.GetCurrentIdentityFullID()
	if err != nil {
		return "", fmt.Errorf("failed to get caller's FullID for owner check: %w", err)
	}
	isOwner, err := cm.IsOwner(callerFullID)
	if err != nil {
		return "", fmt.Errorf("failed to verify owner status for '%s': %w", callerFullID, err)
	}
	if !isOwner {
		return "", fmt.Errorf("caller '%s' is not the registry owner: %w", callerFullID, ErrUnauthorized)
	}
	return callerFullID, nil
}

// --- Public Contributor Management Functions ---

// GrantContributor authorizes an identity to create and amend records.
// Re-granting a previously revoked identity is allowed and refreshes the
// display name; only a currently authorized identity is rejected.
func (cm *ContributorManager) GrantContributor(identity, name string) error {
	callerFullID, err := cm.RequireOwner()
	if err != nil {
		return err
	}

	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("contributor identity cannot be empty: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("contributor name cannot be empty: %w", ErrInvalidArgument)
	}
	if len(name) > maxStringInputLength {
		return fmt.Errorf("contributor name exceeds max length %d: %w", maxStringInputLength, ErrInvalidArgument)
	}

	existing, err := cm.getContributorByIdentity(identity)
	if err != nil {
		return err
	}
	if existing != nil && existing.Authorized {
		return fmt.Errorf("identity '%s': %w", identity, ErrAlreadyAuthorized)
	}

	now, err := cm.getCurrentTxTimestamp()
	if err != nil {
		return err
	}

	var contributor model.Contributor
	if existing == nil {
		contributor = model.Contributor{
			ObjectType:    contributorObjectType,
			Identity:      identity,
			Name:          name,
			Authorized:    true,
			GrantedBy:     callerFullID,
			GrantedAt:     now,
			LastUpdatedAt: now,
		}
		cmLogger.Infof("Granting new contributor '%s' (name: '%s') by owner '%s'", identity, name, callerFullID)
	} else {
		contributor = *existing
		contributor.Name = name
		contributor.Authorized = true
		contributor.GrantedBy = callerFullID
		contributor.GrantedAt = now
		contributor.LastUpdatedAt = now
		cmLogger.Infof("Re-granting previously revoked contributor '%s' (name: '%s') by owner '%s'", identity, name, callerFullID)
	}

	contributorBytes, err := json.Marshal(contributor)
	if err != nil {
		return fmt.Errorf("failed to marshal Contributor for '%s': %w", identity, err)
	}
	contributorKey, err := cm.createContributorCompositeKey(identity)
	if err != nil {
		return fmt.Errorf("failed to create contributor key for '%s': %w", identity, err)
	}
	if err := cm.Ctx.GetStub().PutState(contributorKey, contributorBytes); err != nil {
		return fmt.Errorf("failed to save Contributor for '%s': %w", identity, err)
	}

	emitRegistryEvent(cm.Ctx, "ContributorAuthorized", map[string]interface{}{
		"identity": identity,
		"name":     name,
	})
	return nil
}

// RevokeContributor withdraws an identity's authorization. The entry is never
// deleted; the flag flips so the name and grant history stay queryable.
func (cm *ContributorManager) RevokeContributor(identity string) error {
	callerFullID, err := cm.RequireOwner()
	if err != nil {
		return err
	}

	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("contributor identity cannot be empty: %w", ErrInvalidArgument)
	}

	existing, err := cm.getContributorByIdentity(identity)
	if err != nil {
		return err
	}
	if existing == nil || !existing.Authorized {
		return fmt.Errorf("identity '%s': %w", identity, ErrNotAuthorized)
	}

	now, err := cm.getCurrentTxTimestamp()
	if err != nil {
		return err
	}
	existing.Authorized = false
	existing.LastUpdatedAt = now

	contributorBytes, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("failed to marshal Contributor for '%s': %w", identity, err)
	}
	contributorKey, err := cm.createContributorCompositeKey(identity)
	if err != nil {
		return fmt.Errorf("failed to create contributor key for '%s': %w", identity, err)
	}
	if err := cm.Ctx.GetStub().PutState(contributorKey, contributorBytes); err != nil {
		return fmt.Errorf("failed to save Contributor for '%s': %w", identity, err)
	}

	cmLogger.Infof("Contributor '%s' revoked by owner '%s'", identity, callerFullID)
	emitRegistryEvent(cm.Ctx, "ContributorRevoked", map[string]interface{}{
		"identity": identity,
	})
	return nil
}

// getContributorByIdentity returns the stored entry, or nil when the identity
// has never been granted.
func (cm *ContributorManager) getContributorByIdentity(identity string) (*model.Contributor, error) {
	contributorKey, err := cm.createContributorCompositeKey(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create contributor key for '%s': %w", identity, err)
	}
	contributorBytes, err := cm.Ctx.GetStub().GetState(contributorKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error retrieving Contributor for '%s': %w", identity, err)
	}
	if contributorBytes == nil {
		return nil, nil
	}
	var contributor model.Contributor
	if err := json.Unmarshal(contributorBytes, &contributor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Contributor for '%s': %w", identity, err)
	}
	return &contributor, nil
}

// GetContributor returns the entry for an identity. Unknown identities return
// the zero value (empty name, unauthorized): absence means "never granted",
// which is indistinguishable from unauthorized on purpose.
func (cm *ContributorManager) GetContributor(identity string) (*model.Contributor, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, fmt.Errorf("contributor identity cannot be empty: %w", ErrInvalidArgument)
	}
	existing, err := cm.getContributorByIdentity(identity)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &model.Contributor{ObjectType: contributorObjectType, Identity: identity}, nil
	}
	return existing, nil
}

// IsAuthorized reports whether an identity is currently an authorized
// contributor. Authorization is evaluated live at call time: it is a
// capability to act, not a property of records authored in the past.
func (cm *ContributorManager) IsAuthorized(identity string) (bool, error) {
	existing, err := cm.getContributorByIdentity(identity)
	if err != nil {
		return false, err
	}
	return existing != nil && existing.Authorized, nil
}

// GetAllContributors lists every contributor entry, authorized or revoked.
// Owner-only: the roster of who was ever granted is not a public surface.
func (cm *ContributorManager) GetAllContributors() ([]model.Contributor, error) {
	if _, err := cm.RequireOwner(); err != nil {
		return nil, fmt.Errorf("GetAllContributors: %w", err)
	}

	resultsIterator, err := cm.Ctx.GetStub().GetStateByPartialCompositeKey(contributorObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("failed to get contributors iterator using objectType '%s': %w", contributorObjectType, err)
	}
	defer resultsIterator.Close()

	contributors := []model.Contributor{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			cmLogger.Warningf("Failed to get next contributor from iterator: %v. Skipping.", iterErr)
			continue
		}
		var contributor model.Contributor
		if err := json.Unmarshal(queryResponse.Value, &contributor); err != nil {
			cmLogger.Warningf("Failed to unmarshal contributor data for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		contributors = append(contributors, contributor)
	}
	return contributors, nil
}

// GetCurrentIdentityFullID retrieves the full X.509 ID of the current transactor.
func (cm *ContributorManager) GetCurrentIdentityFullID() (string, error) {
	clientIdentity := cm.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	return id, nil
}
