package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	"frogregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// ValidConservationStatuses defines the set of permissible assessments.
var ValidConservationStatuses = map[model.ConservationStatus]bool{
	model.StatusLeastConcern:         true,
	model.StatusNearThreatened:       true,
	model.StatusVulnerable:           true,
	model.StatusEndangered:           true,
	model.StatusCriticallyEndangered: true,
	model.StatusExtinct:              true,
}

// --- Lifecycle: Record Operations ---
// State machine per record: nonexistent -> active -> inactive (terminal).
// No transition returns a record to active.

// CreateRecord registers a new species-observation entry and returns its
// identifier. The caller must be a currently authorized contributor;
// authorization is evaluated at call time, so a later revoke leaves records
// authored earlier untouched.
func (s *RegistryContract) CreateRecord(ctx contractapi.TransactionContextInterface,
	scientificName, genus, habitat, conservationStatus, dataHash string) (uint64, error) {

	cm := NewContributorManager(ctx)
	callerFullID, err := cm.GetCurrentIdentityFullID()
	if err != nil {
		return 0, fmt.Errorf("CreateRecord: failed to get caller identity: %w", err)
	}
	authorized, err := cm.IsAuthorized(callerFullID)
	if err != nil {
		return 0, fmt.Errorf("CreateRecord: failed to check contributor authorization: %w", err)
	}
	if !authorized {
		return 0, fmt.Errorf("CreateRecord: caller '%s' is not an authorized contributor: %w", callerFullID, ErrUnauthorized)
	}

	if err := s.validateRequiredString(scientificName, "scientificName", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(genus, "genus", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(habitat, "habitat", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(dataHash, "dataHash", maxDataHashLength); err != nil {
		return 0, err
	}
	status, err := parseConservationStatus(conservationStatus)
	if err != nil {
		return 0, err
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("CreateRecord: %w", err)
	}

	recordID, err := s.nextRecordID(ctx)
	if err != nil {
		return 0, fmt.Errorf("CreateRecord: %w", err)
	}

	record := model.SpeciesRecord{
		ObjectType:         recordObjectType,
		ID:                 recordID,
		ScientificName:     scientificName,
		Genus:              genus,
		Habitat:            habitat,
		ConservationStatus: status,
		DataHash:           dataHash,
		Creator:            callerFullID,
		CreatedAt:          now,
		LastUpdatedAt:      now,
		Active:             true,
	}

	recordKey, err := s.createRecordCompositeKey(ctx, recordID)
	if err != nil {
		return 0, fmt.Errorf("CreateRecord: failed to create composite key for record %d: %w", recordID, err)
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("CreateRecord: failed to marshal record %d: %w", recordID, err)
	}
	if err := ctx.GetStub().PutState(recordKey, recordBytes); err != nil {
		return 0, fmt.Errorf("CreateRecord: failed to save record %d to ledger: %w", recordID, err)
	}

	if err := s.appendContributorRecordID(ctx, callerFullID, recordID); err != nil {
		return 0, fmt.Errorf("CreateRecord: %w", err)
	}

	emitRegistryEvent(ctx, "RecordCreated", map[string]interface{}{
		"id":                 recordID,
		"scientificName":     scientificName,
		"genus":              genus,
		"habitat":            habitat,
		"conservationStatus": status,
		"dataHash":           dataHash,
		"creator":            callerFullID,
	})
	logger.Infof("Record %d ('%s') created by contributor '%s'", recordID, scientificName, callerFullID)
	return recordID, nil
}

// UpdateRecordData replaces the external-data reference of an active record.
// Creator-exclusive: the owner does NOT bypass this check. Scientific name,
// genus, habitat and creator are never touched by update.
func (s *RegistryContract) UpdateRecordData(ctx contractapi.TransactionContextInterface, recordID uint64, newDataHash string) error {
	record, err := s.getActiveRecordForMutation(ctx, recordID)
	if err != nil {
		return fmt.Errorf("UpdateRecordData: %w", err)
	}

	callerFullID, err := NewContributorManager(ctx).GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("UpdateRecordData: failed to get caller identity: %w", err)
	}
	if callerFullID != record.Creator {
		return fmt.Errorf("UpdateRecordData: caller '%s' is not the creator of record %d: %w", callerFullID, recordID, ErrForbidden)
	}

	if err := s.validateRequiredString(newDataHash, "newDataHash", maxDataHashLength); err != nil {
		return err
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("UpdateRecordData: %w", err)
	}
	record.DataHash = newDataHash
	record.LastUpdatedAt = now

	if err := s.putRecord(ctx, record); err != nil {
		return fmt.Errorf("UpdateRecordData: %w", err)
	}

	emitRegistryEvent(ctx, "RecordUpdated", map[string]interface{}{
		"id":       recordID,
		"dataHash": newDataHash,
	})
	logger.Infof("Record %d data reference updated by creator '%s'", recordID, callerFullID)
	return nil
}

// SetConservationStatus amends the assessment of an active record.
// Creator-exclusive, same as update.
func (s *RegistryContract) SetConservationStatus(ctx contractapi.TransactionContextInterface, recordID uint64, conservationStatus string) error {
	record, err := s.getActiveRecordForMutation(ctx, recordID)
	if err != nil {
		return fmt.Errorf("SetConservationStatus: %w", err)
	}

	callerFullID, err := NewContributorManager(ctx).GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("SetConservationStatus: failed to get caller identity: %w", err)
	}
	if callerFullID != record.Creator {
		return fmt.Errorf("SetConservationStatus: caller '%s' is not the creator of record %d: %w", callerFullID, recordID, ErrForbidden)
	}

	status, err := parseConservationStatus(conservationStatus)
	if err != nil {
		return err
	}
	if status == record.ConservationStatus {
		logger.Infof("SetConservationStatus: record %d already has status '%s'. No changes made.", recordID, status)
		return nil
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("SetConservationStatus: %w", err)
	}
	record.ConservationStatus = status
	record.LastUpdatedAt = now

	if err := s.putRecord(ctx, record); err != nil {
		return fmt.Errorf("SetConservationStatus: %w", err)
	}

	emitRegistryEvent(ctx, "ConservationStatusUpdated", map[string]interface{}{
		"id":                 recordID,
		"conservationStatus": status,
	})
	logger.Infof("Record %d conservation status set to '%s' by creator '%s'", recordID, status, callerFullID)
	return nil
}

// DeactivateRecord retires a record. Irreversible. The creator or the
// registry owner may deactivate; this is the one authority escalation point —
// the owner can retire anyone's record but cannot edit its content.
func (s *RegistryContract) DeactivateRecord(ctx contractapi.TransactionContextInterface, recordID uint64) error {
	record, err := s.getActiveRecordForMutation(ctx, recordID)
	if err != nil {
		return fmt.Errorf("DeactivateRecord: %w", err)
	}

	cm := NewContributorManager(ctx)
	callerFullID, err := cm.GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("DeactivateRecord: failed to get caller identity: %w", err)
	}
	if callerFullID != record.Creator {
		isOwner, ownerErr := cm.IsOwner(callerFullID)
		if ownerErr != nil {
			return fmt.Errorf("DeactivateRecord: failed to check owner status: %w", ownerErr)
		}
		if !isOwner {
			return fmt.Errorf("DeactivateRecord: caller '%s' is neither the creator of record %d nor the owner: %w", callerFullID, recordID, ErrForbidden)
		}
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("DeactivateRecord: %w", err)
	}
	record.Active = false
	record.LastUpdatedAt = now

	if err := s.putRecord(ctx, record); err != nil {
		return fmt.Errorf("DeactivateRecord: %w", err)
	}

	emitRegistryEvent(ctx, "RecordDeactivated", map[string]interface{}{
		"id": recordID,
	})
	logger.Infof("Record %d deactivated by '%s'", recordID, callerFullID)
	return nil
}

// --- Internal Mutation Helpers ---

// getActiveRecordForMutation fetches a record and verifies it is mutable.
// An ID of 0, an unassigned ID, and a deactivated record are rejected
// identically: nonexistence is a special case of inactive for this check.
func (s *RegistryContract) getActiveRecordForMutation(ctx contractapi.TransactionContextInterface, recordID uint64) (*model.SpeciesRecord, error) {
	record, err := s.getRecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, fmt.Errorf("record %d does not exist: %w", recordID, ErrRecordInactive)
		}
		return nil, err
	}
	if !record.Active {
		return nil, fmt.Errorf("record %d: %w", recordID, ErrRecordInactive)
	}
	return record, nil
}

func (s *RegistryContract) putRecord(ctx contractapi.TransactionContextInterface, record *model.SpeciesRecord) error {
	recordKey, err := s.createRecordCompositeKey(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("failed to create composite key for record %d: %w", record.ID, err)
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %d: %w", record.ID, err)
	}
	if err := ctx.GetStub().PutState(recordKey, recordBytes); err != nil {
		return fmt.Errorf("failed to save record %d to ledger: %w", record.ID, err)
	}
	return nil
}
