package contract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"frogregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions ---
// Read access is public: no caller constraint applies to any query here
// except GetAllContributors (owner-only, in ContributorManager).

// getRecordByID is an internal helper to retrieve and unmarshal a record.
func (s *RegistryContract) getRecordByID(ctx contractapi.TransactionContextInterface, recordID uint64) (*model.SpeciesRecord, error) {
	if recordID == 0 {
		return nil, fmt.Errorf("record identifier 0 is the sentinel for absence: %w", ErrRecordNotFound)
	}
	recordKey, err := s.createRecordCompositeKey(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("getRecordByID: failed to create key for record %d: %w", recordID, err)
	}

	recordBytes, err := ctx.GetStub().GetState(recordKey)
	if err != nil {
		return nil, fmt.Errorf("getRecordByID: failed to read record %d from ledger: %w", recordID, err)
	}
	if recordBytes == nil {
		return nil, fmt.Errorf("record %d: %w", recordID, ErrRecordNotFound)
	}

	var record model.SpeciesRecord
	if err = json.Unmarshal(recordBytes, &record); err != nil {
		return nil, fmt.Errorf("getRecordByID: failed to unmarshal record %d data: %w", recordID, err)
	}
	if record.ID == 0 {
		// Stored identifier field was never written; treat as unassigned.
		return nil, fmt.Errorf("record %d: %w", recordID, ErrRecordNotFound)
	}
	return &record, nil
}

// GetRecord returns the full record regardless of its active state; callers
// must inspect the Active flag themselves. Inactive records stay queryable
// for audit purposes.
func (s *RegistryContract) GetRecord(ctx contractapi.TransactionContextInterface, recordID uint64) (*model.SpeciesRecord, error) {
	logger.Debugf("GetRecord: Querying record %d", recordID)
	return s.getRecordByID(ctx, recordID)
}

// GetContributorRecords returns the accumulated list of record IDs created by
// an identity, including IDs of now-inactive records. The list is empty (never
// null) for identities that created nothing.
func (s *RegistryContract) GetContributorRecords(ctx contractapi.TransactionContextInterface, identity string) ([]uint64, error) {
	logger.Debugf("GetContributorRecords: Querying record index for '%s' (public access)", identity)
	if err := s.validateRequiredString(identity, "identity", maxStringInputLength*2); err != nil {
		return nil, err
	}
	return s.contributorRecordIDs(ctx, identity)
}

// ListRecords returns a page of all records in identifier order.
func (s *RegistryContract) ListRecords(ctx contractapi.TransactionContextInterface, pageSizeStr string, bookmark string) (*model.PaginatedRecordResponse, error) {
	pageSize, err := strconv.ParseInt(pageSizeStr, 10, 32)
	if err != nil || pageSize <= 0 {
		logger.Warningf("ListRecords: Invalid pageSize '%s', using default of 10. Error: %v", pageSizeStr, err)
		pageSize = 10
	}
	if pageSize > 100 {
		logger.Warningf("ListRecords: Requested pageSize %d exceeds max of 100. Capping at 100.", pageSize)
		pageSize = 100
	}

	resultsIterator, metadata, err := ctx.GetStub().GetStateByPartialCompositeKeyWithPagination(recordObjectType, []string{}, int32(pageSize), bookmark)
	if err != nil {
		return nil, fmt.Errorf("ListRecords: paginated scan failed: %w", err)
	}
	defer resultsIterator.Close()

	records := []*model.SpeciesRecord{}
	var fetchedCount int32
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("ListRecords: Error iterating results: %v. Skipping.", iterErr)
			continue
		}
		var record model.SpeciesRecord
		if errUnmarshal := json.Unmarshal(queryResponse.Value, &record); errUnmarshal != nil {
			logger.Warningf("ListRecords: Error unmarshalling record for key '%s': %v. Skipping.", queryResponse.Key, errUnmarshal)
			continue
		}
		records = append(records, &record)
		fetchedCount++
	}

	logger.Debugf("ListRecords: Returning %d records on this page.", fetchedCount)
	return &model.PaginatedRecordResponse{
		Records:      records,
		NextBookmark: metadata.GetBookmark(),
		FetchedCount: fetchedCount,
	}, nil
}

// GetRecordHistory walks the per-key ledger history of a record, oldest state
// included. The notification stream is the durable audit log for consumers;
// this query exposes the same lineage to direct chaincode callers.
func (s *RegistryContract) GetRecordHistory(ctx contractapi.TransactionContextInterface, recordID uint64) ([]model.RecordHistoryEntry, error) {
	logger.Debugf("GetRecordHistory: Querying history for record %d", recordID)

	// Verifies existence first so an unassigned ID fails NotFound instead of
	// returning an empty history.
	if _, err := s.getRecordByID(ctx, recordID); err != nil {
		return nil, err
	}

	recordKey, err := s.createRecordCompositeKey(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("GetRecordHistory: failed to create key for record %d: %w", recordID, err)
	}
	historyIter, err := ctx.GetStub().GetHistoryForKey(recordKey)
	if err != nil {
		return nil, fmt.Errorf("GetRecordHistory: failed to get history for record %d: %w", recordID, err)
	}
	defer historyIter.Close()

	entries := []model.RecordHistoryEntry{}
	for historyIter.HasNext() {
		historyItem, iterErr := historyIter.Next()
		if iterErr != nil {
			logger.Warningf("GetRecordHistory: Error iterating history for record %d: %v. Skipping entry.", recordID, iterErr)
			continue
		}
		var pastState model.SpeciesRecord
		_ = json.Unmarshal(historyItem.Value, &pastState)

		entries = append(entries, model.RecordHistoryEntry{
			TxID:      historyItem.TxId,
			Timestamp: historyItem.Timestamp.AsTime(),
			IsDelete:  historyItem.IsDelete,
			DataHash:  pastState.DataHash,
			Active:    pastState.Active,
			Value:     string(historyItem.Value),
		})
	}
	return entries, nil
}
