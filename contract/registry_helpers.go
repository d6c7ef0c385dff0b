package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"frogregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Core Helper Methods (used across multiple operations) ---

// Object types for composite keys, also usable as 'docType' or 'objectType' in CouchDB.
const (
	recordObjectType      = "SpeciesRecord"      // Stores SpeciesRecord objects. Attribute: zero-padded ID.
	recordIndexObjectType = "ContributorIndex"   // Per-contributor JSON list of record IDs. Attribute: Identity.
	recordCounterKeyType  = "RecordCounter"      // Single counter holding the next record ID.
	counterKeyAttribute   = "nextRecordId"
)

// Constants for input validation and limits
const (
	maxStringInputLength = 256
	maxDataHashLength    = 512 // Content hashes of external detail blobs can be long
	recordKeyPadWidth    = 20  // Zero-padding width for record IDs in composite keys
)

// getCurrentTxTimestamp retrieves the current transaction timestamp from the stub.
func (s *RegistryContract) getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// createRecordCompositeKey creates a composite key for a species record.
// IDs are zero-padded so lexical key order matches numeric order.
func (s *RegistryContract) createRecordCompositeKey(ctx contractapi.TransactionContextInterface, recordID uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(recordObjectType, []string{fmt.Sprintf("%0*d", recordKeyPadWidth, recordID)})
}

func (s *RegistryContract) createRecordIndexCompositeKey(ctx contractapi.TransactionContextInterface, identity string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(recordIndexObjectType, []string{identity})
}

func (s *RegistryContract) createCounterCompositeKey(ctx contractapi.TransactionContextInterface) (string, error) {
	return ctx.GetStub().CreateCompositeKey(recordCounterKeyType, []string{counterKeyAttribute})
}

// --- Validation Helper Functions ---

func (s *RegistryContract) validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%s cannot be empty: %w", field, ErrInvalidArgument)
	}
	if len(input) > max {
		return fmt.Errorf("%s exceeds max length %d: %w", field, max, ErrInvalidArgument)
	}
	return nil
}

// parseConservationStatus validates a status string against the fixed vocabulary.
func parseConservationStatus(status string) (model.ConservationStatus, error) {
	cs := model.ConservationStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !ValidConservationStatuses[cs] {
		return "", fmt.Errorf("conservationStatus '%s' is not one of the recognized statuses: %w", status, ErrInvalidArgument)
	}
	return cs, nil
}

// --- Identifier Allocation ---

// nextRecordID allocates the next sequential record identifier, starting at 1.
// The read-modify-write of the counter happens inside the same transaction as
// the record write, so the ledger's MVCC serializes concurrent creators and
// the counter never hands out a duplicate.
func (s *RegistryContract) nextRecordID(ctx contractapi.TransactionContextInterface) (uint64, error) {
	counterKey, err := s.createCounterCompositeKey(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to create record counter key: %w", err)
	}
	counterBytes, err := ctx.GetStub().GetState(counterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read record counter: %w", err)
	}
	next := uint64(1)
	if counterBytes != nil {
		parsed, parseErr := strconv.ParseUint(string(counterBytes), 10, 64)
		if parseErr != nil {
			return 0, fmt.Errorf("record counter state is corrupt ('%s'): %w", string(counterBytes), parseErr)
		}
		next = parsed
	}
	if err := ctx.GetStub().PutState(counterKey, []byte(strconv.FormatUint(next+1, 10))); err != nil {
		return 0, fmt.Errorf("failed to advance record counter: %w", err)
	}
	return next, nil
}

// --- Contributor Record Index ---

// contributorRecordIDs loads the append-only list of record IDs created by an
// identity. Returns an empty slice (never nil) when the identity has no records.
func (s *RegistryContract) contributorRecordIDs(ctx contractapi.TransactionContextInterface, identity string) ([]uint64, error) {
	indexKey, err := s.createRecordIndexCompositeKey(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create record index key for '%s': %w", identity, err)
	}
	indexBytes, err := ctx.GetStub().GetState(indexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read record index for '%s': %w", identity, err)
	}
	ids := []uint64{}
	if indexBytes == nil {
		return ids, nil
	}
	if err := json.Unmarshal(indexBytes, &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record index for '%s': %w", identity, err)
	}
	return ids, nil
}

// appendContributorRecordID appends a newly allocated record ID to the
// creator's index list. The list grows monotonically and is never pruned,
// even after a record is deactivated.
func (s *RegistryContract) appendContributorRecordID(ctx contractapi.TransactionContextInterface, identity string, recordID uint64) error {
	ids, err := s.contributorRecordIDs(ctx, identity)
	if err != nil {
		return err
	}
	ids = append(ids, recordID)
	indexBytes, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal record index for '%s': %w", identity, err)
	}
	indexKey, err := s.createRecordIndexCompositeKey(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to create record index key for '%s': %w", identity, err)
	}
	if err := ctx.GetStub().PutState(indexKey, indexBytes); err != nil {
		return fmt.Errorf("failed to save record index for '%s': %w", identity, err)
	}
	return nil
}

// --- Event Emission ---

// emitRegistryEvent sends a chaincode event. Event delivery is the peer's
// concern; a marshalling or SetEvent failure is logged but never fails the
// transaction that produced the state change.
func emitRegistryEvent(ctx contractapi.TransactionContextInterface, eventName string, payload map[string]interface{}) {
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitRegistryEvent: Failed to marshal payload for event '%s': %v", eventName, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitRegistryEvent: Failed to set event '%s': %v", eventName, errSet)
	}
}
