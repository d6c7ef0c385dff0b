package model

import "time"

// ConservationStatus is the IUCN-style assessment attached to a species record.
type ConservationStatus string

const (
	StatusLeastConcern         ConservationStatus = "LEAST_CONCERN"
	StatusNearThreatened       ConservationStatus = "NEAR_THREATENED"
	StatusVulnerable           ConservationStatus = "VULNERABLE"
	StatusEndangered           ConservationStatus = "ENDANGERED"
	StatusCriticallyEndangered ConservationStatus = "CRITICALLY_ENDANGERED"
	StatusExtinct              ConservationStatus = "EXTINCT"
)

// SpeciesRecord is the central data structure for a frog observation entry.
// ID, Creator, ScientificName, Genus, Habitat and CreatedAt are immutable
// after creation. DataHash and ConservationStatus may change while the record
// is active. Deactivation is terminal.
type SpeciesRecord struct {
	ObjectType         string             `json:"objectType"`         // "SpeciesRecord"
	ID                 uint64             `json:"id"`                 // Sequential from 1, never reused; 0 means "does not exist"
	ScientificName     string             `json:"scientificName"`     // Binomial name, e.g. "Rana temporaria"
	Genus              string             `json:"genus"`              // Genus the species belongs to
	Habitat            string             `json:"habitat"`            // Free-text habitat description
	ConservationStatus ConservationStatus `json:"conservationStatus"` // Current assessment
	DataHash           string             `json:"dataHash"`           // Content hash of externally stored detail data (opaque)
	Creator            string             `json:"creator"`            // Full X.509 ID of the contributor that created the record
	CreatedAt          time.Time          `json:"createdAt"`          // Transaction timestamp at creation
	LastUpdatedAt      time.Time          `json:"lastUpdatedAt"`      // Transaction timestamp of the last mutation
	Active             bool               `json:"active"`             // False once deactivated (terminal)
}

// RecordHistoryEntry represents one committed ledger state of a species record.
type RecordHistoryEntry struct {
	TxID      string    `json:"txId"`
	Timestamp time.Time `json:"timestamp"`
	IsDelete  bool      `json:"isDelete"`
	DataHash  string    `json:"dataHash"`
	Active    bool      `json:"active"`
	Value     string    `json:"value"` // Raw JSON value of the record at that time
}

// PaginatedRecordResponse is the structure returned by paginated record queries.
type PaginatedRecordResponse struct {
	Records      []*SpeciesRecord `json:"records"`
	NextBookmark string           `json:"nextBookmark"`
	FetchedCount int32            `json:"fetchedCount"`
}
