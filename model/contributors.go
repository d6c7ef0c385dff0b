// File: model/contributors.go
package model

import "time"

// Contributor stores the authorization state of a registry participant.
// Entries are never deleted; revocation flips the Authorized flag so the
// grant history stays queryable.
type Contributor struct {
	ObjectType    string    `json:"objectType"`    // Set to the composite key object type (Contributor)
	Identity      string    `json:"identity"`      // Full X.509 identity string of the contributor
	Name          string    `json:"name"`          // Display name (e.g. lab or institution)
	Authorized    bool      `json:"authorized"`    // True between a grant and a subsequent revoke
	GrantedBy     string    `json:"grantedBy"`     // Full ID of the owner that issued the most recent grant
	GrantedAt     time.Time `json:"grantedAt"`     // Timestamp of the most recent grant
	LastUpdatedAt time.Time `json:"lastUpdatedAt"` // Timestamp of the last grant or revoke
}
