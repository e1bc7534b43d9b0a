package shared

import (
	"strings"

	"github.com/google/uuid"
)

// Identifiable is implemented by every persisted entity.
// The store layer uses it to derive document ids without reflection.
type Identifiable interface {
	GetID() string
}

// NewID returns a new unique identifier with a readable prefix, e.g. "sale_1b4e28ba-...".
func NewID(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "_" + uuid.NewString()
}

// DeterministicID derives a stable identifier from a name.
// The same prefix and parts always produce the same id, which keeps ids stable across transaction retries.
func DeterministicID(prefix string, parts ...string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(parts, "/"))).String()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// BranchContext identifies the tenant scope and the acting user of an operation
type BranchContext struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	BranchID       string `json:"branch_id" validate:"required"`
	UserID         string `json:"user_id"`
}

// Validate checks the required context ids are present
func (b BranchContext) Validate() error {
	if strings.TrimSpace(b.OrganizationID) == "" {
		return NewValidationError("MISSING_ORGANIZATION", "organization id is required")
	}
	if strings.TrimSpace(b.BranchID) == "" {
		return NewValidationError("MISSING_BRANCH", "branch id is required")
	}
	return nil
}
