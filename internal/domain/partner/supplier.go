package partner

import (
	"regexp"
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SupplierStatus represents the status of a supplier
type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "ACTIVE"
	SupplierStatusInactive SupplierStatus = "INACTIVE"
)

// FieldOutstandingBalance is the counter mutated by the balance ledger
const FieldOutstandingBalance = "outstandingBalance"

var (
	phonePattern = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	gstinPattern = regexp.MustCompile(`^[0-9A-Z]{15}$`)
)

// Supplier is an organization-wide vendor of medicines.
// Balance is the opening balance; OutstandingBalance is what the organization currently owes.
type Supplier struct {
	ID                 string          `json:"id"`
	OrganizationID     string          `json:"organizationId"`
	Name               string          `json:"name"`
	GSTIN              string          `json:"gstin,omitempty"`
	ContactPerson      string          `json:"contactPerson,omitempty"`
	MobileNumber       string          `json:"mobileNumber,omitempty"`
	Email              string          `json:"email,omitempty"`
	Address            string          `json:"address,omitempty"`
	DrugLicenseNumber  string          `json:"drugLicenseNumber,omitempty"`
	Status             SupplierStatus  `json:"status"`
	Balance            decimal.Decimal `json:"balance"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// GetID implements shared.Identifiable
func (s *Supplier) GetID() string { return s.ID }

// NewSupplier creates an active supplier. The outstanding balance starts at the opening balance.
func NewSupplier(organizationID, id, name string, openingBalance decimal.Decimal) (*Supplier, error) {
	if err := validateSupplierName(name); err != nil {
		return nil, err
	}
	if openingBalance.IsNegative() {
		return nil, shared.NewValidationError("INVALID_BALANCE", "Opening balance cannot be negative")
	}
	if id == "" {
		id = shared.NewID("sup")
	}
	now := time.Now().UTC()
	return &Supplier{
		ID:                 id,
		OrganizationID:     organizationID,
		Name:               strings.TrimSpace(name),
		Status:             SupplierStatusActive,
		Balance:            openingBalance,
		OutstandingBalance: openingBalance,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// SetContact sets the supplier's contact information
func (s *Supplier) SetContact(contactPerson, mobile, email, address string) error {
	if len(contactPerson) > 100 {
		return shared.NewValidationError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if mobile != "" {
		if len(mobile) > 50 || !phonePattern.MatchString(mobile) {
			return shared.NewValidationError("INVALID_PHONE", "Invalid phone number format")
		}
	}
	if email != "" {
		if len(email) > 200 || !emailPattern.MatchString(email) {
			return shared.NewValidationError("INVALID_EMAIL", "Invalid email format")
		}
	}
	s.ContactPerson = contactPerson
	s.MobileNumber = mobile
	s.Email = email
	s.Address = address
	return nil
}

// SetRegistration sets the tax and drug license identifiers
func (s *Supplier) SetRegistration(gstin, drugLicense string) error {
	gstin = strings.ToUpper(strings.TrimSpace(gstin))
	if gstin != "" && !gstinPattern.MatchString(gstin) {
		return shared.NewValidationError("INVALID_GSTIN", "GSTIN must be 15 alphanumeric characters")
	}
	s.GSTIN = gstin
	s.DrugLicenseNumber = strings.TrimSpace(drugLicense)
	return nil
}

// IsActive reports whether purchases may be recorded against the supplier
func (s *Supplier) IsActive() bool { return s.Status == SupplierStatusActive }

// SuppliersCollection is the collection of an organization's suppliers
func SuppliersCollection(organizationID string) docstore.Path {
	return docstore.OrganizationRoot(organizationID).Sub("suppliers")
}

// SupplierPath locates a supplier document
func SupplierPath(organizationID, supplierID string) docstore.Path {
	return SuppliersCollection(organizationID).Doc(supplierID)
}

func validateSupplierName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("INVALID_NAME", "Supplier name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("INVALID_NAME", "Supplier name cannot exceed 200 characters")
	}
	return nil
}
