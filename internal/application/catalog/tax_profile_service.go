package catalog

import (
	"context"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TaxProfileService manages organization-wide tax profiles
type TaxProfileService struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewTaxProfileService creates a new TaxProfileService
func NewTaxProfileService(scope appshared.TransactionScope, logger *zap.Logger) *TaxProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxProfileService{scope: scope, logger: logger.Named("catalog")}
}

// CreateTaxProfile defines a tax profile. Component rates must add up to the total rate.
func (s *TaxProfileService) CreateTaxProfile(ctx context.Context, bc shared.BranchContext, req CreateTaxProfileRequest) (*pricing.TaxProfile, error) {
	if err := appshared.Begin(bc, req); err != nil {
		return nil, err
	}
	components := make([]pricing.TaxComponent, len(req.Components))
	for i, c := range req.Components {
		components[i] = pricing.TaxComponent{Name: c.Name, Rate: c.Rate}
	}
	profile, err := pricing.NewTaxProfile(req.TaxProfileID, bc.OrganizationID, req.ProfileName, req.TotalRate, components)
	if err != nil {
		return nil, err
	}

	path := pricing.TaxProfilePath(bc.OrganizationID, profile.TaxProfileID)
	err = s.scope.Execute(ctx, "create_tax_profile", func(ctx context.Context, txn docstore.Txn) error {
		if err := appshared.EnsureAbsent(ctx, txn, path, "tax profile"); err != nil {
			return err
		}
		return txn.Set(path, profile)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tax profile created",
		zap.String("organization_id", bc.OrganizationID),
		zap.String("tax_profile_id", profile.TaxProfileID),
		zap.String("total_rate", profile.TotalRate.String()),
	)
	return profile, nil
}

// GetTaxProfile reads one tax profile
func (s *TaxProfileService) GetTaxProfile(ctx context.Context, bc shared.BranchContext, taxProfileID string) (*pricing.TaxProfile, error) {
	if err := appshared.Begin(bc, nil); err != nil {
		return nil, err
	}
	var profile *pricing.TaxProfile
	err := s.scope.Execute(ctx, "get_tax_profile", func(ctx context.Context, txn docstore.Txn) error {
		var err error
		profile, err = appshared.Load[pricing.TaxProfile](ctx, txn,
			pricing.TaxProfilePath(bc.OrganizationID, taxProfileID), "tax profile")
		return err
	})
	return profile, err
}
