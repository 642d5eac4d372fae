package businessflow

import (
	"context"

	"github.com/torresguilherme/magic-qr-flows/app/dto"
	"github.com/torresguilherme/magic-qr-flows/repository"
)

type ProfileFlow interface {
	GetProfile(ctx context.Context, customerID uint) (*dto.ProfileResponse, error)
}

type ProfileFlowImpl struct {
	customerRepo repository.CustomerRepository
	qrRepo       repository.QRCodeRepository
}

func NewProfileFlow(customerRepo repository.CustomerRepository, qrRepo repository.QRCodeRepository) ProfileFlow {
	return &ProfileFlowImpl{customerRepo: customerRepo, qrRepo: qrRepo}
}

func (f *ProfileFlowImpl) GetProfile(ctx context.Context, customerID uint) (*dto.ProfileResponse, error) {
	if customerID == 0 {
		return nil, NewBusinessError("CUSTOMER_ID_REQUIRED", "customer_id must be greater than 0", ErrCustomerNotFound)
	}

	cust, err := f.customerRepo.ByID(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_FETCH_FAILED", "Failed to fetch customer", err)
	}
	if cust == nil {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}

	stats, err := f.qrRepo.StatsByOwner(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError("QR_STATS_FAILED", "Failed to compute dashboard stats", err)
	}

	return &dto.ProfileResponse{
		Customer: ToAuthCustomerDTO(*cust),
		Stats: dto.DashboardStatsDTO{
			TotalQRCodes:  stats.TotalCodes,
			ActiveQRCodes: stats.ActiveCodes,
			TotalScans:    stats.TotalScans,
			Credits:       cust.Credits,
		},
	}, nil
}
