package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/motoclube/roleplanner/internal/datasync"
	"github.com/motoclube/roleplanner/internal/domain"
)

// DataTransfer moves a user's whole dataset in and out of local storage.
// datasync.Manager implements it.
type DataTransfer interface {
	ExportUserData(ctx context.Context, userID string) (domain.UserDataExport, error)
	ImportUserData(ctx context.Context, bundle domain.UserDataExport) (datasync.ImportReport, error)
}

// ExportService assembles the downloadable views of a user's data.
type ExportService struct {
	roteiros Records[domain.Roteiro]
	transfer DataTransfer
}

// NewExportService constructs an ExportService.
func NewExportService(roteiros Records[domain.Roteiro], transfer DataTransfer) *ExportService {
	return &ExportService{roteiros: roteiros, transfer: transfer}
}

// Rows returns one ExportRow per stop across the user's roteiros, in creation
// order. Roteiros with no stops contribute one row with empty stop fields.
func (s *ExportService) Rows(ctx context.Context, userID string) ([]domain.ExportRow, error) {
	roteiros, err := s.roteiros.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Rows: %w", err)
	}

	rows := []domain.ExportRow{}
	for _, r := range roteiros {
		tags := slices.Clone(r.Tags)
		if tags == nil {
			tags = []string{}
		}
		slices.Sort(tags)
		base := domain.ExportRow{
			RoteiroID:   r.ID,
			Title:       r.Title,
			CreatedDate: r.CreatedAt.UTC().Format("2006-01-02"),
			Difficulty:  string(r.Difficulty),
			TotalCost:   r.Costs.Total(),
			Rating:      r.Rating,
			Tags:        tags,
		}
		if len(r.Stops) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, st := range r.Stops {
			row := base
			row.StopName = st.Name
			row.StopDistanceKm = st.DistanceKm
			row.StopDurationHours = st.DurationHours
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// UserData returns the full bundle for userID.
// Returns domain.ErrNotFound if the user does not exist.
func (s *ExportService) UserData(ctx context.Context, userID string) (domain.UserDataExport, error) {
	bundle, err := s.transfer.ExportUserData(ctx, userID)
	if err != nil {
		return domain.UserDataExport{}, fmt.Errorf("service.ExportService.UserData: %w", err)
	}
	return bundle, nil
}

// Import upserts a previously exported bundle.
// Returns domain.ErrValidation for a bundle without a version or user.
func (s *ExportService) Import(ctx context.Context, bundle domain.UserDataExport) (datasync.ImportReport, error) {
	rep, err := s.transfer.ImportUserData(ctx, bundle)
	if err != nil {
		return datasync.ImportReport{}, fmt.Errorf("service.ExportService.Import: %w", err)
	}
	return rep, nil
}
