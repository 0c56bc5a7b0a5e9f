package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
)

// RecentCalculationsLimit is how many rate calculations the dashboard shows.
const RecentCalculationsLimit = 5

// Overview is the dashboard home data.
type Overview struct {
	// Profile is nil when the user has not created one yet.
	Profile            *model.Profile
	RecentCalculations []*model.RateCalculation
}

// PipelineColumn is one stage of the deal pipeline.
type PipelineColumn struct {
	Status model.DealStatus
	Title  string
	Deals  []*model.Deal
	Total  float64
}

// Count returns the number of deals in the column.
func (c PipelineColumn) Count() int {
	return len(c.Deals)
}

// Pipeline is the deal board.
type Pipeline struct {
	Columns []PipelineColumn
}

// pipelineStages are the board columns in display order. Deals in other
// statuses are not shown.
var pipelineStages = []struct {
	status model.DealStatus
	title  string
}{
	{model.DealProspect, "Prospects"},
	{model.DealActive, "Active / In Progress"},
	{model.DealCompleted, "Completed & Paid"},
}

// BuildPipeline groups deals into the board columns, keeping input order
// within a column, and sums each column's deal values.
func BuildPipeline(deals []*model.Deal) *Pipeline {
	p := &Pipeline{Columns: make([]PipelineColumn, len(pipelineStages))}
	index := make(map[model.DealStatus]int, len(pipelineStages))
	for i, st := range pipelineStages {
		p.Columns[i] = PipelineColumn{Status: st.status, Title: st.title, Deals: []*model.Deal{}}
		index[st.status] = i
	}

	for _, d := range deals {
		i, ok := index[d.Status]
		if !ok {
			continue
		}
		p.Columns[i].Deals = append(p.Columns[i].Deals, d)
		p.Columns[i].Total += d.DealValue
	}
	return p
}

// DashboardService loads dashboard data for the signed-in user.
type DashboardService struct {
	store repository.Store
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store repository.Store) *DashboardService {
	return &DashboardService{store: store}
}

// Overview loads the user's profile and most recent rate calculations
// (calculated_at descending) concurrently.
func (s *DashboardService) Overview(ctx context.Context, userID string) (*Overview, error) {
	var out Overview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.store.GetProfile(gctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("load profile: %w", err)
		}
		out.Profile = p
		return nil
	})
	g.Go(func() error {
		calcs, err := s.store.ListRecentRateCalculations(gctx, userID, RecentCalculationsLimit)
		if err != nil {
			return fmt.Errorf("load rate calculations: %w", err)
		}
		out.RecentCalculations = calcs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pipeline loads the user's deals and groups them into the board columns.
func (s *DashboardService) Pipeline(ctx context.Context, userID string) (*Pipeline, error) {
	deals, err := s.store.ListDeals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load deals: %w", err)
	}
	return BuildPipeline(deals), nil
}
