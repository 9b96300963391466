package service

import (
	"context"
	"testing"
	"time"

	"go-calendar-api/core/errors"
	eventrepository "go-calendar-api/modules/event/repository"
	"go-calendar-api/modules/eventsview/dto"
	"go-calendar-api/modules/eventsview/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeViewRepo keeps windows in memory with the same monotonic guard as the
// SQL implementation.
type fakeViewRepo struct {
	views map[uuid.UUID]*entity.EventsView
}

func newFakeViewRepo() *fakeViewRepo {
	return &fakeViewRepo{views: map[uuid.UUID]*entity.EventsView{}}
}

func (f *fakeViewRepo) Get(_ context.Context, tenantID uuid.UUID) (*entity.EventsView, error) {
	if v, ok := f.views[tenantID]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeViewRepo) Ensure(_ context.Context, tenantID uuid.UUID, endDate time.Time) (*entity.EventsView, error) {
	if v, ok := f.views[tenantID]; ok {
		cp := *v
		return &cp, nil
	}
	v := &entity.EventsView{TenantID: tenantID, EndDate: endDate, CreatedAt: time.Now()}
	f.views[tenantID] = v
	cp := *v
	return &cp, nil
}

func (f *fakeViewRepo) Extend(_ context.Context, tenantID uuid.UUID, newEndDate time.Time) (bool, error) {
	v, ok := f.views[tenantID]
	if !ok || !v.EndDate.Before(newEndDate) {
		return false, nil
	}
	v.EndDate = newEndDate
	return true, nil
}

func (f *fakeViewRepo) ListAll(_ context.Context) ([]entity.EventsView, error) {
	out := make([]entity.EventsView, 0, len(f.views))
	for _, v := range f.views {
		out = append(out, *v)
	}
	return out, nil
}

// fakeEventRepo embeds the interface; only the methods a test reaches are
// implemented.
type fakeEventRepo struct {
	eventrepository.EventRepositoryInterface
}

func TestGetViewCreatesWindowOnFirstTouch(t *testing.T) {
	repo := newFakeViewRepo()
	svc := NewEventsViewService(repo, fakeEventRepo{}, nil, 90)
	tenantID := uuid.New()

	view, aerr := svc.GetView(context.Background(), tenantID)
	require.Nil(t, aerr)

	wantEnd := time.Now().UTC().AddDate(0, 0, 90)
	assert.WithinDuration(t, wantEnd, view.EndDate, 24*time.Hour)

	// A second read returns the same window, not a fresh one.
	again, aerr := svc.GetView(context.Background(), tenantID)
	require.Nil(t, aerr)
	assert.True(t, again.EndDate.Equal(view.EndDate))
}

func TestExtendViewRejectsNonForwardDates(t *testing.T) {
	repo := newFakeViewRepo()
	svc := NewEventsViewService(repo, fakeEventRepo{}, nil, 90)
	tenantID := uuid.New()

	_, aerr := svc.GetView(context.Background(), tenantID)
	require.Nil(t, aerr)

	// Earlier than the current end: the window never moves backwards.
	past := time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02")
	_, aerr = svc.ExtendView(context.Background(), tenantID, &dto.ExtendViewRequest{NewEndDate: past})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrPreconditionFailed, aerr.Code)

	current, aerr := svc.GetView(context.Background(), tenantID)
	require.Nil(t, aerr)
	wantEnd := time.Now().UTC().AddDate(0, 0, 90)
	assert.WithinDuration(t, wantEnd, current.EndDate, 24*time.Hour)
}

func TestExtendViewRejectsMalformedDate(t *testing.T) {
	svc := NewEventsViewService(newFakeViewRepo(), fakeEventRepo{}, nil, 90)

	_, aerr := svc.ExtendView(context.Background(), uuid.New(), &dto.ExtendViewRequest{NewEndDate: "next tuesday"})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrInvalidInput, aerr.Code)
}
