package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go-calendar-api/core/errors"
	"go-calendar-api/core/logger"
	"go-calendar-api/core/worker"
	"go-calendar-api/modules/event/dto"
	"go-calendar-api/modules/event/entity"
	"go-calendar-api/modules/event/recurrence"
	"go-calendar-api/modules/event/repository"
	viewrepository "go-calendar-api/modules/eventsview/repository"
	scheduleentity "go-calendar-api/modules/schedule/entity"
	schedulerepository "go-calendar-api/modules/schedule/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventService orchestrates event operations: persistence through the
// repository, rule expansion and inheritance through the recurrence planners,
// and cross-process serialization through the series locker. All mutations of
// a recurring series run under that series' lock.
type EventService struct {
	repo         repository.EventRepositoryInterface
	scheduleRepo schedulerepository.ScheduleRepositoryInterface
	viewRepo     viewrepository.EventsViewRepositoryInterface
	locker       *worker.SeriesLocker
	horizonDays  int

	engine       *recurrence.Engine
	resolver     *recurrence.InheritanceResolver
	materializer *recurrence.Materializer
	tracker      *recurrence.ExceptionTracker
	splitter     *recurrence.SplitOperator
}

func NewEventService(
	repo repository.EventRepositoryInterface,
	scheduleRepo schedulerepository.ScheduleRepositoryInterface,
	viewRepo viewrepository.EventsViewRepositoryInterface,
	locker *worker.SeriesLocker,
	horizonDays int,
) *EventService {
	engine := recurrence.NewEngine()
	return &EventService{
		repo:         repo,
		scheduleRepo: scheduleRepo,
		viewRepo:     viewRepo,
		locker:       locker,
		horizonDays:  horizonDays,
		engine:       engine,
		resolver:     recurrence.NewInheritanceResolver(),
		materializer: recurrence.NewMaterializer(engine),
		tracker:      recurrence.NewExceptionTracker(),
		splitter:     recurrence.NewSplitOperator(),
	}
}

type EventServiceInterface interface {
	CreateEvent(ctx context.Context, tenantID uuid.UUID, req *dto.CreateEventRequest) (*dto.EventResponse, *errors.AppError)
	GetEvent(ctx context.Context, tenantID, id uuid.UUID, displayTZ string) (*dto.EventResponse, *errors.AppError)
	UpdateEvent(ctx context.Context, tenantID, id uuid.UUID, req *dto.UpdateEventRequest) (*dto.EventResponse, *errors.AppError)
	CancelEvent(ctx context.Context, tenantID, id uuid.UUID, req *dto.CancelEventRequest) *errors.AppError
	SplitSeries(ctx context.Context, tenantID, id uuid.UUID, req *dto.SplitSeriesRequest) (*dto.SplitSeriesResponse, *errors.AppError)
	RestoreDefaults(ctx context.Context, tenantID, id uuid.UUID, req *dto.RestoreDefaultsRequest) (*dto.EventResponse, *errors.AppError)
	QueryOccurrences(ctx context.Context, tenantID uuid.UUID, req *dto.QueryOccurrencesRequest) (*dto.QueryOccurrencesResponse, *errors.AppError)
	AddParticipant(ctx context.Context, tenantID, eventID uuid.UUID, input *dto.ParticipantInput) (*dto.EventResponse, *errors.AppError)
	UpdateParticipant(ctx context.Context, tenantID, eventID, userID uuid.UUID, req *dto.UpdateParticipantRequest) (*dto.EventResponse, *errors.AppError)
	RemoveParticipant(ctx context.Context, tenantID, eventID, userID uuid.UUID) (*dto.EventResponse, *errors.AppError)
	MaterializeSeries(ctx context.Context, tenantID, masterID uuid.UUID) error
}

// ===================== Create =====================

func (s *EventService) CreateEvent(ctx context.Context, tenantID uuid.UUID, req *dto.CreateEventRequest) (*dto.EventResponse, *errors.AppError) {
	scheduleID, err := uuid.Parse(req.ScheduleID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid schedule id", err)
	}
	schedule, aerr := s.getSchedule(ctx, tenantID, scheduleID)
	if aerr != nil {
		return nil, aerr
	}
	if schedule.Status == scheduleentity.ScheduleStatusCancelled {
		return nil, errors.NewAppError(errors.ErrConflict, "schedule is cancelled", nil)
	}

	effTZ := schedule.TimeZone
	if req.TimeZone != nil {
		effTZ = *req.TimeZone
	}

	start, err := req.Start.Resolve(effTZ)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
	}
	end, err := req.End.Resolve(effTZ)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
	}
	if !end.After(start) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "event end must be after start", nil)
	}

	transparency := entity.TransparencyOpaque
	if req.Transparency != nil {
		transparency = entity.Transparency(*req.Transparency)
		if transparency != entity.TransparencyOpaque && transparency != entity.TransparencyTransparent {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("unknown transparency %q", *req.Transparency), nil)
		}
	}

	ev := &entity.Event{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		ScheduleID:          scheduleID,
		Title:               req.Title,
		TimeZone:            req.TimeZone,
		StartUTC:            start.UTC,
		EndUTC:              end.UTC,
		Transparency:        transparency,
		Location:            req.Location,
		TotalCapacity:       req.TotalCapacity,
		ConferencingDetails: req.Conferencing,
		Notes:               req.Notes,
		ExtendedFields:      req.ExtendedFields,
		Status:              entity.EventStatusActive,
		Revision:            1,
		RecurrenceType:      entity.RecurrenceNone,
	}
	if req.Resources != nil {
		ev.Resources = pq.StringArray(*req.Resources)
	}

	// Unset inheritable fields resolve from the schedule's defaults. TIME is
	// always the event's own; PARTICIPANTS on a root are its own rows.
	if ev.Title == nil {
		ev.MarkInherited(entity.FieldTitle)
	}
	if ev.TimeZone == nil {
		ev.MarkInherited(entity.FieldTimeZone)
	}
	if ev.Location == nil {
		ev.MarkInherited(entity.FieldLocation)
	}
	if req.Resources == nil {
		ev.MarkInherited(entity.FieldResources)
	}
	if ev.TotalCapacity == nil {
		ev.MarkInherited(entity.FieldCapacity)
	}
	if ev.ConferencingDetails == nil {
		ev.MarkInherited(entity.FieldConferencingDetails)
	}

	switch req.RecurrenceType {
	case "", string(entity.RecurrenceNone):
		if req.RecurrenceRule != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				"a recurrence rule requires recurrence_type MASTER", nil)
		}
	case string(entity.RecurrenceMaster):
		if req.RecurrenceRule == nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				"recurrence_type MASTER requires a recurrence rule", nil)
		}
		rule, err := req.RecurrenceRule.ToRule(effTZ)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
		}
		if aerr := s.engine.ValidateRule(rule, start, end); aerr != nil {
			return nil, aerr
		}
		ev.RecurrenceType = entity.RecurrenceMaster
		ev.SetRule(rule)
	default:
		return nil, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("recurrence_type must be NONE or MASTER, got %q", req.RecurrenceType), nil)
	}

	created, err := s.repo.CreateEvent(ctx, ev)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create event", err)
	}

	for i := range req.Participants {
		p, aerr := s.parseParticipant(created.ID, &req.Participants[i])
		if aerr != nil {
			return nil, aerr
		}
		if err := s.repo.AddParticipant(ctx, p); err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to add participant", err)
		}
	}

	if created.IsMaster() {
		aerr := s.withSeriesLock(ctx, created.ID, func() *errors.AppError {
			return s.materializeWithinWindow(ctx, created, effTZ)
		})
		if aerr != nil {
			return nil, aerr
		}
	}

	return s.respond(ctx, created, "")
}

// ===================== Read =====================

func (s *EventService) GetEvent(ctx context.Context, tenantID, id uuid.UUID, displayTZ string) (*dto.EventResponse, *errors.AppError) {
	ev, aerr := s.getEvent(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	return s.respond(ctx, ev, displayTZ)
}

func (s *EventService) QueryOccurrences(ctx context.Context, tenantID uuid.UUID, req *dto.QueryOccurrencesRequest) (*dto.QueryOccurrencesResponse, *errors.AppError) {
	tz := req.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	from, aerr := parseRangeDate(req.From, tz)
	if aerr != nil {
		return nil, aerr
	}
	to, aerr := parseRangeDate(req.To, tz)
	if aerr != nil {
		return nil, aerr
	}
	if !to.After(from) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "query range end must be after start", nil)
	}

	spec := repository.QuerySpec{
		TenantID:         tenantID,
		FromUTC:          from.UTC,
		ToUTC:            to.UTC,
		IncludeCancelled: req.IncludeCancelled,
	}.WithLimit(req.Limit, req.Offset)
	if req.ScheduleID != "" {
		scheduleID, err := uuid.Parse(req.ScheduleID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid schedule id", err)
		}
		spec.ScheduleID = &scheduleID
	}
	if req.SeriesID != "" {
		seriesID, err := uuid.Parse(req.SeriesID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid series id", err)
		}
		spec.RecurringEventID = &seriesID
	}

	windowEnd, aerr := s.windowEnd(ctx, tenantID)
	if aerr != nil {
		return nil, aerr
	}

	events, err := s.repo.Query(ctx, spec)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to query occurrences", err)
	}

	eventIDs := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		eventIDs = append(eventIDs, ev.ID)
	}
	ownParts, err := s.repo.ListParticipantsByEventIDs(ctx, eventIDs)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load participants", err)
	}

	schedules := map[uuid.UUID]*scheduleentity.Schedule{}
	masterEffs := map[uuid.UUID]*recurrence.EffectiveEvent{}

	resp := &dto.QueryOccurrencesResponse{
		Items:     make([]dto.EventResponse, 0, len(events)),
		WindowEnd: windowEnd,
		// Rows past the window end are not guaranteed to exist yet.
		Complete: !to.UTC.After(windowEnd),
	}

	for _, ev := range events {
		var eff *recurrence.EffectiveEvent
		if ev.IsOccurrence() {
			masterEff, aerr := s.masterEffective(ctx, tenantID, *ev.RecurringEventID, schedules, masterEffs)
			if aerr != nil {
				return nil, aerr
			}
			eff, aerr = s.resolver.ResolveFromMaster(ev, masterEff)
			if aerr != nil {
				return nil, aerr
			}
		} else {
			sch, aerr := s.cachedSchedule(ctx, tenantID, ev.ScheduleID, schedules)
			if aerr != nil {
				return nil, aerr
			}
			eff, aerr = s.resolver.ResolveFromSchedule(ev, sch)
			if aerr != nil {
				return nil, aerr
			}
		}

		parts := ownParts[ev.ID]
		if ev.HasInherited(entity.FieldParticipants) {
			parts = eff.Participants
		}
		resp.Items = append(resp.Items, *dto.ToEventResponse(eff, parts, req.TimeZone))
	}

	return resp, nil
}

// ===================== Update =====================

func (s *EventService) UpdateEvent(ctx context.Context, tenantID, id uuid.UUID, req *dto.UpdateEventRequest) (*dto.EventResponse, *errors.AppError) {
	ev, aerr := s.getEvent(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	if ev.Status == entity.EventStatusCancelled {
		return nil, errors.NewAppError(errors.ErrConflict, "cancelled events cannot be updated", nil)
	}

	switch {
	case ev.IsMaster():
		aerr = s.withSeriesLock(ctx, ev.ID, func() *errors.AppError {
			return s.updateMaster(ctx, tenantID, ev, req)
		})
	case ev.IsOccurrence():
		aerr = s.withSeriesLock(ctx, *ev.RecurringEventID, func() *errors.AppError {
			return s.updateOccurrence(ctx, tenantID, ev, req)
		})
	default:
		aerr = s.updateStandalone(ctx, tenantID, ev, req)
	}
	if aerr != nil {
		return nil, aerr
	}

	updated, aerr := s.getEvent(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	return s.respond(ctx, updated, "")
}

func (s *EventService) updateMaster(ctx context.Context, tenantID uuid.UUID, ev *entity.Event, req *dto.UpdateEventRequest) *errors.AppError {
	schedule, aerr := s.getSchedule(ctx, tenantID, ev.ScheduleID)
	if aerr != nil {
		return aerr
	}
	oldEff, aerr := s.resolver.ResolveFromSchedule(ev.Clone(), schedule)
	if aerr != nil {
		return aerr
	}

	patch, aerr := buildPatch(req, oldEff.TimeZone)
	if aerr != nil {
		return aerr
	}
	changed, aerr := s.tracker.ApplyPatch(ev, patch)
	if aerr != nil {
		return aerr
	}

	timeChanged := patch.Start != nil || patch.End != nil
	if req.RecurrenceRule != nil {
		rule, err := req.RecurrenceRule.ToRule(oldEff.TimeZone)
		if err != nil {
			return errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
		}
		start, end, aerr := s.effectiveBounds(ev, oldEff.TimeZone)
		if aerr != nil {
			return aerr
		}
		if aerr := s.engine.ValidateRule(rule, start, end); aerr != nil {
			return aerr
		}
		ev.SetRule(rule)
		timeChanged = true
	}

	occurrences, err := s.repo.ListOccurrences(ctx, ev.ID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load occurrences", err)
	}
	cascade := s.tracker.PlanMasterCascade(oldEff, occurrences, changed, timeChanged, time.Now().UTC())

	if err := s.repo.UpdateEventGuarded(ctx, ev, req.Revision); err != nil {
		return guardError(err, "failed to update series master")
	}
	for _, frozen := range cascade.FreezePast {
		if err := s.repo.UpdateEventGuarded(ctx, frozen, frozen.Revision); err != nil {
			return guardError(err, "failed to freeze past occurrence")
		}
	}

	if cascade.TimeChanged {
		effTZ := oldEff.TimeZone
		if ev.TimeZone != nil {
			effTZ = *ev.TimeZone
		}
		return s.materializeWithinWindow(ctx, ev, effTZ)
	}
	return nil
}

func (s *EventService) updateOccurrence(ctx context.Context, tenantID uuid.UUID, ev *entity.Event, req *dto.UpdateEventRequest) *errors.AppError {
	if req.RecurrenceRule != nil {
		return errors.NewAppError(errors.ErrInvalidInput,
			"only a series master carries a recurrence rule", nil)
	}

	eff, aerr := s.effective(ctx, tenantID, ev)
	if aerr != nil {
		return aerr
	}
	patch, aerr := buildPatch(req, eff.TimeZone)
	if aerr != nil {
		return aerr
	}
	if _, aerr := s.tracker.ApplyPatch(ev, patch); aerr != nil {
		return aerr
	}

	if err := s.repo.UpdateEventGuarded(ctx, ev, req.Revision); err != nil {
		return guardError(err, "failed to update occurrence")
	}
	return nil
}

func (s *EventService) updateStandalone(ctx context.Context, tenantID uuid.UUID, ev *entity.Event, req *dto.UpdateEventRequest) *errors.AppError {
	if req.RecurrenceRule != nil {
		return errors.NewAppError(errors.ErrInvalidInput,
			"only a series master carries a recurrence rule", nil)
	}

	eff, aerr := s.effective(ctx, tenantID, ev)
	if aerr != nil {
		return aerr
	}
	patch, aerr := buildPatch(req, eff.TimeZone)
	if aerr != nil {
		return aerr
	}
	if _, aerr := s.tracker.ApplyPatch(ev, patch); aerr != nil {
		return aerr
	}

	if err := s.repo.UpdateEventGuarded(ctx, ev, req.Revision); err != nil {
		return guardError(err, "failed to update event")
	}
	return nil
}

// ===================== Cancel =====================

func (s *EventService) CancelEvent(ctx context.Context, tenantID, id uuid.UUID, req *dto.CancelEventRequest) *errors.AppError {
	ev, aerr := s.getEvent(ctx, tenantID, id)
	if aerr != nil {
		return aerr
	}
	if ev.Status == entity.EventStatusCancelled {
		return nil
	}

	if ev.IsMaster() {
		return s.withSeriesLock(ctx, ev.ID, func() *errors.AppError {
			return s.cancelSeries(ctx, ev, req)
		})
	}

	cancel := func() *errors.AppError {
		// A cancelled INSTANCE is a deviation from the rule and becomes an
		// EXCEPTION; rematerialization must not resurrect its slot.
		if ev.RecurrenceType == entity.RecurrenceInstance {
			ev.RecurrenceType = entity.RecurrenceException
		}
		ev.Status = entity.EventStatusCancelled
		if err := s.repo.UpdateEventGuarded(ctx, ev, req.Revision); err != nil {
			return guardError(err, "failed to cancel event")
		}
		return nil
	}

	if ev.IsOccurrence() {
		return s.withSeriesLock(ctx, *ev.RecurringEventID, cancel)
	}
	return cancel()
}

func (s *EventService) cancelSeries(ctx context.Context, master *entity.Event, req *dto.CancelEventRequest) *errors.AppError {
	master.Status = entity.EventStatusCancelled
	if err := s.repo.UpdateEventGuarded(ctx, master, req.Revision); err != nil {
		return guardError(err, "failed to cancel series master")
	}

	occurrences, err := s.repo.ListOccurrences(ctx, master.ID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load occurrences", err)
	}
	occIDs := make([]uuid.UUID, 0, len(occurrences))
	for _, occ := range occurrences {
		occIDs = append(occIDs, occ.ID)
	}
	participants, err := s.repo.ListParticipantsByEventIDs(ctx, occIDs)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load participants", err)
	}

	ids := s.tracker.CancelCascadeIDs(occurrences, participants, time.Now().UTC(), req.PreserveWithParticipants)
	if err := s.repo.CancelEvents(ctx, ids); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to cancel occurrences", err)
	}
	return nil
}

// ===================== Split =====================

func (s *EventService) SplitSeries(ctx context.Context, tenantID, id uuid.UUID, req *dto.SplitSeriesRequest) (*dto.SplitSeriesResponse, *errors.AppError) {
	ev, aerr := s.getEvent(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	if !ev.IsMaster() {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "only a recurring series can be split", nil)
	}
	if ev.Status == entity.EventStatusCancelled {
		return nil, errors.NewAppError(errors.ErrConflict, "cancelled series cannot be split", nil)
	}

	var resp *dto.SplitSeriesResponse
	aerr = s.withSeriesLock(ctx, ev.ID, func() *errors.AppError {
		schedule, aerr := s.getSchedule(ctx, tenantID, ev.ScheduleID)
		if aerr != nil {
			return aerr
		}
		eff, aerr := s.resolver.ResolveFromSchedule(ev, schedule)
		if aerr != nil {
			return aerr
		}

		splitAt, err := req.SplitAt.Resolve(eff.TimeZone)
		if err != nil {
			return errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
		}

		occurrences, err := s.repo.ListOccurrences(ctx, ev.ID)
		if err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to load occurrences", err)
		}

		plan, aerr := s.splitter.PlanSplit(ev, eff.TimeZone, occurrences, splitAt, time.Now().UTC())
		if aerr != nil {
			return aerr
		}
		if err := s.repo.ApplySplit(ctx, plan); err != nil {
			return guardError(err, "failed to apply series split")
		}

		original, aerr := s.getEvent(ctx, tenantID, ev.ID)
		if aerr != nil {
			return aerr
		}
		newMaster, aerr := s.getEvent(ctx, tenantID, plan.NewMaster.ID)
		if aerr != nil {
			return aerr
		}

		// The shortened rule may strand future instances of the original and
		// the new series may be missing rows inside the window.
		if aerr := s.materializeWithinWindow(ctx, original, eff.TimeZone); aerr != nil {
			return aerr
		}
		if aerr := s.materializeWithinWindow(ctx, newMaster, eff.TimeZone); aerr != nil {
			return aerr
		}

		originalResp, aerr := s.respond(ctx, original, "")
		if aerr != nil {
			return aerr
		}
		newResp, aerr := s.respond(ctx, newMaster, "")
		if aerr != nil {
			return aerr
		}
		resp = &dto.SplitSeriesResponse{OriginalMaster: *originalResp, NewMaster: *newResp}
		return nil
	})
	if aerr != nil {
		return nil, aerr
	}
	return resp, nil
}

// ===================== Restore Defaults =====================

func (s *EventService) RestoreDefaults(ctx context.Context, tenantID, id uuid.UUID, req *dto.RestoreDefaultsRequest) (*dto.EventResponse, *errors.AppError) {
	ev, aerr := s.getEvent(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	if ev.Status == entity.EventStatusCancelled {
		return nil, errors.NewAppError(errors.ErrConflict, "cancelled events cannot be updated", nil)
	}

	tags := make([]entity.FieldTag, 0, len(req.Fields))
	for _, f := range req.Fields {
		if !entity.ValidFieldTag(f) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, fmt.Sprintf("unknown field tag %q", f), nil)
		}
		tag := entity.FieldTag(f)
		if tag == entity.FieldParticipants && !ev.IsOccurrence() {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				"participants are only inherited by series occurrences", nil)
		}
		tags = append(tags, tag)
	}

	restore := func() *errors.AppError {
		var master *entity.Event
		if ev.IsOccurrence() {
			var aerr *errors.AppError
			master, aerr = s.getEvent(ctx, tenantID, *ev.RecurringEventID)
			if aerr != nil {
				return errors.NewAppError(errors.ErrConsistencyFault,
					"occurrence does not resolve to a master", aerr)
			}
		}
		if aerr := s.resolver.RestoreDefaults(ev, master, tags); aerr != nil {
			return aerr
		}
		for _, tag := range tags {
			if tag == entity.FieldParticipants {
				if err := s.repo.DeleteParticipants(ctx, ev.ID); err != nil {
					return errors.NewAppError(errors.ErrInternalServer, "failed to drop participant overrides", err)
				}
			}
		}
		if err := s.repo.UpdateEventGuarded(ctx, ev, req.Revision); err != nil {
			return guardError(err, "failed to restore defaults")
		}
		return nil
	}

	if ev.IsOccurrence() {
		aerr = s.withSeriesLock(ctx, *ev.RecurringEventID, restore)
	} else {
		aerr = restore()
	}
	if aerr != nil {
		return nil, aerr
	}

	updated, aerr := s.getEvent(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	return s.respond(ctx, updated, "")
}

// ===================== Participants =====================

func (s *EventService) AddParticipant(ctx context.Context, tenantID, eventID uuid.UUID, input *dto.ParticipantInput) (*dto.EventResponse, *errors.AppError) {
	ev, aerr := s.getEvent(ctx, tenantID, eventID)
	if aerr != nil {
		return nil, aerr
	}
	if ev.Status == entity.EventStatusCancelled {
		return nil, errors.NewAppError(errors.ErrConflict, "cancelled events cannot take participants", nil)
	}

	p, aerr := s.parseParticipant(ev.ID, input)
	if aerr != nil {
		return nil, aerr
	}

	add := func() *errors.AppError {
		if aerr := s.materializeParticipantOverride(ctx, tenantID, ev); aerr != nil {
			return aerr
		}

		eff, aerr := s.effective(ctx, tenantID, ev)
		if aerr != nil {
			return aerr
		}
		if p.Status == entity.ParticipantStatusConfirmed && eff.TotalCapacity != nil {
			existing, err := s.repo.ListParticipants(ctx, ev.ID)
			if err != nil {
				return errors.NewAppError(errors.ErrInternalServer, "failed to load participants", err)
			}
			remaining := entity.RemainingCapacity(eff.TotalCapacity, existing)
			if remaining != nil && *remaining < p.PartySize {
				return errors.NewAppError(errors.ErrConflict, "event is at capacity", nil)
			}
		}

		if err := s.repo.AddParticipant(ctx, p); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to add participant", err)
		}
		return nil
	}

	if ev.IsOccurrence() {
		aerr = s.withSeriesLock(ctx, *ev.RecurringEventID, add)
	} else {
		aerr = add()
	}
	if aerr != nil {
		return nil, aerr
	}

	updated, aerr := s.getEvent(ctx, tenantID, eventID)
	if aerr != nil {
		return nil, aerr
	}
	return s.respond(ctx, updated, "")
}

func (s *EventService) UpdateParticipant(ctx context.Context, tenantID, eventID, userID uuid.UUID, req *dto.UpdateParticipantRequest) (*dto.EventResponse, *errors.AppError) {
	ev, aerr := s.getEvent(ctx, tenantID, eventID)
	if aerr != nil {
		return nil, aerr
	}
	if ev.Status == entity.EventStatusCancelled {
		return nil, errors.NewAppError(errors.ErrConflict, "cancelled events cannot take participants", nil)
	}

	update := func() *errors.AppError {
		if aerr := s.materializeParticipantOverride(ctx, tenantID, ev); aerr != nil {
			return aerr
		}

		existing, err := s.repo.ListParticipants(ctx, ev.ID)
		if err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to load participants", err)
		}
		var current *entity.Participant
		others := make([]entity.Participant, 0, len(existing))
		for i := range existing {
			if existing[i].UserID == userID {
				current = &existing[i]
				continue
			}
			others = append(others, existing[i])
		}
		if current == nil {
			return errors.NewAppError(errors.ErrNotFound, "participant not found", nil)
		}

		if req.Status != nil {
			status := entity.ParticipantStatus(*req.Status)
			switch status {
			case entity.ParticipantStatusPending, entity.ParticipantStatusConfirmed, entity.ParticipantStatusDeclined:
			default:
				return errors.NewAppError(errors.ErrInvalidInput,
					fmt.Sprintf("unknown participant status %q", *req.Status), nil)
			}
			current.Status = status
		}
		if req.PartySize != nil {
			if *req.PartySize < 1 {
				return errors.NewAppError(errors.ErrInvalidInput, "party size must be at least 1", nil)
			}
			current.PartySize = *req.PartySize
		}

		if current.Status == entity.ParticipantStatusConfirmed {
			eff, aerr := s.effective(ctx, tenantID, ev)
			if aerr != nil {
				return aerr
			}
			// Capacity is checked against the roster without this
			// participant's own prior contribution.
			remaining := entity.RemainingCapacity(eff.TotalCapacity, others)
			if remaining != nil && *remaining < current.PartySize {
				return errors.NewAppError(errors.ErrConflict, "event is at capacity", nil)
			}
		}

		if err := s.repo.AddParticipant(ctx, current); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to update participant", err)
		}
		return nil
	}

	if ev.IsOccurrence() {
		aerr = s.withSeriesLock(ctx, *ev.RecurringEventID, update)
	} else {
		aerr = update()
	}
	if aerr != nil {
		return nil, aerr
	}

	updated, aerr := s.getEvent(ctx, tenantID, eventID)
	if aerr != nil {
		return nil, aerr
	}
	return s.respond(ctx, updated, "")
}

func (s *EventService) RemoveParticipant(ctx context.Context, tenantID, eventID, userID uuid.UUID) (*dto.EventResponse, *errors.AppError) {
	ev, aerr := s.getEvent(ctx, tenantID, eventID)
	if aerr != nil {
		return nil, aerr
	}

	remove := func() *errors.AppError {
		if aerr := s.materializeParticipantOverride(ctx, tenantID, ev); aerr != nil {
			return aerr
		}
		if err := s.repo.RemoveParticipant(ctx, ev.ID, userID); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to remove participant", err)
		}
		return nil
	}

	if ev.IsOccurrence() {
		aerr = s.withSeriesLock(ctx, *ev.RecurringEventID, remove)
	} else {
		aerr = remove()
	}
	if aerr != nil {
		return nil, aerr
	}

	updated, aerr := s.getEvent(ctx, tenantID, eventID)
	if aerr != nil {
		return nil, aerr
	}
	return s.respond(ctx, updated, "")
}

// materializeParticipantOverride breaks participant inheritance before an
// occurrence's roster is edited: the master's current rows are copied onto
// the occurrence, the tag is cleared and the row transitions to EXCEPTION.
// Subsequent edits touch the copied roster only.
func (s *EventService) materializeParticipantOverride(ctx context.Context, tenantID uuid.UUID, ev *entity.Event) *errors.AppError {
	if !ev.IsOccurrence() || !ev.HasInherited(entity.FieldParticipants) {
		return nil
	}

	masterParts, err := s.repo.ListParticipants(ctx, *ev.RecurringEventID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load series participants", err)
	}
	for i := range masterParts {
		cp := masterParts[i]
		cp.EventID = ev.ID
		if err := s.repo.AddParticipant(ctx, &cp); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to copy series participants", err)
		}
	}

	ev.ClearInherited(entity.FieldParticipants)
	if ev.RecurrenceType == entity.RecurrenceInstance {
		ev.RecurrenceType = entity.RecurrenceException
	}
	if err := s.repo.UpdateEventGuarded(ctx, ev, ev.Revision); err != nil {
		return guardError(err, "failed to pin participant override")
	}
	ev.Revision++
	return nil
}

// ===================== Materialization =====================

// MaterializeSeries backfills one series inside its tenant's window. The
// worker wraps calls in the series lock; a vanished or cancelled master makes
// the task a no-op rather than an error, so stale tasks drain quietly.
func (s *EventService) MaterializeSeries(ctx context.Context, tenantID, masterID uuid.UUID) error {
	ev, err := s.repo.GetEventByID(ctx, tenantID, masterID)
	if err != nil {
		return err
	}
	if ev == nil || !ev.IsMaster() || ev.Status == entity.EventStatusCancelled {
		logger.Info("MaterializeSeries: skipping stale task", "masterId", masterID)
		return nil
	}

	schedule, aerr := s.getSchedule(ctx, tenantID, ev.ScheduleID)
	if aerr != nil {
		return aerr
	}
	eff, aerr := s.resolver.ResolveFromSchedule(ev, schedule)
	if aerr != nil {
		return aerr
	}
	if aerr := s.materializeWithinWindow(ctx, ev, eff.TimeZone); aerr != nil {
		return aerr
	}
	return nil
}

func (s *EventService) materializeWithinWindow(ctx context.Context, master *entity.Event, effTZ string) *errors.AppError {
	windowEnd, aerr := s.windowEnd(ctx, master.TenantID)
	if aerr != nil {
		return aerr
	}
	existing, err := s.repo.ListOccurrences(ctx, master.ID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load occurrences", err)
	}
	plan, aerr := s.materializer.Plan(master, effTZ, existing, windowEnd, time.Now().UTC())
	if aerr != nil {
		return aerr
	}
	if err := s.repo.ApplyMaterialization(ctx, plan); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to apply materialization", err)
	}
	return nil
}

// ===================== Helpers =====================

func (s *EventService) getEvent(ctx context.Context, tenantID, id uuid.UUID) (*entity.Event, *errors.AppError) {
	ev, err := s.repo.GetEventByID(ctx, tenantID, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load event", err)
	}
	if ev == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "event not found", nil)
	}
	return ev, nil
}

func (s *EventService) getSchedule(ctx context.Context, tenantID, id uuid.UUID) (*scheduleentity.Schedule, *errors.AppError) {
	schedule, err := s.scheduleRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load schedule", err)
	}
	if schedule == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "schedule not found", nil)
	}
	return schedule, nil
}

func (s *EventService) cachedSchedule(ctx context.Context, tenantID, id uuid.UUID, cache map[uuid.UUID]*scheduleentity.Schedule) (*scheduleentity.Schedule, *errors.AppError) {
	if sch, ok := cache[id]; ok {
		return sch, nil
	}
	sch, aerr := s.getSchedule(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	cache[id] = sch
	return sch, nil
}

// masterEffective resolves a master against its schedule and loads its own
// participant roster, which occurrences with inherited PARTICIPANTS share.
func (s *EventService) masterEffective(ctx context.Context, tenantID, masterID uuid.UUID, schedules map[uuid.UUID]*scheduleentity.Schedule, cache map[uuid.UUID]*recurrence.EffectiveEvent) (*recurrence.EffectiveEvent, *errors.AppError) {
	if eff, ok := cache[masterID]; ok {
		return eff, nil
	}

	master, err := s.repo.GetEventByID(ctx, tenantID, masterID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load series master", err)
	}
	if master == nil {
		return nil, errors.NewAppError(errors.ErrConsistencyFault,
			fmt.Sprintf("occurrence references missing master %s", masterID), nil)
	}

	sch, aerr := s.cachedSchedule(ctx, tenantID, master.ScheduleID, schedules)
	if aerr != nil {
		return nil, aerr
	}
	eff, aerr := s.resolver.ResolveFromSchedule(master, sch)
	if aerr != nil {
		return nil, aerr
	}
	parts, err := s.repo.ListParticipants(ctx, master.ID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load participants", err)
	}
	eff.Participants = parts

	cache[masterID] = eff
	return eff, nil
}

// effective resolves any event through its inheritance chain.
func (s *EventService) effective(ctx context.Context, tenantID uuid.UUID, ev *entity.Event) (*recurrence.EffectiveEvent, *errors.AppError) {
	if ev.IsOccurrence() {
		masterEff, aerr := s.masterEffective(ctx, tenantID, *ev.RecurringEventID,
			map[uuid.UUID]*scheduleentity.Schedule{}, map[uuid.UUID]*recurrence.EffectiveEvent{})
		if aerr != nil {
			return nil, aerr
		}
		return s.resolver.ResolveFromMaster(ev, masterEff)
	}
	schedule, aerr := s.getSchedule(ctx, tenantID, ev.ScheduleID)
	if aerr != nil {
		return nil, aerr
	}
	return s.resolver.ResolveFromSchedule(ev, schedule)
}

func (s *EventService) respond(ctx context.Context, ev *entity.Event, displayTZ string) (*dto.EventResponse, *errors.AppError) {
	eff, aerr := s.effective(ctx, ev.TenantID, ev)
	if aerr != nil {
		return nil, aerr
	}

	var parts []entity.Participant
	if ev.HasInherited(entity.FieldParticipants) {
		parts = eff.Participants
	} else {
		var err error
		parts, err = s.repo.ListParticipants(ctx, ev.ID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load participants", err)
		}
	}

	return dto.ToEventResponse(eff, parts, displayTZ), nil
}

func (s *EventService) windowEnd(ctx context.Context, tenantID uuid.UUID) (time.Time, *errors.AppError) {
	view, err := s.viewRepo.Get(ctx, tenantID)
	if err != nil {
		return time.Time{}, errors.NewAppError(errors.ErrInternalServer, "failed to load events view", err)
	}
	if view == nil {
		view, err = s.viewRepo.Ensure(ctx, tenantID, time.Now().UTC().AddDate(0, 0, s.horizonDays))
		if err != nil {
			return time.Time{}, errors.NewAppError(errors.ErrInternalServer, "failed to initialize events view", err)
		}
	}
	return view.EndDate, nil
}

func (s *EventService) effectiveBounds(ev *entity.Event, effTZ string) (entity.ZonedDate, entity.ZonedDate, *errors.AppError) {
	tz := effTZ
	if ev.TimeZone != nil {
		tz = *ev.TimeZone
	}
	start, err := entity.ZonedDateFromUTC(ev.StartUTC, tz)
	if err != nil {
		return entity.ZonedDate{}, entity.ZonedDate{},
			errors.NewAppError(errors.ErrInvalidInput, "unknown time zone", err)
	}
	end, err := entity.ZonedDateFromUTC(ev.EndUTC, tz)
	if err != nil {
		return entity.ZonedDate{}, entity.ZonedDate{},
			errors.NewAppError(errors.ErrInvalidInput, "unknown time zone", err)
	}
	return start, end, nil
}

func (s *EventService) withSeriesLock(ctx context.Context, masterID uuid.UUID, fn func() *errors.AppError) *errors.AppError {
	var inner *errors.AppError
	err := s.locker.WithSeriesLock(ctx, masterID, func() error {
		if aerr := fn(); aerr != nil {
			inner = aerr
			return aerr
		}
		return nil
	})
	if inner != nil {
		return inner
	}
	if err != nil {
		var aerr *errors.AppError
		if stderrors.As(err, &aerr) {
			return aerr
		}
		return errors.NewAppError(errors.ErrInternalServer, "series lock failed", err)
	}
	return nil
}

func (s *EventService) parseParticipant(eventID uuid.UUID, input *dto.ParticipantInput) (*entity.Participant, *errors.AppError) {
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid participant user id", err)
	}
	status := entity.ParticipantStatusPending
	if input.Status != "" {
		status = entity.ParticipantStatus(input.Status)
		switch status {
		case entity.ParticipantStatusPending, entity.ParticipantStatusConfirmed, entity.ParticipantStatusDeclined:
		default:
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("unknown participant status %q", input.Status), nil)
		}
	}
	partySize := input.PartySize
	if partySize == 0 {
		partySize = 1
	}
	if partySize < 1 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "party size must be at least 1", nil)
	}
	return &entity.Participant{
		EventID:   eventID,
		UserID:    userID,
		Status:    status,
		PartySize: partySize,
	}, nil
}

func buildPatch(req *dto.UpdateEventRequest, fallbackTZ string) (recurrence.EventPatch, *errors.AppError) {
	patch := recurrence.EventPatch{
		Title:               req.Title,
		TimeZone:            req.TimeZone,
		Location:            req.Location,
		Resources:           req.Resources,
		TotalCapacity:       req.TotalCapacity,
		ConferencingDetails: req.Conferencing,
		Notes:               req.Notes,
		ExtendedFields:      req.ExtendedFields,
	}

	if req.Start != nil {
		start, err := req.Start.Resolve(fallbackTZ)
		if err != nil {
			return recurrence.EventPatch{}, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
		}
		patch.Start = &start
	}
	if req.End != nil {
		end, err := req.End.Resolve(fallbackTZ)
		if err != nil {
			return recurrence.EventPatch{}, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
		}
		patch.End = &end
	}
	if req.Transparency != nil {
		t := entity.Transparency(*req.Transparency)
		if t != entity.TransparencyOpaque && t != entity.TransparencyTransparent {
			return recurrence.EventPatch{}, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("unknown transparency %q", *req.Transparency), nil)
		}
		patch.Transparency = &t
	}

	return patch, nil
}

func parseRangeDate(s, tz string) (entity.ZonedDate, *errors.AppError) {
	local, err := time.Parse(dto.LocalDateLayout, s)
	if err != nil {
		return entity.ZonedDate{}, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("invalid date %q, expected %s", s, dto.LocalDateLayout), err)
	}
	zd, err := entity.NewZonedDate(local, tz)
	if err != nil {
		return entity.ZonedDate{}, errors.NewAppError(errors.ErrInvalidInput, "unknown time zone", err)
	}
	return zd, nil
}

func guardError(err error, msg string) *errors.AppError {
	if stderrors.Is(err, repository.ErrStaleRevision) {
		return errors.NewAppError(errors.ErrConflict,
			"event was modified concurrently, re-fetch and retry", err)
	}
	return errors.NewAppError(errors.ErrInternalServer, msg, err)
}
