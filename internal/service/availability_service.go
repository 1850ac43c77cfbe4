package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// AvailabilityService checks rooms and teachers for double bookings. It only reads.
type AvailabilityService struct {
	classes ClassStore
	makeups MakeupStore
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(classes ClassStore, makeups MakeupStore) *AvailabilityService {
	return &AvailabilityService{classes: classes, makeups: makeups}
}

// RoomAvailability is the full conflict report for a recurring booking.
type RoomAvailability struct {
	Available bool                     `json:"available"`
	Conflicts []schedule.ClassConflict `json:"conflicts"`
}

// SlotAvailability is the full conflict report for a single-date booking.
type SlotAvailability struct {
	Available bool                    `json:"available"`
	Conflicts []schedule.SlotConflict `json:"conflicts"`
}

// CheckRoomAvailability reports every class that collides with the proposal.
func (s *AvailabilityService) CheckRoomAvailability(ctx context.Context, req model.RoomAvailabilityRequest) (*RoomAvailability, error) {
	p, err := roomProposal(req)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.roomConflicts(ctx, p)
	if err != nil {
		return nil, err
	}
	return &RoomAvailability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// roomConflicts checks p against every class in the room that is neither
// cancelled nor completed. Drafts count: they hold the room once published.
func (s *AvailabilityService) roomConflicts(ctx context.Context, p schedule.RoomProposal) ([]schedule.ClassConflict, error) {
	candidates, err := s.classes.ListBlocking(ctx, p.BranchID, p.RoomID, 0)
	if err != nil {
		return nil, err
	}
	conflicts := schedule.RoomConflicts(p, candidates)
	if conflicts == nil {
		conflicts = []schedule.ClassConflict{}
	}
	return conflicts, nil
}

func roomProposal(req model.RoomAvailabilityRequest) (schedule.RoomProposal, error) {
	var p schedule.RoomProposal
	from, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		return p, apperror.Validation("start_date", "datetime", err.Error())
	}
	to, err := schedule.ParseDate(req.EndDate)
	if err != nil {
		return p, apperror.Validation("end_date", "datetime", err.Error())
	}
	if schedule.Before(to, from) {
		return p, apperror.Validation("end_date", "gtefield", "end date must not be before start date")
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return p, err
	}
	days := weekdays(req.DaysOfWeek)
	if err := schedule.Pattern(days).Validate(); err != nil {
		return p, err
	}
	return schedule.RoomProposal{
		BranchID:       req.BranchID,
		RoomID:         req.RoomID,
		Days:           days,
		StartTime:      start,
		EndTime:        end,
		From:           from,
		To:             to,
		ExcludeClassID: req.ExcludeClassID,
	}, nil
}

// CheckSlot reports every class or placed makeup using the slot's room or teacher.
func (s *AvailabilityService) CheckSlot(ctx context.Context, slot schedule.Slot) (*SlotAvailability, error) {
	classes, err := s.classes.ListBlocking(ctx, slot.BranchID, slot.RoomID, slot.TeacherID)
	if err != nil {
		return nil, err
	}
	makeups, err := s.makeups.ListPlacedOn(ctx, slot.Date)
	if err != nil {
		return nil, err
	}
	conflicts := schedule.SlotConflicts(slot, classes, makeups)
	if conflicts == nil {
		conflicts = []schedule.SlotConflict{}
	}
	return &SlotAvailability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// CheckSlotRequest parses req and runs CheckSlot.
func (s *AvailabilityService) CheckSlotRequest(ctx context.Context, req model.SlotAvailabilityRequest) (*SlotAvailability, error) {
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, apperror.Validation("date", "datetime", err.Error())
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	slot := schedule.Slot{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		TeacherID: req.TeacherID,
		BranchID:  req.BranchID,
		RoomID:    req.RoomID,
	}
	if req.ExcludeMakeupID != "" {
		id, err := uuid.Parse(req.ExcludeMakeupID)
		if err != nil {
			return nil, apperror.Validation("exclude_makeup_id", "uuid", err.Error())
		}
		slot.ExcludeMakeupID = id
	}
	return s.CheckSlot(ctx, slot)
}

// parseWindow parses an "HH:MM" pair and requires start < end.
func parseWindow(startText, endText string) (model.TimeOfDay, model.TimeOfDay, error) {
	start, err := model.ParseTimeOfDay(startText)
	if err != nil {
		return 0, 0, apperror.Validation("start_time", "hhmm", err.Error())
	}
	end, err := model.ParseTimeOfDay(endText)
	if err != nil {
		return 0, 0, apperror.Validation("end_time", "hhmm", err.Error())
	}
	if start >= end {
		return 0, 0, apperror.Validation("end_time", "gtfield", "end time must be after start time")
	}
	return start, end, nil
}

func weekdays(days []int) []time.Weekday {
	out := make([]time.Weekday, len(days))
	for i, d := range days {
		out[i] = time.Weekday(d)
	}
	return out
}
