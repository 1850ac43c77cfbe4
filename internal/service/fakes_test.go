package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/cache"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

func date(s string) time.Time {
	t, err := schedule.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// memDB is the shared state behind the fake stores. Every fake locks mu for
// the whole operation, which gives the same per-call atomicity as a transaction.
type memDB struct {
	mu          sync.Mutex
	classes     map[int]*model.Class
	sessions    map[int]*model.Session
	reschedules []model.RescheduleLog
	holidays    []model.Holiday
	makeups     map[uuid.UUID]*model.Makeup
	nextID      int
}

func newMemDB() *memDB {
	return &memDB{
		classes:  make(map[int]*model.Class),
		sessions: make(map[int]*model.Session),
		makeups:  make(map[uuid.UUID]*model.Makeup),
	}
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

// addClass stores c as-is and returns its ID.
func (db *memDB) addClass(c model.Class) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	c.ID = db.id()
	db.classes[c.ID] = &c
	return c.ID
}

// addSessions stores sessions numbered from 1 and returns their IDs.
func (db *memDB) addSessions(classID int, dates ...time.Time) []int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertSessions(classID, dates)
}

func (db *memDB) insertSessions(classID int, dates []time.Time) []int {
	ids := make([]int, len(dates))
	for i, d := range dates {
		s := &model.Session{
			ID:            db.id(),
			ClassID:       classID,
			SessionNumber: i + 1,
			SessionDate:   d,
			Status:        model.SessionStatusScheduled,
			Attendance:    []model.AttendanceRecord{},
		}
		db.sessions[s.ID] = s
		ids[i] = s.ID
	}
	db.syncEndDate(classID)
	return ids
}

// applyCalendar mirrors the repository: touched rows must still be free and
// a dropped row a makeup points at is cancelled instead of deleted.
func (db *memDB) applyCalendar(classID int, plan schedule.CalendarPlan) error {
	touched := make([]int, 0, len(plan.Moves)+len(plan.Drops))
	for _, m := range plan.Moves {
		touched = append(touched, m.ID)
	}
	touched = append(touched, plan.Drops...)
	for _, id := range touched {
		s, ok := db.sessions[id]
		if !ok || s.ClassID != classID || schedule.Pinned(s) {
			return apperror.Conflict("class", fmt.Sprint(classID), "sessions changed while the calendar was being rebuilt")
		}
	}

	for _, id := range plan.Drops {
		referenced := false
		for _, m := range db.makeups {
			if m.OriginalScheduleID == id {
				referenced = true
				break
			}
		}
		if referenced {
			db.sessions[id].Status = model.SessionStatusCancelled
			continue
		}
		delete(db.sessions, id)
	}
	for _, m := range plan.Moves {
		db.sessions[m.ID].SessionDate = m.Date
	}
	for _, n := range plan.Inserts {
		s := &model.Session{
			ID:            db.id(),
			ClassID:       classID,
			SessionNumber: n.Number,
			SessionDate:   n.Date,
			Status:        model.SessionStatusScheduled,
			Attendance:    []model.AttendanceRecord{},
		}
		db.sessions[s.ID] = s
	}
	db.syncEndDate(classID)
	return nil
}

func (db *memDB) classSessions(classID int) []*model.Session {
	var out []*model.Session
	for _, s := range db.sessions {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionNumber < out[j].SessionNumber })
	return out
}

func (db *memDB) syncEndDate(classID int) {
	c, ok := db.classes[classID]
	if !ok {
		return
	}
	var last *time.Time
	for _, s := range db.classSessions(classID) {
		if s.Active() && (last == nil || schedule.After(s.SessionDate, *last)) {
			d := s.SessionDate
			last = &d
		}
	}
	c.EndDate = last
}

func copySession(s *model.Session) *model.Session {
	out := *s
	out.Attendance = append([]model.AttendanceRecord{}, s.Attendance...)
	return &out
}

// ─── Classes ────────────────────────────────────────────────────────────────

type fakeClassStore struct{ db *memDB }

func (f fakeClassStore) GetByID(_ context.Context, id int) (*model.Class, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.classes[id]
	if !ok {
		return nil, apperror.NotFound("class", id)
	}
	out := *c
	return &out, nil
}

func (f fakeClassStore) Create(_ context.Context, c *model.Class) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c.ID = f.db.id()
	stored := *c
	f.db.classes[c.ID] = &stored
	return nil
}

func (f fakeClassStore) update(c *model.Class) error {
	stored, ok := f.db.classes[c.ID]
	if !ok || stored.Status != c.Status {
		return apperror.Conflict("class", fmt.Sprint(c.ID), "class was modified concurrently")
	}
	next := *c
	next.EndDate = stored.EndDate
	f.db.classes[c.ID] = &next
	return nil
}

func (f fakeClassStore) Update(_ context.Context, c *model.Class) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.update(c)
}

func (f fakeClassStore) UpdateWithSessions(_ context.Context, c *model.Class, plan schedule.CalendarPlan) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.update(c); err != nil {
		return err
	}
	return f.db.applyCalendar(c.ID, plan)
}

func (f fakeClassStore) setStatus(id int, from, to model.ClassStatus) error {
	c, ok := f.db.classes[id]
	if !ok || c.Status != from {
		return apperror.InvalidTransition("class", id, string(from), string(to), "class is no longer "+string(from))
	}
	c.Status = to
	return nil
}

func (f fakeClassStore) Publish(_ context.Context, id int, dates []time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if len(f.db.classSessions(id)) > 0 {
		return apperror.Conflict("class", fmt.Sprint(id), "class already has sessions")
	}
	if err := f.setStatus(id, model.ClassStatusDraft, model.ClassStatusPublished); err != nil {
		return err
	}
	f.db.insertSessions(id, dates)
	return nil
}

func (f fakeClassStore) SetStatus(_ context.Context, id int, from, to model.ClassStatus) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.setStatus(id, from, to)
}

func (f fakeClassStore) Cancel(_ context.Context, id int, from model.ClassStatus, today time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.setStatus(id, from, model.ClassStatusCancelled); err != nil {
		return err
	}
	for _, s := range f.db.classSessions(id) {
		upcoming := s.Status == model.SessionStatusScheduled || s.Status == model.SessionStatusRescheduled
		if upcoming && !schedule.Before(s.SessionDate, today) {
			s.Status = model.SessionStatusCancelled
		}
	}
	return nil
}

func (f fakeClassStore) EndNow(_ context.Context, id int, from model.ClassStatus, plan schedule.EndPlan) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.setStatus(id, from, model.ClassStatusCompleted); err != nil {
		return err
	}
	end := plan.EndDate
	f.db.classes[id].EndDate = &end
	for _, sid := range plan.CancelledIDs {
		if s, ok := f.db.sessions[sid]; ok && s.ClassID == id {
			s.Status = model.SessionStatusCancelled
		}
	}
	return nil
}

func (f fakeClassStore) list(keep func(*model.Class) bool) []model.Class {
	var out []model.Class
	for _, c := range f.db.classes {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeClassStore) ListByStatus(_ context.Context, statuses ...model.ClassStatus) ([]model.Class, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.list(func(c *model.Class) bool {
		for _, s := range statuses {
			if c.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (f fakeClassStore) ListBlocking(_ context.Context, branchID, roomID, teacherID int) ([]model.Class, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.list(func(c *model.Class) bool {
		if c.Status.IsTerminal() {
			return false
		}
		return (c.BranchID == branchID && c.RoomID == roomID) || c.TeacherID == teacherID
	}), nil
}

// ─── Sessions ───────────────────────────────────────────────────────────────

type fakeSessionStore struct {
	db *memDB

	// failApply makes ApplyCalendar fail for the listed classes.
	failApply map[int]error
}

func (f fakeSessionStore) ListByClass(_ context.Context, classID int) ([]model.Session, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.Session
	for _, s := range f.db.classSessions(classID) {
		out = append(out, *copySession(s))
	}
	return out, nil
}

func (f fakeSessionStore) GetByID(_ context.Context, id int) (*model.Session, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	return copySession(s), nil
}

func (f fakeSessionStore) ApplyCalendar(_ context.Context, classID int, plan schedule.CalendarPlan) error {
	if err := f.failApply[classID]; err != nil {
		return err
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.classes[classID]; !ok {
		return apperror.NotFound("class", classID)
	}
	return f.db.applyCalendar(classID, plan)
}

func (f fakeSessionStore) Reschedule(_ context.Context, id int, newDate time.Time, reason string, actorID int) (*model.Session, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	f.db.reschedules = append(f.db.reschedules, model.RescheduleLog{
		ID: len(f.db.reschedules) + 1, SessionID: id, PreviousDate: s.SessionDate, NewDate: newDate,
		Reason: reason, ActorID: actorID,
	})
	if s.OriginalDate == nil {
		d := s.SessionDate
		s.OriginalDate = &d
	}
	s.SessionDate = newDate
	s.Status = model.SessionStatusRescheduled
	s.RescheduledBy = &actorID
	s.RescheduleReason = reason
	f.db.syncEndDate(s.ClassID)
	return copySession(s), nil
}

func (f fakeSessionStore) ListReschedules(_ context.Context, sessionID int) ([]model.RescheduleLog, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.RescheduleLog{}
	for _, l := range f.db.reschedules {
		if l.SessionID == sessionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f fakeSessionStore) ReplaceAttendance(_ context.Context, id int, records []model.AttendanceRecord, status model.SessionStatus) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.sessions[id]
	if !ok {
		return apperror.NotFound("session", id)
	}
	s.Attendance = append([]model.AttendanceRecord{}, records...)
	s.Status = status
	return nil
}

func (f fakeSessionStore) ListOnDate(_ context.Context, day time.Time) ([]model.SessionReminder, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.SessionReminder
	for _, s := range f.db.sessions {
		c := f.db.classes[s.ClassID]
		running := c.Status == model.ClassStatusPublished || c.Status == model.ClassStatusStarted
		upcoming := s.Status == model.SessionStatusScheduled || s.Status == model.SessionStatusRescheduled
		if running && upcoming && schedule.SameDay(s.SessionDate, day) {
			out = append(out, model.SessionReminder{
				SessionID: s.ID, SessionNumber: s.SessionNumber, SessionDate: s.SessionDate,
				ClassID: c.ID, ClassName: c.Name, BranchID: c.BranchID, RoomID: c.RoomID,
				TeacherID: c.TeacherID, StartTime: c.StartTime, EndTime: c.EndTime,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// ─── Holidays ───────────────────────────────────────────────────────────────

type fakeHolidayStore struct {
	db    *memDB
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeHolidayStore) ForBranchAndRange(_ context.Context, branchID int, from, to time.Time) ([]model.Holiday, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.Holiday{}
	for _, h := range f.db.holidays {
		if h.AppliesTo(branchID) && !schedule.Before(h.Date, from) && !schedule.After(h.Date, to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHolidayStore) List(ctx context.Context, from, to time.Time) ([]model.Holiday, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.Holiday{}
	for _, h := range f.db.holidays {
		if !schedule.Before(h.Date, from) && !schedule.After(h.Date, to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHolidayStore) Create(_ context.Context, h *model.Holiday) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	h.ID = f.db.id()
	f.db.holidays = append(f.db.holidays, *h)
	return nil
}

func (f *fakeHolidayStore) Delete(_ context.Context, id int) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, h := range f.db.holidays {
		if h.ID == id {
			f.db.holidays = append(f.db.holidays[:i], f.db.holidays[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("holiday", id)
}

func (f *fakeHolidayStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ─── Makeups ────────────────────────────────────────────────────────────────

type fakeMakeupStore struct{ db *memDB }

func (f fakeMakeupStore) CreateWithinLimit(_ context.Context, m *model.Makeup, gate func(active int) error, note string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	active := 0
	for _, other := range f.db.makeups {
		if other.Status == model.MakeupStatusCancelled {
			continue
		}
		if other.StudentID == m.StudentID && other.OriginalClassID == m.OriginalClassID {
			if other.OriginalScheduleID == m.OriginalScheduleID {
				return apperror.Conflict("makeup", fmt.Sprintf("student %d/session %d", m.StudentID, m.OriginalScheduleID),
					"a makeup already exists for this session")
			}
			active++
		}
	}
	if err := gate(active); err != nil {
		return err
	}

	stored := *m
	f.db.makeups[m.ID] = &stored

	s, ok := f.db.sessions[m.OriginalScheduleID]
	if !ok {
		return nil
	}
	for i := range s.Attendance {
		if s.Attendance[i].StudentID == m.StudentID {
			s.Attendance[i].Status = model.AttendanceAbsent
			s.Attendance[i].Note = note
			return nil
		}
	}
	s.Attendance = append(s.Attendance, model.AttendanceRecord{
		StudentID: m.StudentID, Status: model.AttendanceAbsent, Note: note, CheckedBy: m.RequestedBy,
	})
	return nil
}

func (f fakeMakeupStore) GetByID(_ context.Context, id uuid.UUID) (*model.Makeup, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.makeups[id]
	if !ok {
		return nil, apperror.NotFound("makeup", id)
	}
	out := *m
	return &out, nil
}

func (f fakeMakeupStore) FindActive(_ context.Context, studentID, scheduleID int) (*model.Makeup, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, m := range f.db.makeups {
		if m.StudentID == studentID && m.OriginalScheduleID == scheduleID && m.Status != model.MakeupStatusCancelled {
			out := *m
			return &out, nil
		}
	}
	return nil, apperror.NotFound("makeup", fmt.Sprintf("student %d/session %d", studentID, scheduleID))
}

func (f fakeMakeupStore) filter(keep func(*model.Makeup) bool) []model.Makeup {
	out := []model.Makeup{}
	for _, m := range f.db.makeups {
		if keep(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (f fakeMakeupStore) List(_ context.Context, filter model.MakeupFilter) ([]model.Makeup, int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := f.filter(func(m *model.Makeup) bool {
		return (filter.StudentID == 0 || m.StudentID == filter.StudentID) &&
			(filter.ClassID == 0 || m.OriginalClassID == filter.ClassID) &&
			(filter.Status == "" || m.Status == filter.Status)
	})
	return out, len(out), nil
}

func (f fakeMakeupStore) ListByStudentClass(_ context.Context, studentID, classID int) ([]model.Makeup, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.filter(func(m *model.Makeup) bool {
		return m.StudentID == studentID && m.OriginalClassID == classID
	}), nil
}

func (f fakeMakeupStore) ListPlacedOn(_ context.Context, day time.Time) ([]model.Makeup, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.filter(func(m *model.Makeup) bool {
		placed := m.Status == model.MakeupStatusScheduled || m.Status == model.MakeupStatusCompleted
		return placed && m.Schedule != nil && schedule.SameDay(m.Schedule.Date, day)
	}), nil
}

func (f fakeMakeupStore) Save(_ context.Context, m *model.Makeup, expected model.MakeupStatus) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stored, ok := f.db.makeups[m.ID]
	if !ok || stored.Status != expected {
		return apperror.Conflict("makeup", m.ID.String(), "makeup changed concurrently")
	}
	next := *m
	f.db.makeups[m.ID] = &next
	return nil
}

func (f fakeMakeupStore) Delete(_ context.Context, id uuid.UUID, expected model.MakeupStatus) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stored, ok := f.db.makeups[id]
	if !ok || stored.Status != expected {
		return apperror.Conflict("makeup", id.String(), "makeup changed concurrently")
	}
	delete(f.db.makeups, id)
	return nil
}

// ─── Collaborators ──────────────────────────────────────────────────────────

type fakeSettings struct {
	rows  []model.AppSetting
	err   error
	calls int
}

func (f *fakeSettings) GetByPrefix(_ context.Context, _ string) ([]model.AppSetting, error) {
	f.calls++
	return f.rows, f.err
}

type staticPolicy struct {
	policy model.MakeupPolicy
	err    error
}

func (p staticPolicy) GetMakeupPolicy(context.Context) (model.MakeupPolicy, error) {
	return p.policy, p.err
}

type fakeAudit struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func (f *fakeAudit) Record(_ context.Context, e model.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	scheduled []uuid.UUID
	reminders []int
	events    []model.ScheduleEvent
}

func (n *fakeNotifier) SendMakeupScheduled(_ context.Context, m *model.Makeup) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scheduled = append(n.scheduled, m.ID)
	return n.err
}

func (n *fakeNotifier) SendClassReminder(_ context.Context, r model.SessionReminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, r.SessionID)
	return n.err
}

func (n *fakeNotifier) PublishScheduleEvent(_ context.Context, e model.ScheduleEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

// ─── Wiring ─────────────────────────────────────────────────────────────────

var errBoom = errors.New("boom")

// env wires every service over one memDB.
type env struct {
	db       *memDB
	classes  fakeClassStore
	sessions fakeSessionStore
	holidays *fakeHolidayStore
	makeups  fakeMakeupStore
	audit    *fakeAudit
	notifier *fakeNotifier
	policy   *staticPolicy

	holidaySvc  *HolidayService
	availSvc    *AvailabilityService
	scheduleSvc *ScheduleService
	classSvc    *ClassService
	makeupSvc   *MakeupService
	attendSvc   *AttendanceService
}

func defaultPolicy() model.MakeupPolicy {
	return model.MakeupPolicy{
		AutoCreateMakeup:     true,
		MakeupLimitPerCourse: 2,
		AllowedStatuses:      []model.AttendanceStatus{model.AttendanceAbsent, model.AttendanceSick, model.AttendanceLeave},
		ValidityDays:         30,
	}
}

func newEnv(now time.Time) *env {
	log := zerolog.Nop()
	clock := fixedClock(now)
	db := newMemDB()
	e := &env{
		db:       db,
		classes:  fakeClassStore{db: db},
		sessions: fakeSessionStore{db: db, failApply: map[int]error{}},
		holidays: &fakeHolidayStore{db: db},
		makeups:  fakeMakeupStore{db: db},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{},
		policy:   &staticPolicy{policy: defaultPolicy()},
	}

	store := cache.NewMemoryStore(func() time.Time { return now })
	e.holidaySvc = NewHolidayService(e.holidays, cache.New(store, time.Hour, log),
		cache.NewFlag(store, config.CacheKey.HolidaysDirtyKey()), log)
	e.availSvc = NewAvailabilityService(e.classes, e.makeups)
	e.scheduleSvc = NewScheduleService(e.classes, e.sessions, e.holidaySvc, e.notifier, 400, clock, log)
	e.classSvc = NewClassService(e.classes, e.sessions, e.scheduleSvc, e.availSvc, e.notifier, clock, log)
	e.makeupSvc = NewMakeupService(e.makeups, e.sessions, e.classes, e.policy, e.holidaySvc, e.availSvc,
		e.audit, e.notifier, clock, log)
	e.attendSvc = NewAttendanceService(e.sessions, e.classes, e.makeups, e.makeupSvc, e.notifier, clock, log)
	return e
}

// monWedClass is a published Mon/Wed 10:00-11:00 class in branch 1, room 7.
func monWedClass(start string, total int) model.Class {
	return model.Class{
		Name:          "Math A",
		SubjectID:     1,
		TeacherID:     11,
		BranchID:      1,
		RoomID:        7,
		StartDate:     date(start),
		TotalSessions: total,
		DaysOfWeek:    []time.Weekday{time.Monday, time.Wednesday},
		StartTime:     model.MustTimeOfDay("10:00"),
		EndTime:       model.MustTimeOfDay("11:00"),
		MaxStudents:   10,
		Status:        model.ClassStatusPublished,
	}
}

func sessionKeys(sessions []model.Session) []schedule.DateKey {
	out := make([]schedule.DateKey, len(sessions))
	for i, s := range sessions {
		out[i] = schedule.KeyOf(s.SessionDate)
	}
	return out
}
