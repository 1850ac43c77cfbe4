package service

import (
	"context"
	"sync"
	"time"

	"github.com/tutorhub/class-engine/internal/model"
)

// BoardService builds the day view of a branch shown on live schedule screens.
type BoardService struct {
	sessions SessionStore
	makeups  MakeupStore
}

// NewBoardService creates a new BoardService.
func NewBoardService(sessions SessionStore, makeups MakeupStore) *BoardService {
	return &BoardService{sessions: sessions, makeups: makeups}
}

// DayBoard is everything happening in one branch on one day.
type DayBoard struct {
	BranchID int                     `json:"branch_id"`
	Date     time.Time               `json:"date"`
	Sessions []model.SessionReminder `json:"sessions"`
	Makeups  []model.Makeup          `json:"makeups"`
}

// GetDayBoard returns the branch's sessions and placed makeups on day.
// Both lists are fetched in parallel; makeups are best-effort.
func (s *BoardService) GetDayBoard(ctx context.Context, branchID int, day time.Time) (*DayBoard, error) {
	board := &DayBoard{
		BranchID: branchID,
		Date:     day,
		Sessions: []model.SessionReminder{},
		Makeups:  []model.Makeup{},
	}

	var (
		sessions    []model.SessionReminder
		makeups     []model.Makeup
		sessionsErr error
		makeupsErr  error
		wg          sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions, sessionsErr = s.sessions.ListOnDate(ctx, day)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		makeups, makeupsErr = s.makeups.ListPlacedOn(ctx, day)
	}()

	wg.Wait()

	if sessionsErr != nil {
		return nil, sessionsErr
	}
	for _, r := range sessions {
		if r.BranchID == branchID {
			board.Sessions = append(board.Sessions, r)
		}
	}

	if makeupsErr == nil {
		for _, m := range makeups {
			if m.Schedule != nil && m.Schedule.BranchID == branchID {
				board.Makeups = append(board.Makeups, m)
			}
		}
	}
	return board, nil
}
