package model

// RoomAvailabilityRequest proposes a recurring booking of one room.
type RoomAvailabilityRequest struct {
	BranchID       int    `json:"branch_id" binding:"required,min=1"`
	RoomID         int    `json:"room_id" binding:"required,min=1"`
	DaysOfWeek     []int  `json:"days_of_week" binding:"required,min=1,unique,dive,weekday"`
	StartTime      string `json:"start_time" binding:"required,hhmm"`
	EndTime        string `json:"end_time" binding:"required,hhmm"`
	StartDate      string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date" binding:"required,datetime=2006-01-02"`
	ExcludeClassID int    `json:"exclude_class_id" binding:"min=0"`
}

// SlotAvailabilityRequest proposes a single-date booking for a makeup.
type SlotAvailabilityRequest struct {
	Date            string `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" binding:"required,hhmm"`
	EndTime         string `json:"end_time" binding:"required,hhmm"`
	TeacherID       int    `json:"teacher_id" binding:"required,min=1"`
	BranchID        int    `json:"branch_id" binding:"required,min=1"`
	RoomID          int    `json:"room_id" binding:"required,min=1"`
	ExcludeMakeupID string `json:"exclude_makeup_id" binding:"omitempty,uuid"`
}
