package schedule

import "github.com/tutorhub/class-engine/internal/model"

// DeriveSessionStatus recomputes a session's status after its attendance list
// was replaced. Any present/late/sick/leave mark completes the session. An
// empty list reopens it as scheduled; a moved session keeps its original date
// and reschedule log. A list holding only absent marks leaves the status
// untouched, since absent is written by the makeup request path while the
// makeup decision is still open.
func DeriveSessionStatus(current model.SessionStatus, records []model.AttendanceRecord) model.SessionStatus {
	if len(records) == 0 {
		return model.SessionStatusScheduled
	}
	for _, r := range records {
		if r.Status != model.AttendanceAbsent {
			return model.SessionStatusCompleted
		}
	}
	return current
}

// CorrectedToAttended returns the students whose previous mark was absent and
// whose new mark says they attended.
func CorrectedToAttended(previous, next []model.AttendanceRecord) []int {
	was := make(map[int]model.AttendanceStatus, len(previous))
	for _, r := range previous {
		was[r.StudentID] = r.Status
	}
	var out []int
	for _, r := range next {
		if was[r.StudentID] == model.AttendanceAbsent && r.Status.Attended() {
			out = append(out, r.StudentID)
		}
	}
	return out
}
