package model

// Permission represents a string code for a specific system action.
// Codes are issued inside staff tokens by the school's auth service.
type Permission string

const (
	// PermissionClassesRead allows viewing classes, sessions and availability.
	PermissionClassesRead Permission = "classes:read"

	// PermissionClassesWrite allows creating and editing classes and moving them through their lifecycle.
	PermissionClassesWrite Permission = "classes:write"

	// PermissionScheduleWrite allows generating, regenerating and rescheduling sessions.
	PermissionScheduleWrite Permission = "schedule:write"

	// PermissionAttendanceWrite allows recording session attendance.
	PermissionAttendanceWrite Permission = "attendance:write"

	// PermissionHolidaysWrite allows maintaining the holiday calendar.
	PermissionHolidaysWrite Permission = "holidays:write"

	// PermissionMakeupsRead allows viewing makeup requests.
	PermissionMakeupsRead Permission = "makeups:read"

	// PermissionMakeupsWrite allows requesting, scheduling and closing makeups.
	PermissionMakeupsWrite Permission = "makeups:write"

	// PermissionMakeupsOverride allows bypassing the makeup policy and reverting makeup attendance.
	PermissionMakeupsOverride Permission = "makeups:override"

	// PermissionSettingsRead allows viewing the effective makeup policy.
	PermissionSettingsRead Permission = "settings:read"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionClassesRead,
	PermissionClassesWrite,
	PermissionScheduleWrite,
	PermissionAttendanceWrite,
	PermissionHolidaysWrite,
	PermissionMakeupsRead,
	PermissionMakeupsWrite,
	PermissionMakeupsOverride,
	PermissionSettingsRead,
}
