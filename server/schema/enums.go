package schema

import "fmt"

const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

const (
	BandRoleAdmin  = "admin"
	BandRoleMember = "member"
	BandRoleCrew   = "crew"
)

const (
	AttendanceConfirmed  = "confirmed"
	AttendanceDeclined   = "declined"
	AttendanceTentative  = "tentative"
	AttendanceNoResponse = "no_response"
)

func CheckValidBandRole(role string) error {
	switch role {
	case BandRoleAdmin, BandRoleMember, BandRoleCrew:
		return nil
	}
	return fmt.Errorf("invalid band role '%v', must be one of 'admin', 'member', or 'crew'", role)
}

func CheckValidAttendanceStatus(status string) error {
	switch status {
	case AttendanceConfirmed, AttendanceDeclined, AttendanceTentative, AttendanceNoResponse:
		return nil
	}
	return fmt.Errorf("invalid attendance status '%v', must be one of 'confirmed', 'declined', 'tentative', or 'no_response'", status)
}
