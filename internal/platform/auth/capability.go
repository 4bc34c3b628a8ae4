package auth

import "strings"

// Action names a mutating or privileged operation gated by the capability
// table. Read paths that any authenticated member of staff may use are not
// listed here.
type Action string

const (
	ActionAdmitPatient       Action = "patient.admit"
	ActionEditPatient        Action = "patient.edit"
	ActionDischargePatient   Action = "patient.discharge"
	ActionAssignBed          Action = "patient.assign_bed"
	ActionRecordDeath        Action = "patient.record_death"
	ActionRecordVitals       Action = "vitals.record"
	ActionRequestTest        Action = "diagnostics.request"
	ActionFulfillTest        Action = "diagnostics.fulfill"
	ActionScheduleMedication Action = "medication.schedule"
	ActionUpdateMedication   Action = "medication.update_status"
	ActionSendMessage        Action = "messaging.send"
	ActionEscalate           Action = "messaging.escalate"
	ActionManageUsers        Action = "identity.manage"
	ActionLogExport          Action = "audit.log_export"
	ActionViewReports        Action = "reporting.view"
)

// capabilities is the authorization matrix. An action absent from the map is
// denied for every role; there is no implicit admin override.
var capabilities = map[Action][]Role{
	ActionAdmitPatient:       {RoleNurse},
	ActionEditPatient:        {RoleNurse},
	ActionDischargePatient:   {RoleNurse},
	ActionAssignBed:          {RoleNurse},
	ActionRecordDeath:        {RoleNurse},
	ActionRecordVitals:       {RoleNurse},
	ActionRequestTest:        {RoleDoctor, RoleNurse},
	ActionFulfillTest:        {RoleLab, RoleRadiology, RoleAdmin},
	ActionScheduleMedication: {RoleDoctor, RoleNurse},
	ActionUpdateMedication:   {RoleNurse},
	ActionSendMessage:        AllRoles,
	ActionEscalate:           {RoleNurse},
	ActionManageUsers:        {RoleAdmin},
	ActionLogExport:          AllRoles,
	ActionViewReports:        {RoleAdmin, RoleDoctor},
}

// Can reports whether the role is permitted to perform the action.
func Can(role Role, action Action) bool {
	for _, r := range capabilities[action] {
		if r == role {
			return true
		}
	}
	return false
}

// RolesAllowed returns the permitted roles for an action as a display string.
func RolesAllowed(action Action) string {
	roles := capabilities[action]
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}
