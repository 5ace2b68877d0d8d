package policy

import (
	"errors"
	"strings"

	"messagemaster/internal/models"
)

var ErrForbidden = errors.New("forbidden")

type Action string

const (
	ActionCreateUser          Action = "user.create"
	ActionEditUser            Action = "user.edit"
	ActionToggleUserStatus    Action = "user.toggle_status"
	ActionManageCredits       Action = "credits.manage"
	ActionCreateCampaign      Action = "campaign.create"
	ActionCreateTicket        Action = "ticket.create"
	ActionReplyTicket         Action = "ticket.reply"
	ActionSetTicketStatus     Action = "ticket.set_status"
	ActionAssignTicket        Action = "ticket.assign"
	ActionManageAnnouncements Action = "announcements.manage"
	ActionManageBackups       Action = "backup.manage"
	ActionCleanupData         Action = "data.cleanup"
	ActionEditWhitelabel      Action = "whitelabel.edit"
)

var roleActions = map[models.Role]map[Action]bool{
	models.RoleAdmin: {
		ActionCreateUser: true, ActionEditUser: true, ActionToggleUserStatus: true,
		ActionManageCredits: true, ActionCreateCampaign: true,
		ActionCreateTicket: true, ActionReplyTicket: true, ActionSetTicketStatus: true, ActionAssignTicket: true,
		ActionManageAnnouncements: true, ActionManageBackups: true, ActionCleanupData: true,
	},
	models.RoleReseller: {
		ActionCreateUser: true, ActionEditUser: true, ActionToggleUserStatus: true,
		ActionCreateCampaign: true, ActionCreateTicket: true, ActionReplyTicket: true,
		ActionEditWhitelabel: true,
	},
	models.RoleSubReseller: {
		ActionCreateUser: true, ActionEditUser: true, ActionToggleUserStatus: true,
		ActionCreateCampaign: true, ActionCreateTicket: true, ActionReplyTicket: true,
		ActionEditWhitelabel: true,
	},
	models.RoleUser: {
		ActionCreateCampaign: true, ActionCreateTicket: true, ActionReplyTicket: true,
	},
}

func Can(role models.Role, action Action) bool {
	return roleActions[role][action]
}

// Require returns ErrForbidden when role may not perform action.
func Require(role models.Role, action Action) error {
	if !Can(role, action) {
		return ErrForbidden
	}
	return nil
}

var creatable = map[models.Role][]models.Role{
	models.RoleAdmin:       {models.RoleUser, models.RoleSubReseller, models.RoleReseller},
	models.RoleReseller:    {models.RoleUser, models.RoleSubReseller},
	models.RoleSubReseller: {models.RoleUser},
}

// CreatableRoles lists the roles actor may assign to a new account.
func CreatableRoles(actor models.Role) []models.Role {
	return append([]models.Role(nil), creatable[actor]...)
}

func CanCreateRole(actor, target models.Role) bool {
	for _, r := range creatable[actor] {
		if r == target {
			return true
		}
	}
	return false
}

type TicketCapabilities struct {
	Reply     bool `json:"reply"`
	SetStatus bool `json:"set_status"`
	Assign    bool `json:"assign"`
	Escalate  bool `json:"escalate"`
}

// TicketActions decides the controls shown on one ticket. Only a Reseller
// the ticket is assigned to may push it up to Admin.
func TicketActions(viewer models.Identity, t models.Ticket) TicketCapabilities {
	return TicketCapabilities{
		Reply:     Can(viewer.Role, ActionReplyTicket),
		SetStatus: Can(viewer.Role, ActionSetTicketStatus),
		Assign:    Can(viewer.Role, ActionAssignTicket),
		Escalate: viewer.Role == models.RoleReseller &&
			strings.EqualFold(strings.TrimSpace(t.AssignedTo), strings.TrimSpace(viewer.Email)),
	}
}
