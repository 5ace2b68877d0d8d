package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"messagemaster/internal/gateway"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

var TicketStatuses = []string{"Open", "In Progress", "Resolved", "Closed", "Escalated"}

var IssueTypes = []string{"Other", "Campaign", "User", "Credits/Debits"}

var ErrTicketNotFound = errors.New("ticket not found")

type TicketRow struct {
	models.Ticket
	Assignee     string                    `json:"assignee"`
	Capabilities policy.TicketCapabilities `json:"capabilities"`
}

type TicketsView struct {
	Tickets      []TicketRow                `json:"tickets"`
	Statuses     []string                   `json:"statuses"`
	IssueTypes   []string                   `json:"issue_types"`
	Campaigns    []models.Campaign          `json:"campaigns"`
	Users        []models.User              `json:"users"`
	Transactions []models.CreditTransaction `json:"transactions"`
	// Resellers are the assignment targets offered to Admin.
	Resellers []models.User `json:"resellers,omitempty"`
}

func (s *Service) Tickets(ctx context.Context, viewer models.Identity) (TicketsView, error) {
	if err := requireRoute(viewer, policy.RouteTickets); err != nil {
		return TicketsView{}, err
	}
	var v TicketsView
	var tickets []models.Ticket
	fns := []func(context.Context) error{
		func(ctx context.Context) (err error) {
			tickets, err = s.api.ListTickets(ctx)
			return
		},
		func(ctx context.Context) (err error) {
			v.Campaigns, err = s.api.ListCampaigns(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			v.Users, err = s.api.ListUsers(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			v.Transactions, err = s.api.ListCredits(ctx, gateway.UserScope{})
			return
		},
	}
	if policy.Can(viewer.Role, policy.ActionAssignTicket) {
		fns = append(fns, func(ctx context.Context) error {
			all, err := s.api.ListUsers(ctx, gateway.UserScope{AdminFetch: true})
			v.Resellers = usersWithRole(all, models.RoleReseller)
			return err
		})
	}
	if err := fanOut(ctx, fns...); err != nil {
		return TicketsView{}, err
	}
	v.Tickets = make([]TicketRow, 0, len(tickets))
	for _, t := range tickets {
		v.Tickets = append(v.Tickets, TicketRow{Ticket: t, Assignee: t.Assignee(), Capabilities: policy.TicketActions(viewer, t)})
	}
	v.Statuses = TicketStatuses
	v.IssueTypes = IssueTypes
	return v, nil
}

type NewTicket struct {
	Subject            string
	Description        string
	IssueType          string
	RelatedCampaign    string
	RelatedUser        string
	RelatedTransaction string
	Attachments        []gateway.File
}

func (s *Service) CreateTicket(ctx context.Context, viewer models.Identity, in NewTicket) error {
	if err := policy.Require(viewer.Role, policy.ActionCreateTicket); err != nil {
		return err
	}
	if err := required("subject", in.Subject, "Subject is required."); err != nil {
		return err
	}
	if err := required("description", in.Description, "Description is required."); err != nil {
		return err
	}
	if in.IssueType == "" {
		in.IssueType = "Other"
	}
	fields := url.Values{}
	for k, v := range map[string]string{
		"subject":            in.Subject,
		"description":        in.Description,
		"issueType":          in.IssueType,
		"relatedCampaign":    in.RelatedCampaign,
		"relatedUser":        in.RelatedUser,
		"relatedTransaction": in.RelatedTransaction,
	} {
		if v = strings.TrimSpace(v); v != "" {
			fields.Set(k, v)
		}
	}
	err := s.api.CreateTicket(ctx, fields, in.Attachments)
	logAction(viewer, "ticket.create", in.Subject, err)
	return err
}

func (s *Service) findTicket(ctx context.Context, id string) (models.Ticket, error) {
	ts, err := s.api.ListTickets(ctx)
	if err != nil {
		return models.Ticket{}, err
	}
	for _, t := range ts {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Ticket{}, ErrTicketNotFound
}

// ReplyTicket ignores a blank reply without calling the backend.
func (s *Service) ReplyTicket(ctx context.Context, viewer models.Identity, id, message string) (models.Ticket, error) {
	if err := policy.Require(viewer.Role, policy.ActionReplyTicket); err != nil {
		return models.Ticket{}, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return models.Ticket{}, invalid("message", "Reply cannot be empty.")
	}
	t, err := s.api.ReplyTicket(ctx, id, message)
	logAction(viewer, "ticket.reply", id, err)
	return t, err
}

func (s *Service) SetTicketStatus(ctx context.Context, viewer models.Identity, id, status string) (models.Ticket, error) {
	if err := policy.Require(viewer.Role, policy.ActionSetTicketStatus); err != nil {
		return models.Ticket{}, err
	}
	known := false
	for _, st := range TicketStatuses {
		known = known || st == status
	}
	if !known {
		return models.Ticket{}, invalid("status", "Unknown ticket status.")
	}
	t, err := s.api.SetTicketStatus(ctx, id, status)
	logAction(viewer, "ticket.status", id, err)
	return t, err
}

// EscalateTicket hands a ticket assigned to the viewing Reseller back to Admin.
func (s *Service) EscalateTicket(ctx context.Context, viewer models.Identity, id string) error {
	t, err := s.findTicket(ctx, id)
	if err != nil {
		return err
	}
	if !policy.TicketActions(viewer, t).Escalate {
		return policy.ErrForbidden
	}
	err = s.api.EscalateTicket(ctx, id)
	logAction(viewer, "ticket.escalate", id, err)
	return err
}

// AssignTicket routes a ticket to a reseller email, or to "Admin".
func (s *Service) AssignTicket(ctx context.Context, viewer models.Identity, id, assignee string) (models.Ticket, error) {
	if err := policy.Require(viewer.Role, policy.ActionAssignTicket); err != nil {
		return models.Ticket{}, err
	}
	if err := required("assignee", assignee, "Please choose who the ticket is assigned to."); err != nil {
		return models.Ticket{}, err
	}
	t, err := s.api.AssignTicket(ctx, id, strings.TrimSpace(assignee))
	logAction(viewer, "ticket.assign", id, err)
	return t, err
}

// TicketAttachment downloads one attachment the ticket lists.
func (s *Service) TicketAttachment(ctx context.Context, viewer models.Identity, id, path string) (gateway.Download, error) {
	if err := requireRoute(viewer, policy.RouteTickets); err != nil {
		return gateway.Download{}, err
	}
	t, err := s.findTicket(ctx, id)
	if err != nil {
		return gateway.Download{}, err
	}
	for _, a := range t.Attachments {
		if a == path {
			if !strings.HasPrefix(a, "/") && !strings.Contains(a, "://") {
				a = "/" + a
			}
			return s.api.Download(ctx, a)
		}
	}
	return gateway.Download{}, ErrTicketNotFound
}
