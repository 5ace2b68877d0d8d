package service

import (
	"context"
	"net/url"
	"strings"

	"messagemaster/internal/gateway"
	"messagemaster/internal/ledger"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

// placeholderPassword is what new accounts get when the form leaves it blank.
const placeholderPassword = "123456"

type UserRow struct {
	models.User
	Credits       int64                         `json:"credits"`
	CreditDetails map[string]ledger.TypeBalance `json:"creditDetails"`
}

type UserFilter struct {
	Search string
	Status string
	Role   models.Role
}

func (f UserFilter) match(u models.User) bool {
	if f.Status != "" && f.Status != "All" && string(u.Status) != f.Status {
		return false
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Search != "" && !models.ContainsFold(u.Name, f.Search) && !models.ContainsFold(u.Email, f.Search) {
		return false
	}
	return true
}

type UsersView struct {
	Users          []UserRow     `json:"users"`
	CreatableRoles []models.Role `json:"creatable_roles"`
	CanCreate      bool          `json:"can_create"`
	CanEdit        bool          `json:"can_edit"`
	CanToggle      bool          `json:"can_toggle"`
}

func (s *Service) Users(ctx context.Context, viewer models.Identity, f UserFilter) (UsersView, error) {
	if err := requireRoute(viewer, policy.RouteUsers); err != nil {
		return UsersView{}, err
	}
	var (
		users   []models.User
		credits []models.CreditTransaction
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			users, err = s.api.ListUsers(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			credits, err = s.api.ListCredits(ctx, gateway.UserScope{})
			return
		},
	)
	if err != nil {
		return UsersView{}, err
	}
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		if !f.match(u) {
			continue
		}
		rows = append(rows, UserRow{
			User:          u,
			Credits:       ledger.Total(credits, u.Email),
			CreditDetails: ledger.BalancesByType(credits, u.Email),
		})
	}
	return UsersView{
		Users:          rows,
		CreatableRoles: policy.CreatableRoles(viewer.Role),
		CanCreate:      policy.Can(viewer.Role, policy.ActionCreateUser),
		CanEdit:        policy.Can(viewer.Role, policy.ActionEditUser),
		CanToggle:      policy.Can(viewer.Role, policy.ActionToggleUserStatus),
	}, nil
}

type CreditHistory struct {
	Email        string                        `json:"email"`
	Balances     map[string]ledger.TypeBalance `json:"balances"`
	Total        int64                         `json:"total"`
	Transactions []models.CreditTransaction    `json:"transactions"`
}

// UserCredits is the per-account credit history behind the users table.
func (s *Service) UserCredits(ctx context.Context, viewer models.Identity, email string) (CreditHistory, error) {
	if err := requireRoute(viewer, policy.RouteUsers); err != nil {
		return CreditHistory{}, err
	}
	credits, err := s.api.ListCredits(ctx, gateway.UserScope{})
	if err != nil {
		return CreditHistory{}, err
	}
	return CreditHistory{
		Email:        email,
		Balances:     ledger.BalancesByType(credits, email),
		Total:        ledger.Total(credits, email),
		Transactions: ledger.Recent(ledger.ForUser(credits, email), 0),
	}, nil
}

// CreateUser checks the role the viewer may grant and stamps the creator.
// A Sub-Reseller with no remaining credits cannot add accounts.
func (s *Service) CreateUser(ctx context.Context, viewer models.Identity, in gateway.NewUser) error {
	if err := policy.Require(viewer.Role, policy.ActionCreateUser); err != nil {
		return err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := required("name", in.Name, "Name is required."); err != nil {
		return err
	}
	if err := required("email", in.Email, "Email is required."); err != nil {
		return err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !policy.CanCreateRole(viewer.Role, in.Role) {
		return invalid("role", "You cannot create accounts with the "+string(in.Role)+" role.")
	}
	if viewer.Role == models.RoleSubReseller {
		credits, err := s.api.ListCredits(ctx, scopeFor(viewer))
		if err != nil {
			return err
		}
		if ledger.Total(credits, viewer.Email) <= 0 {
			return invalid("credits", "Not enough credits to create new user!")
		}
	}
	if in.Password == "" {
		in.Password = placeholderPassword
	}
	in.CreatedBy = viewer.Email
	if viewer.Role == models.RoleReseller {
		in.Reseller = viewer.Email
	}
	err := s.api.CreateUser(ctx, in)
	logAction(viewer, "user.create", in.Email, err)
	return err
}

// editableUserFields are the profile fields the edit form may send.
var editableUserFields = []string{
	"name", "email", "password", "role", "status", "firmName", "mobile", "address",
	"state", "city", "pincode", "contactPerson", "contactPersonPhone", "ownNumber", "companyName",
}

func (s *Service) UpdateUser(ctx context.Context, viewer models.Identity, id string, form url.Values, logo *gateway.File) error {
	if err := policy.Require(viewer.Role, policy.ActionEditUser); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return invalid("id", "User id is required.")
	}
	fields := url.Values{}
	for _, k := range editableUserFields {
		if v := form.Get(k); v != "" {
			fields.Set(k, v)
		}
	}
	if r := models.Role(fields.Get("role")); r != "" && !policy.CanCreateRole(viewer.Role, r) {
		return invalid("role", "You cannot assign the "+string(r)+" role.")
	}
	if logo != nil && len(logo.Data) == 0 {
		logo = nil
	}
	err := s.api.UpdateUser(ctx, id, fields, logo)
	logAction(viewer, "user.update", id, err)
	return err
}

// ToggleUserStatus flips Active and Blocked and returns the status requested.
func (s *Service) ToggleUserStatus(ctx context.Context, viewer models.Identity, id string, current models.UserStatus) (models.UserStatus, error) {
	if err := policy.Require(viewer.Role, policy.ActionToggleUserStatus); err != nil {
		return current, err
	}
	next := models.UserBlocked
	if current == models.UserBlocked {
		next = models.UserActive
	}
	err := s.api.SetUserStatus(ctx, id, next)
	logAction(viewer, "user.status", id, err)
	if err != nil {
		return current, err
	}
	return next, nil
}
