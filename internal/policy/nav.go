package policy

import "messagemaster/internal/models"

type NavLink struct {
	Route RouteID `json:"route"`
	Label string  `json:"label"`
	Path  string  `json:"path"`
}

type navEntry struct {
	route RouteID
	label string
}

var navTable = map[models.Role][]navEntry{
	models.RoleAdmin: {
		{RouteAdminDashboard, "Dashboard"},
		{RouteProfile, "My Profile"},
		{RouteUsers, "Users"},
		{RouteCampaigns, "Campaigns"},
		{RouteCredits, "Credits"},
		{RouteReports, "Reports"},
		{RouteHistory, "History"},
		{RouteAnalytics, "Analytics"},
		{RouteTickets, "Support Tickets"},
		{RouteAdminAnnouncements, "Manage Announcements"},
		{RouteAnnouncementsHistory, "View Announcements"},
		{RouteBackup, "Backup"},
		{RouteStorage, "Storage"},
	},
	models.RoleReseller: {
		{RouteResellerDashboard, "Dashboard"},
		{RouteProfile, "My Profile"},
		{RouteUsers, "My Users"},
		{RouteCampaigns, "Campaigns"},
		{RouteHistory, "History"},
		{RouteAnalytics, "Analytics"},
		{RouteTickets, "Support Tickets"},
		{RouteAnnouncementsHistory, "Announcements"},
		{RouteWhitelabel, "Whitelabel"},
	},
	models.RoleSubReseller: {
		{RouteSubResellerDashboard, "Dashboard"},
		{RouteProfile, "My Profile"},
		{RouteUsers, "My Users"},
		{RouteCampaigns, "Campaigns"},
		{RouteTickets, "Support Tickets"},
		{RouteAnnouncementsHistory, "Announcements"},
		{RouteWhitelabel, "Whitelabel"},
	},
	models.RoleUser: {
		{RouteUserDashboard, "Dashboard"},
		{RouteProfile, "My Profile"},
		{RouteCampaigns, "My Campaigns"},
		{RouteTickets, "Support Tickets"},
		{RouteAnnouncementsHistory, "Announcements"},
	},
}

// NavLinks is the ordered menu for id. Unknown roles get none.
func NavLinks(id models.Identity) []NavLink {
	entries := navTable[id.Role]
	out := make([]NavLink, 0, len(entries))
	for _, e := range entries {
		out = append(out, NavLink{Route: e.route, Label: e.label, Path: Path(e.route, id.ID)})
	}
	return out
}
