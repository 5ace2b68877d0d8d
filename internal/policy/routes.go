// Package policy is the static role table that decides which console pages
// and actions an Identity may reach.
package policy

import (
	"strings"

	"messagemaster/internal/models"
)

type RouteID string

const (
	RouteLogin                RouteID = "login"
	RouteUnauthorized         RouteID = "unauthorized"
	RouteAdminDashboard       RouteID = "admin"
	RouteResellerDashboard    RouteID = "reseller-dashboard"
	RouteSubResellerDashboard RouteID = "subreseller-dashboard"
	RouteUserDashboard        RouteID = "user-dashboard"
	RouteUsers                RouteID = "users"
	RouteCredits              RouteID = "credits"
	RouteCampaigns            RouteID = "campaigns"
	RouteReports              RouteID = "reports"
	RouteHistory              RouteID = "history"
	RouteAnalytics            RouteID = "analytics"
	RouteTickets              RouteID = "tickets"
	RouteAdminAnnouncements   RouteID = "admin-announcements"
	RouteAnnouncementsHistory RouteID = "announcements-history"
	RouteProfile              RouteID = "profile"
	RouteWhitelabel           RouteID = "whitelabel-settings"
	RouteBackup               RouteID = "backup"
	RouteStorage              RouteID = "storage"
)

// AllRoutes lists every known route, public ones first.
var AllRoutes = []RouteID{
	RouteLogin, RouteUnauthorized,
	RouteAdminDashboard, RouteResellerDashboard, RouteSubResellerDashboard, RouteUserDashboard,
	RouteUsers, RouteCredits, RouteCampaigns, RouteReports, RouteHistory, RouteAnalytics,
	RouteTickets, RouteAdminAnnouncements, RouteAnnouncementsHistory, RouteProfile,
	RouteWhitelabel, RouteBackup, RouteStorage,
}

var public = map[RouteID]bool{RouteLogin: true, RouteUnauthorized: true}

// anyAuthenticated routes are open to every signed-in identity, whatever its role.
var anyAuthenticated = map[RouteID]bool{RouteProfile: true, RouteAnnouncementsHistory: true}

var roleRoutes = map[models.Role]map[RouteID]bool{
	models.RoleAdmin: set(
		RouteAdminDashboard, RouteUsers, RouteCredits, RouteCampaigns,
		RouteReports, RouteHistory, RouteAnalytics, RouteTickets,
		RouteAdminAnnouncements, RouteBackup, RouteStorage,
	),
	models.RoleReseller: set(
		RouteResellerDashboard, RouteUsers, RouteCampaigns,
		RouteReports, RouteHistory, RouteAnalytics, RouteTickets, RouteWhitelabel,
	),
	models.RoleSubReseller: set(
		RouteSubResellerDashboard, RouteUsers, RouteCampaigns, RouteTickets, RouteWhitelabel,
	),
	models.RoleUser: set(
		RouteUserDashboard, RouteCampaigns, RouteTickets,
	),
}

var dashboards = map[models.Role]RouteID{
	models.RoleAdmin:       RouteAdminDashboard,
	models.RoleReseller:    RouteResellerDashboard,
	models.RoleSubReseller: RouteSubResellerDashboard,
	models.RoleUser:        RouteUserDashboard,
}

func set(ids ...RouteID) map[RouteID]bool {
	out := make(map[RouteID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func IsPublic(route RouteID) bool { return public[route] }

// KnownRole reports whether role appears in the table.
func KnownRole(role models.Role) bool {
	_, ok := roleRoutes[role]
	return ok
}

// CanAccess is default-deny: unknown roles only reach the public routes.
func CanAccess(role models.Role, route RouteID) bool {
	if public[route] {
		return true
	}
	grants, ok := roleRoutes[role]
	if !ok {
		return false
	}
	if anyAuthenticated[route] {
		return true
	}
	return grants[route]
}

// Path renders the URL path of route. Profile needs the user id.
func Path(route RouteID, userID string) string {
	if route == RouteProfile {
		return "/profile/" + userID
	}
	return "/" + string(route)
}

// DefaultRouteFor is the landing page right after sign-in.
func DefaultRouteFor(role models.Role) string {
	if r, ok := dashboards[role]; ok {
		return Path(r, "")
	}
	return Path(RouteLogin, "")
}

// DashboardFor returns the role's own dashboard route.
func DashboardFor(role models.Role) (RouteID, bool) {
	r, ok := dashboards[role]
	return r, ok
}

// RouteForPath maps a request path back to its route and path parameter.
func RouteForPath(p string) (RouteID, string, bool) {
	p = strings.Trim(p, "/")
	head, rest, _ := strings.Cut(p, "/")
	for _, id := range AllRoutes {
		if string(id) != head {
			continue
		}
		if id == RouteProfile {
			if rest == "" || strings.Contains(rest, "/") {
				return "", "", false
			}
			return id, rest, true
		}
		return id, rest, true
	}
	return "", "", false
}
