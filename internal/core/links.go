package core

import (
	"beelogical.com/chat-portal/internal/utils"
)

// Link is a plain navigation to a backend-hosted resource.
type Link struct {
	Icon       string `json:"icon"`
	Label      string `json:"label"`
	Href       string `json:"href"`
	UserScoped bool   `json:"user_scoped"`
	Danger     bool   `json:"danger,omitempty"`
}

type linkDef struct {
	icon       string
	label      string
	path       string
	userScoped bool
	danger     bool
}

var auxiliaryLinks = []linkDef{
	{icon: "📂", label: "List My Folders & Files", path: "/folders/my-folder-and-files-n8n", userScoped: true},
	{icon: "👥", label: "List Team Folders & Files", path: "/folders/my-teams-folder-and-files", userScoped: true},
	{icon: "🔐", label: "Get Access Token", path: "/get-access-token"},
	{icon: "🔑", label: "Get API USER Access Token", path: "/api/user-access-token", userScoped: true},
	{icon: "🆔", label: "Get User ID", path: "/get-user-id"},
	{icon: "🚪", label: "Logout", path: "/logout", danger: true},
}

// Links returns the auxiliary link surface for userID. User-scoped links
// always carry user_id, even when it is empty; global ones never do.
func (c *BackendClient) Links(userID string) []Link {
	links := make([]Link, 0, len(auxiliaryLinks))
	for _, def := range auxiliaryLinks {
		href := utils.BuildURL(c.baseURL, def.path, nil)
		if def.userScoped {
			href = utils.BuildURL(c.baseURL, def.path, utils.UserQuery(userID))
		}
		links = append(links, Link{
			Icon:       def.icon,
			Label:      def.label,
			Href:       href,
			UserScoped: def.userScoped,
			Danger:     def.danger,
		})
	}
	return links
}
