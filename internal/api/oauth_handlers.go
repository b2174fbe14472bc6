package api

import (
	"github.com/gofiber/fiber/v2"
)

// handleOAuthProtectedResource serves the RFC 9728 metadata MCP clients read
// to find the authorization server for /mcp
func (s *APIServer) handleOAuthProtectedResource(c *fiber.Ctx) error {
	authorizationServers := s.options.AuthorizationServers
	if authorizationServers == nil {
		authorizationServers = []string{}
	}
	resource := s.options.ResourceID
	if resource == "" {
		resource = c.BaseURL()
	}

	return c.JSON(fiber.Map{
		"authorization_servers":    authorizationServers,
		"bearer_methods_supported": []string{"header"},
		"resource":                 resource,
		"scopes_supported":         []string{},
	})
}
