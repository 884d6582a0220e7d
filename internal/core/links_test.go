package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinksEmbedUserIDOnlyWhenScoped(t *testing.T) {
	links := NewBackendClient("http://localhost:8000", 0).Links("sub-9")
	require.Len(t, links, 6)

	expected := []string{
		"http://localhost:8000/folders/my-folder-and-files-n8n?user_id=sub-9",
		"http://localhost:8000/folders/my-teams-folder-and-files?user_id=sub-9",
		"http://localhost:8000/get-access-token",
		"http://localhost:8000/api/user-access-token?user_id=sub-9",
		"http://localhost:8000/get-user-id",
		"http://localhost:8000/logout",
	}
	for i, link := range links {
		assert.Equal(t, expected[i], link.Href)
		assert.Equal(t, link.UserScoped, strings.Contains(link.Href, "user_id="), link.Label)
	}
	assert.True(t, links[5].Danger)
}

func TestLinksForGuest(t *testing.T) {
	links := NewBackendClient("http://localhost:8000", 0).Links("")
	assert.Equal(t, "http://localhost:8000/folders/my-folder-and-files-n8n?user_id=", links[0].Href)
	assert.Equal(t, "http://localhost:8000/logout", links[5].Href)
}

func TestLinksAreDeterministic(t *testing.T) {
	c := NewBackendClient("http://localhost:8000", 0)
	assert.Equal(t, c.Links("a"), c.Links("a"))
	assert.NotEqual(t, c.Links("a"), c.Links("b"))
}
