package main

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/webforge/internal/orchestrator"
	"github.com/antigravity-dev/webforge/internal/thumbnail"
)

// sessionPageSource adapts an orchestrator.SessionStore into
// thumbnail.PageSource, reading a page's already-generated draft HTML back
// out of its owning Session rather than a separate project-pages table.
type sessionPageSource struct {
	Sessions  *orchestrator.SessionStore
	SessionID string
	Design    thumbnail.DesignSystem
}

func (s sessionPageSource) PageContent(_ context.Context, _, pageID string) (string, string, thumbnail.DesignSystem, error) {
	sess, ok := s.Sessions.Get(s.SessionID)
	if !ok {
		return "", "", thumbnail.DesignSystem{}, fmt.Errorf("buildrtdemo: session %s not found", s.SessionID)
	}
	html, ok := sess.DraftHTML[pageID]
	if !ok {
		return "", "", thumbnail.DesignSystem{}, fmt.Errorf("buildrtdemo: no draft HTML for page %s", pageID)
	}
	name := pageID
	for _, p := range sess.Pages {
		if p.ID == pageID {
			name = p.Name
			break
		}
	}
	return html, name, s.Design, nil
}
