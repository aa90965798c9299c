package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/services/projectsvc"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
)

// ServeRSS handles GET /api/projects/{projectId}/rss.xml.
func (h *Handler) ServeRSS(w http.ResponseWriter, r *http.Request) {
	if !h.Opts.EnableRSS {
		h.ErrLog.LogBadRequest(w, r, "rss: feature disabled", nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	doc, err := h.Svc.GenerateRSS(ctx, projectsvc.FeedContext{
		Host: requestHost(r),
		Path: r.URL.Path,
	})
	if err != nil {
		h.fail(w, r, "rss", err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// requestHost returns scheme://host of the request, honoring a
// terminating proxy's X-Forwarded-Proto.
func requestHost(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
