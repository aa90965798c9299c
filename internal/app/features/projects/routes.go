// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/projectacl"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/projects.
func Routes(h *Handler, sm *auth.SessionManager, guard *projectacl.Guard) chi.Router {
	r := chi.NewRouter()

	// Public feed
	r.Get("/{projectId}/rss.xml", h.ServeRSS)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		// Invite responses are matched on the caller's email, not on a role.
		pr.Put("/{projectId}/invite", h.HandleAcceptInvite)
		pr.Patch("/{projectId}/invite", h.HandleAcceptInvite)
		pr.Delete("/{projectId}/invite", h.HandleRejectInvite)

		// Member routes
		pr.Group(func(mr chi.Router) {
			mr.Use(guard.RequireMember)

			mr.Get("/{projectId}", h.ServeProject)
			mr.Post("/{projectId}/invite", h.HandleCreateInvite)
			mr.Get("/{projectId}/team", h.ServeTeam)

			mr.Get("/{projectId}/history", h.ServeHistory)
			mr.Post("/{projectId}/history", h.HandleLogHistory)

			mr.Get("/{projectId}/document", h.ServeDocuments)
			mr.Post("/{projectId}/document", h.HandleUpload)
			mr.Post("/{projectId}/document/upload", h.HandleUpload)
			mr.Get("/{projectId}/document/{assetId}", h.ServeDocument)
			mr.Get("/{projectId}/document/{assetId}/render", h.ServeDocumentContent)
			mr.Get("/{projectId}/document/{assetId}/{versionId}", h.ServeDocument)
			mr.Get("/{projectId}/document/{assetId}/{versionId}/render", h.ServeDocumentContent)
		})

		// Owner routes
		pr.Group(func(ow chi.Router) {
			ow.Use(guard.RequireOwner)

			ow.Put("/{projectId}/settings", h.HandleUpdate)
			ow.Patch("/{projectId}/settings", h.HandleUpdate)
			ow.Delete("/{projectId}/settings", h.HandleDelete)

			ow.Delete("/{projectId}/revoke/invite", h.HandleRevokeInvite)
			ow.Put("/{projectId}/owner", h.HandleChangeOwner)
			ow.Put("/{projectId}/picture", h.HandleUpdatePicture)
			ow.Put("/{projectId}/publish", h.HandlePublish)
			ow.Put("/{projectId}/unpublish", h.HandleUnpublish)

			ow.Delete("/{projectId}/document/{assetId}", h.HandleDeleteDocument)
		})
	})

	return r
}
