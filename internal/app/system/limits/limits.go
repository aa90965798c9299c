// internal/app/system/limits/limits.go
package limits

// Request body size limits for the projects API.
const (
	// MaxJSONBody caps JSON request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// DefaultUploadBytes caps a document upload request when no limit is
	// configured.
	DefaultUploadBytes = 20 << 20 // 20 MB

	// DefaultInvitesPerHour is the per-user invite request budget.
	DefaultInvitesPerHour = 30
)
