// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	ProjectHubMongoClient   *mongo.Client
	ProjectHubMongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank.
	Redis *redis.Client

	// Runtime is filled in by Startup and shared by the later hooks.
	Runtime *Runtime
}
