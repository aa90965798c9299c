// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"
	"time"

	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	assetstore "github.com/dalemusser/projecthub/internal/app/store/assets"
	historystore "github.com/dalemusser/projecthub/internal/app/store/history"
	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type ensurer interface {
	EnsureIndexes(ctx context.Context) error
}

/*
EnsureAll is called at startup. Each EnsureIndexes is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		name string
		e    ensurer
	}{
		{projectstore.Collection, projectstore.New(db)},
		{"acl", aclstore.New(db)},
		{"users", userstore.New(db)},
		{assetstore.BucketName, assetstore.New(db)},
		{"project_history", historystore.New(db)},
	}

	var problems []string
	for _, s := range steps {
		start := time.Now()
		if err := s.e.EnsureIndexes(ctx); err != nil {
			zap.L().Warn("ensure indexes failed", zap.String("collection", s.name), zap.Error(err))
			problems = append(problems, s.name+": "+err.Error())
			continue
		}
		zap.L().Info("indexes ensured",
			zap.String("collection", s.name),
			zap.String("took", time.Since(start).String()))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
