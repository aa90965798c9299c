package projectsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/system/rss"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedContext locates the feed relative to the request that asked for it.
type FeedContext struct {
	Host string // scheme and host, e.g. https://example.org
	Path string // request path of the feed
}

// GenerateRSS renders the RSS document of published projects.
func (s *Service) GenerateRSS(ctx context.Context, fc FeedContext) ([]byte, error) {
	projects, err := s.deps.Projects.Find(ctx, models.ProjectQuery{PublicOnly: true}, nil)
	if err != nil {
		return nil, fmt.Errorf("list published projects: %w", err)
	}

	seen := map[primitive.ObjectID]bool{}
	authorIDs := []primitive.ObjectID{}
	for _, p := range projects {
		if id := p.Stats.CreatedBy; !id.IsZero() && !seen[id] {
			seen[id] = true
			authorIDs = append(authorIDs, id)
		}
	}
	authors := map[primitive.ObjectID]models.User{}
	if len(authorIDs) > 0 {
		users, err := s.deps.Users.ListByIDs(ctx, authorIDs)
		if err != nil {
			return nil, fmt.Errorf("load feed authors: %w", err)
		}
		for _, u := range users {
			authors[u.ID] = u
		}
	}

	host := strings.TrimRight(fc.Host, "/")
	feed := rss.Feed{
		Title:       "Published Projects",
		Description: "List Of Published Projects",
		FeedURL:     host + fc.Path,
		SiteURL:     host,
		PubDate:     s.now(),
		Items:       make([]rss.Item, 0, len(projects)),
	}
	for _, p := range projects {
		id := p.ID.Hex()
		author := authors[p.Stats.CreatedBy]
		authorID := ""
		if !author.ID.IsZero() {
			authorID = author.ID.Hex()
		}
		feed.Items = append(feed.Items, rss.Item{
			Title:       p.Name,
			Description: p.Description,
			GUID:        id,
			Categories:  p.Tags,
			Date:        p.PublishDate,
			Custom: []rss.Element{
				{Name: "projectPreviewDeeplinkUrl", Value: host + "/projects/" + id + "/prototype"},
				{Name: "thumbnail", Value: p.Thumbnail},
				{Name: "clones", Value: "0"},
				{Name: "authorId", Value: authorID},
				{Name: "authorName", Value: author.Name},
				{Name: "authorAvatar", Value: author.AvatarBin},
			},
		})
	}
	return rss.Render(feed)
}
