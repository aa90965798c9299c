package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type mongoPinger struct{ c *mongo.Client }

func (p mongoPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx, readpref.Primary()) }

// MongoPinger pings the primary of client.
func MongoPinger(client *mongo.Client) Pinger { return mongoPinger{client} }

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

// RedisPinger pings client. A nil client yields a nil Pinger.
func RedisPinger(client *redis.Client) Pinger {
	if client == nil {
		return nil
	}
	return redisPinger{client}
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB    Pinger
	Redis Pinger // optional
	Log   *zap.Logger
}

// NewHandler constructs a health Handler. rdb may be nil.
func NewHandler(db, rdb Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:    db,
		Redis: rdb,
		Log:   logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "redis":"connected" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
//
// A Redis failure degrades the status but keeps 200, since only the
// user-event worker depends on it.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Redis != nil {
		resp.Redis = "connected"
		if err := h.Redis.Ping(ctx); err != nil {
			h.Log.Warn("health-check: redis ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Redis = "disconnected"
			resp.Error = err.Error()
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
