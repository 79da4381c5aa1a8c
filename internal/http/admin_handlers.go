package http

import (
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/open-builders/reward-rush-bot/internal/common/errors"
	dg "github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	mw "github.com/open-builders/reward-rush-bot/internal/http/middleware"
	rplatform "github.com/open-builders/reward-rush-bot/internal/platform/redis"
	"github.com/open-builders/reward-rush-bot/internal/service/admin"
	"github.com/open-builders/reward-rush-bot/internal/service/scheduler"
)

// AdminAPI is what the admin endpoints need from the admin service.
type AdminAPI interface {
	IsAdmin(id int64) bool
	Stats() (admin.Stats, error)
	Backup() ([]byte, error)
}

// GiveawayLister lists running giveaways.
type GiveawayLister interface {
	Active() ([]dg.Giveaway, error)
}

// TimerLister lists armed giveaway timers.
type TimerLister interface {
	Pending() []scheduler.Deadline
}

// AdminHandlers serves read-only admin views.
type AdminHandlers struct {
	admin     AdminAPI
	giveaways GiveawayLister
	timers    TimerLister
	redis     *rplatform.Client
	cacheTTL  time.Duration
	now       func() time.Time
}

func NewAdminHandlers(svc AdminAPI, giveaways GiveawayLister, timers TimerLister, rdb *rplatform.Client, cacheTTL time.Duration) *AdminHandlers {
	return &AdminHandlers{admin: svc, giveaways: giveaways, timers: timers, redis: rdb, cacheTTL: cacheTTL, now: time.Now}
}

func (h *AdminHandlers) Register(r gin.IRouter) {
	r.GET("/stats", mw.RedisCache(h.redis, h.cacheTTL), h.stats)
	r.GET("/backup", h.backup)
	r.GET("/giveaways", h.activeGiveaways)
	r.GET("/timers", h.pendingTimers)
}

func (h *AdminHandlers) stats(c *gin.Context) {
	st, err := h.admin.Stats()
	if err != nil {
		mw.Abort(c, apperrors.NewStorageError("load stats", err))
		return
	}
	c.JSON(nethttp.StatusOK, st)
}

func (h *AdminHandlers) backup(c *gin.Context) {
	data, err := h.admin.Backup()
	if err != nil {
		mw.Abort(c, apperrors.NewStorageError("snapshot", err))
		return
	}
	name := fmt.Sprintf("backup-%s.json", h.now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(nethttp.StatusOK, "application/json", data)
}

type giveawayView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"display_name"`
	Participants int       `json:"participants"`
	PoolSize     int       `json:"pool_size"`
	EndsAt       time.Time `json:"ends_at"`
	Remaining    string    `json:"remaining"`
}

func (h *AdminHandlers) activeGiveaways(c *gin.Context) {
	active, err := h.giveaways.Active()
	if err != nil {
		mw.Abort(c, apperrors.NewStorageError("list giveaways", err))
		return
	}
	now := h.now()
	out := make([]giveawayView, 0, len(active))
	for i := range active {
		g := &active[i]
		out = append(out, giveawayView{
			ID:           g.ID,
			Name:         g.Name,
			DisplayName:  dg.DisplayName(g.Name),
			Participants: len(g.Participants),
			PoolSize:     len(g.RewardPool),
			EndsAt:       g.EndsAt(),
			Remaining:    dg.FormatRemaining(g.Remaining(now)),
		})
	}
	c.JSON(nethttp.StatusOK, gin.H{"giveaways": out})
}

type timerView struct {
	GiveawayID string    `json:"giveaway_id"`
	Kind       string    `json:"kind"`
	At         time.Time `json:"at"`
	In         string    `json:"in"`
}

func (h *AdminHandlers) pendingTimers(c *gin.Context) {
	now := h.now()
	pending := h.timers.Pending()
	out := make([]timerView, 0, len(pending))
	for _, d := range pending {
		out = append(out, timerView{
			GiveawayID: d.Key,
			Kind:       string(d.Kind),
			At:         d.At,
			In:         dg.FormatRemaining(d.At.Sub(now)),
		})
	}
	c.JSON(nethttp.StatusOK, gin.H{"timers": out})
}
