package handlers

import (
	"net/http"
	"strconv"

	"bottlebank/climate"
	userRepo "bottlebank/database/repository/user"
	"bottlebank/middleware"
	"bottlebank/models"
	"bottlebank/services/views"
	"bottlebank/utils"

	"github.com/gin-gonic/gin"
)

// FeedHandler serves the derived read-side views.
type FeedHandler struct {
	Views *views.Builder
	Users userRepo.UserRepository
}

func NewFeedHandler(v *views.Builder, users userRepo.UserRepository) *FeedHandler {
	return &FeedHandler{Views: v, Users: users}
}

// AvailableJobsHandler lists claimable jobs nearest the caller. The viewer
// position comes from lat/lon query params; without them every job sorts
// by the unknown-distance sentinel.
func (h *FeedHandler) AvailableJobsHandler(c *gin.Context) {
	var viewer models.GeoPoint
	if lat, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
		viewer.Latitude = lat
	}
	if lon, err := strconv.ParseFloat(c.Query("lon"), 64); err == nil {
		viewer.Longitude = lon
	}

	jobs, err := h.Views.Available(c.Request.Context(), middleware.CallerID(c), viewer)
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not load jobs", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// MyClaimedHandler lists the caller's active pickups.
func (h *FeedHandler) MyClaimedHandler(c *gin.Context) {
	jobs, err := h.Views.Claimed(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not load jobs", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// MyPostedHandler lists the caller's posts, newest first.
func (h *FeedHandler) MyPostedHandler(c *gin.Context) {
	jobs, err := h.Views.Posted(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not load jobs", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// LeaderboardHandler returns the top collectors by lifetime bottles.
func (h *FeedHandler) LeaderboardHandler(c *gin.Context) {
	top, err := h.Views.TopCollectors(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not load leaderboard", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}

// TimelineHandler returns the caller's merged activity feed.
func (h *FeedHandler) TimelineHandler(c *gin.Context) {
	events, err := h.Views.Timeline(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not load activity", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": events})
}

// StatsHandler returns platform-wide counters.
func (h *FeedHandler) StatsHandler(c *gin.Context) {
	stats, err := h.Views.Stats(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not load stats", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CityStatsHandler returns today's per-city aggregates.
func (h *FeedHandler) CityStatsHandler(c *gin.Context) {
	stats, err := h.Views.CityStats(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "could not load city stats", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": stats})
}

// ImpactHandler translates the caller's lifetime bottles into
// environmental equivalents.
func (h *FeedHandler) ImpactHandler(c *gin.Context) {
	user, err := h.Users.GetByID(c.Request.Context(), middleware.CallerID(c))
	if err != nil || user == nil {
		utils.JSONError(c, http.StatusNotFound, "profile not found", "Sign in again.")
		return
	}

	co2, err := climate.CO2Saved(user.TotalBottles)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not compute impact", "")
		return
	}
	water, _ := climate.WaterSaved(user.TotalBottles)
	waste, _ := climate.WasteReduced(user.TotalBottles)

	c.JSON(http.StatusOK, gin.H{
		"totalBottles":  user.TotalBottles,
		"co2SavedKg":    co2,
		"waterSavedGal": water,
		"wasteKg":       waste,
		"trees":         climate.TreesEquivalent(co2),
		"carDays":       climate.CarDaysEquivalent(co2),
		"homeDays":      climate.HomeDaysEquivalent(co2),
	})
}
