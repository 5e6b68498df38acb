// Package views derives every read-side projection of the marketplace from
// the canonical collections. Views are recomputed, never independently
// mutated: a stale view is fixed by rebuilding it, not by patching it.
package views

import (
	"sort"
	"time"

	"bottlebank/climate"
	"bottlebank/geo"
	"bottlebank/models"
)

// LeaderboardSize caps the public leaderboard.
const LeaderboardSize = 10

// AvailableForClaim filters to claimable, unexpired jobs posted by someone
// other than the viewer, annotates each with its distance from the viewer
// and orders nearest first. A host never claims their own post.
func AvailableForClaim(jobs []models.Job, viewerID string, viewer models.GeoPoint, now time.Time) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status.IsClaimable() && !j.Expired(now) && j.HostID != viewerID {
			out = append(out, j)
		}
	}
	geo.AnnotateDistances(out, viewer)
	geo.SortByDistance(out)
	return out
}

// MyClaimedJobs lists the jobs a collector is actively working.
func MyClaimedJobs(jobs []models.Job, collectorID string) []models.Job {
	var out []models.Job
	for _, j := range jobs {
		if j.ClaimedByID == collectorID && j.Status.HasActiveClaim() {
			out = append(out, j)
		}
	}
	return out
}

// MyPostedJobs lists everything a host has posted, newest first.
func MyPostedJobs(jobs []models.Job, hostID string) []models.Job {
	var out []models.Job
	for _, j := range jobs {
		if j.HostID == hostID {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

// Leaderboard ranks collectors by lifetime bottles, ties kept in input
// order, trimmed to the top ten.
func Leaderboard(users []models.UserProfile) []models.UserProfile {
	var out []models.UserProfile
	for _, u := range users {
		if u.Role == models.RoleCollector {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].TotalBottles > out[k].TotalBottles
	})
	if len(out) > LeaderboardSize {
		out = out[:LeaderboardSize]
	}
	return out
}

// ActivityTimeline merges a collector's pickups and wallet credits into a
// single feed, newest first.
func ActivityTimeline(pickups []models.PickupRecord, txns []models.WalletTransaction) []models.ActivityEvent {
	out := make([]models.ActivityEvent, 0, len(pickups)+len(txns))
	for _, p := range pickups {
		out = append(out, models.ActivityEvent{
			Kind:        models.ActivityPickup,
			Title:       p.JobTitle,
			BottleCount: p.BottleCount,
			Date:        p.CompletedAt,
			SourceID:    p.ID,
		})
	}
	for _, t := range txns {
		out = append(out, models.ActivityEvent{
			Kind:        models.ActivityWallet,
			Title:       t.Title,
			Amount:      t.Amount,
			BottleCount: t.BottleCount,
			Date:        t.Date,
			SourceID:    t.ID,
		})
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Date.After(out[k].Date)
	})
	return out
}

// PlatformStats folds the whole pickup history into the public counters.
func PlatformStats(users []models.UserProfile, pickups []models.PickupRecord) models.PlatformStats {
	stats := models.PlatformStats{
		TotalActiveUsers:   len(users),
		TotalJobsCompleted: len(pickups),
	}
	for _, p := range pickups {
		stats.TotalBottles += p.BottleCount
	}
	stats.TotalCO2Kg = climate.MustCO2Saved(stats.TotalBottles)
	return stats
}

// CityStatsToday groups today's pickups by city. Cities appear in first-seen
// order; pickups without a city are skipped.
func CityStatsToday(pickups []models.PickupRecord, now time.Time) []models.CityStats {
	y, m, d := now.UTC().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	index := map[string]int{}
	var out []models.CityStats
	for _, p := range pickups {
		if p.City == "" || p.CompletedAt.Before(dayStart) || p.CompletedAt.After(now) {
			continue
		}
		i, ok := index[p.City]
		if !ok {
			i = len(out)
			index[p.City] = i
			out = append(out, models.CityStats{City: p.City})
		}
		out[i].BottlesToday += p.BottleCount
		out[i].PickupsToday++
	}
	for i := range out {
		out[i].CO2TodayKg = climate.MustCO2Saved(out[i].BottlesToday)
	}
	return out
}
