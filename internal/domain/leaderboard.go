package domain

import (
	"math"
	"sort"
)

// Rank orders non-instructor participants by score desc, then by who reached the
// score first, then join order. Percent is relative to the maximum attainable score.
func Rank(participants []Participant, instructorName string, pointsPerAnswer, totalQuestions int) []LeaderboardEntry {
	players := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if p.DisplayName == instructorName {
			continue
		}
		players = append(players, p)
	}

	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		if !players[i].LastUpdated.Equal(players[j].LastUpdated) {
			return players[i].LastUpdated.Before(players[j].LastUpdated)
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	maxScore := pointsPerAnswer * totalQuestions
	entries := make([]LeaderboardEntry, 0, len(players))
	for i, p := range players {
		percent := 0
		if maxScore > 0 {
			percent = int(math.Round(float64(p.Score) / float64(maxScore) * 100))
		}
		entries = append(entries, LeaderboardEntry{
			Rank:         i + 1,
			ConnectionID: p.ConnectionID,
			DisplayName:  p.DisplayName,
			Score:        p.Score,
			Percent:      percent,
		})
	}
	return entries
}
