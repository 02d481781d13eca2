// Package loader reads race rows and reference tables from CSV and JSON.
package loader

import "strings"

// Accepted spellings per field. Source exports name the tournament column
// RawLength.
var (
	idKeys         = []string{"id", "ID", "Id"}
	uniqueNameKeys = []string{"unique_name", "uniqueName", "UniqueName", "uma", "Uma"}
	trainerKeys    = []string{"trainer", "Trainer"}
	tournamentKeys = []string{"tournament_id", "tournamentId", "TournamentID", "Tournament", "tournament", "RawLength", "rawLength"}
	winsKeys       = []string{"wins", "Wins"}
	winShareKeys   = []string{"win_share", "winShare", "WinShare"}
)

// findColumn returns the first header matching one of keys, ignoring case and
// surrounding whitespace.
func findColumn(headers []string, keys []string) (string, bool) {
	for _, k := range keys {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), k) {
				return h, true
			}
		}
	}
	return "", false
}
