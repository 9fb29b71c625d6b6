package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"foodassist-backend/internal/prefs"
	"foodassist-backend/internal/prompt"
)

// Prints the assembled inference prompt for a given query so prompt
// changes can be reviewed without running the full pipeline.
func main() {
	query := flag.String("query", "", "User query text (optional)")
	image := flag.String("image", "", "Image description text (optional)")
	hour := flag.Int("hour", -1, "Hour of day 0-23, defaults to now")
	spice := flag.Int("spice", 0, "Spice level 1-5, 0 to omit preferences")
	cuisines := flag.String("cuisines", "", "Comma-separated favorite cuisines")
	recent := flag.String("recent", "", "Comma-separated recent foods")
	flag.Parse()

	now := time.Now()
	if *hour >= 0 && *hour <= 23 {
		now = time.Date(now.Year(), now.Month(), now.Day(), *hour, 0, 0, 0, now.Location())
	}

	in := prompt.Input{
		ImageDescription: *image,
		UserQuery:        *query,
		RecentFoods:      splitList(*recent),
		Now:              now,
	}
	if *spice >= 1 && *spice <= 5 {
		profile := prefs.DefaultProfile()
		profile.SpiceLevel = *spice
		profile.FavoriteCuisines = splitList(*cuisines)
		in.Preferences = &profile
	}

	fmt.Println(prompt.Build(in))
	fmt.Fprintf(os.Stderr, "quick query for this hour: %s\n", prompt.QuickQuery(now))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
