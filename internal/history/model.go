package history

import "time"

// Record is one log entry of a past accepted recommendation. All fields
// except Liked are immutable once created.
type Record struct {
	ID        string    `json:"id"`
	FoodName  string    `json:"foodName"`
	Cuisine   string    `json:"cuisine"`
	Timestamp time.Time `json:"timestamp"`
	ImagePath *string   `json:"imagePath,omitempty"`
	Liked     *bool     `json:"liked,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}
