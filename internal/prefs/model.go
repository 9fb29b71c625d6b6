package prefs

import "time"

// Spice levels understood by the profile, mildest to hottest.
const (
	SpiceNone     = 1
	SpiceMild     = 2
	SpiceMedium   = 3
	SpiceHot      = 4
	SpiceExtraHot = 5
)

// Portion sizes understood by the profile.
const (
	PortionSmall  = "small"
	PortionMedium = "medium"
	PortionLarge  = "large"
)

// Profile is the singleton record of a user's food preferences.
// Exactly one logical row exists at a time; saves are last-write-wins.
type Profile struct {
	FavoriteCuisines    []string  `json:"favoriteCuisines"`
	DislikedFoods       []string  `json:"dislikedFoods"`
	DietaryRestrictions []string  `json:"dietaryRestrictions"`
	SpiceLevel          int       `json:"spiceLevel"`
	PortionSize         string    `json:"portionSize"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// DefaultProfile returns the profile created on first use.
func DefaultProfile() Profile {
	return Profile{
		SpiceLevel:  SpiceMild,
		PortionSize: PortionMedium,
		UpdatedAt:   time.Now().UTC(),
	}
}

// AddFavoriteCuisine returns a copy with the cuisine appended to
// FavoriteCuisines. Insertion is idempotent and preserves order.
func (p Profile) AddFavoriteCuisine(cuisine string) Profile {
	for _, existing := range p.FavoriteCuisines {
		if existing == cuisine {
			return p
		}
	}
	out := p
	out.FavoriteCuisines = append(append([]string{}, p.FavoriteCuisines...), cuisine)
	return out
}

// SpiceLevelLabel returns the prompt label for the profile's spice level.
// Out-of-range values fall back to 适中.
func (p Profile) SpiceLevelLabel() string {
	return SpiceLevelLabel(p.SpiceLevel)
}

// SpiceLevelLabel maps a spice level 1..5 to its label.
func SpiceLevelLabel(level int) string {
	switch level {
	case SpiceNone:
		return "不辣"
	case SpiceMild:
		return "微辣"
	case SpiceMedium:
		return "中辣"
	case SpiceHot:
		return "较辣"
	case SpiceExtraHot:
		return "特辣"
	default:
		return "适中"
	}
}
