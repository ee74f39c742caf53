package music

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MinYear is the earliest release year accepted in a year range.
const MinYear = 1960

// DefaultMarket is used when the caller does not name a territory.
const DefaultMarket = "US"

var validate = validator.New(validator.WithRequiredStructEnabled())

// YearRange is an inclusive range of release years.
type YearRange struct {
	Min int `json:"min" validate:"gte=1960"`
	Max int `json:"max" validate:"gtefield=Min"`
}

// Filters captures the user's intent for a single discovery call. Every
// field is optional; Market defaults to "US".
type Filters struct {
	Genre    string     `json:"genre,omitempty" validate:"omitempty,max=64"`
	Years    *YearRange `json:"yearRange,omitempty"`
	Artist   string     `json:"artist,omitempty" validate:"omitempty,max=128"`
	Market   string     `json:"market,omitempty" validate:"omitempty,len=2,alpha"`
	Language string     `json:"language,omitempty" validate:"omitempty,min=2,max=3,alpha"`

	// Audio feature targets on a 0..100 scale.
	Energy           *int `json:"energy,omitempty" validate:"omitempty,min=0,max=100"`
	Danceability     *int `json:"danceability,omitempty" validate:"omitempty,min=0,max=100"`
	Valence          *int `json:"valence,omitempty" validate:"omitempty,min=0,max=100"`
	Acousticness     *int `json:"acousticness,omitempty" validate:"omitempty,min=0,max=100"`
	Instrumentalness *int `json:"instrumentalness,omitempty" validate:"omitempty,min=0,max=100"`
	Popularity       *int `json:"popularity,omitempty" validate:"omitempty,min=0,max=100"`
}

// Normalize returns a copy with the market upper-cased and defaulted and the
// language and genre lower-cased.
func (f Filters) Normalize() Filters {
	f.Market = strings.ToUpper(strings.TrimSpace(f.Market))
	if f.Market == "" {
		f.Market = DefaultMarket
	}
	f.Language = strings.ToLower(strings.TrimSpace(f.Language))
	f.Genre = strings.ToLower(strings.TrimSpace(f.Genre))
	f.Artist = strings.TrimSpace(f.Artist)
	return f
}

// Validate checks field ranges. The returned error matches ErrInvalidFilters.
func (f Filters) Validate() error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidFilters, strings.Join(parts, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidFilters, err)
	}
	if f.Years != nil && f.Years.Max > time.Now().Year() {
		return fmt.Errorf("%w: yearRange.max %d is in the future", ErrInvalidFilters, f.Years.Max)
	}
	return nil
}

// AudioTargets returns the audio feature targets that are set, keyed by
// catalog feature name.
func (f Filters) AudioTargets() map[string]int {
	out := make(map[string]int)
	add := func(name string, v *int) {
		if v != nil {
			out[name] = *v
		}
	}
	add("energy", f.Energy)
	add("danceability", f.Danceability)
	add("valence", f.Valence)
	add("acousticness", f.Acousticness)
	add("instrumentalness", f.Instrumentalness)
	return out
}

// InYears reports whether t falls inside the year range. Tracks with an
// unknown release year are rejected when a range is set.
func (f Filters) InYears(t Track) bool {
	if f.Years == nil {
		return true
	}
	y := t.ReleaseYear()
	return y != 0 && y >= f.Years.Min && y <= f.Years.Max
}
