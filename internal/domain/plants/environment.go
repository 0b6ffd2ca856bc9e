package plants

// Location is a coordinate pair supplied by the client's geolocation.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EnvironmentalData is per-request growing context. It is never persisted.
type EnvironmentalData struct {
	Sunlight          string    `json:"sunlight"`
	Watering          string    `json:"watering"`
	Notes             string    `json:"notes"`
	Location          *Location `json:"location,omitempty"`
	OrganicPreference bool      `json:"organicPreference"`
}

// Options offered by the client forms.
var (
	SunlightOptions = []string{"direct-sun", "partial-shade", "full-shade", "indoors-bright", "indoors-low"}
	WateringOptions = []string{"daily", "few-times-week", "weekly", "bi-weekly", "when-dry"}
)
