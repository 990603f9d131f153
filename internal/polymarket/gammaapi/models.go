package gammaapi

// Market represents a Gamma API market
type Market struct {
	ID          string     `json:"id"`
	ConditionID string     `json:"conditionId"`
	Slug        string     `json:"slug"`
	Question    string     `json:"question"`
	Icon        string     `json:"icon"`
	Image       string     `json:"image"`
	EndDate     string     `json:"endDate"`
	Category    string     `json:"category"`
	Active      bool       `json:"active"`
	Closed      bool       `json:"closed"`
	Events      []EventRef `json:"events"`
}

// EventRef is the parent event embedded in a market record
type EventRef struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// EventSlug returns the slug of the parent event, if any
func (m *Market) EventSlug() string {
	if len(m.Events) == 0 {
		return ""
	}
	return m.Events[0].Slug
}

// IconURL prefers the icon and falls back to the image
func (m *Market) IconURL() string {
	if m.Icon != "" {
		return m.Icon
	}
	return m.Image
}
