package models

// Announcement is the published, signed tally. Only one row is ever kept.
type Announcement struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	Results     map[string]int `gorm:"serializer:json;type:text" json:"results"`
	AnnouncedAt string         `gorm:"size:40;not null" json:"announcedAt"`
	Signature   string         `gorm:"size:64;not null" json:"signature"`
}

// SignedPart returns the payload covered by the announcement signature.
func (a *Announcement) SignedPart() AnnouncementPayload {
	return AnnouncementPayload{Results: a.Results, AnnouncedAt: a.AnnouncedAt}
}

// AnnouncementPayload is {tally, timestamp}.
type AnnouncementPayload struct {
	Results     map[string]int `json:"results"`
	AnnouncedAt string         `json:"announcedAt"`
}
