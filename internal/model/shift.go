package model

// Shift is a reference-data row describing a working shift. Times are
// HH:MM wall-clock strings; end before start means the shift spans midnight.
type Shift struct {
	ID        int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"size:64;not null" json:"name"`
	StartTime string `gorm:"size:5;not null" json:"startTime"`
	EndTime   string `gorm:"size:5;not null" json:"endTime"`
	IsActive  bool   `gorm:"not null;default:true" json:"isActive"`
}

// Covers reports whether the HH:MM time hhmm falls inside the shift,
// handling overnight shifts such as 22:00-06:00.
func (s Shift) Covers(hhmm string) bool {
	if s.StartTime > s.EndTime {
		return hhmm >= s.StartTime || hhmm < s.EndTime
	}
	return hhmm >= s.StartTime && hhmm < s.EndTime
}
