package models

import "time"

// HistoryDateLayout is how history timestamps are rendered to clients.
const HistoryDateLayout = "2006-01-02 15:04"

// HistoryRecord is the stored result of one analysis, owned by one user.
// ImagePath is relative to the public static root.
type HistoryRecord struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	ImagePath string    `json:"image_path"`
	Analysis  string    `json:"analysis"`
	CreatedAt time.Time `json:"-"`
}

// HistoryItem is the JSON shape returned by the history API.
type HistoryItem struct {
	ID        int    `json:"id"`
	ImagePath string `json:"image_path"`
	Analysis  string `json:"analysis"`
	Date      string `json:"date"`
}

// Item converts a record to its API representation.
func (h HistoryRecord) Item() HistoryItem {
	return HistoryItem{
		ID:        h.ID,
		ImagePath: h.ImagePath,
		Analysis:  h.Analysis,
		Date:      h.CreatedAt.Format(HistoryDateLayout),
	}
}
