package model

// swagger:model VideoLesson
type VideoLesson struct {
	BaseModel
	SubjectID       uint    `gorm:"index;not null" json:"subjectId"`
	TopicID         uint    `gorm:"index" json:"topicId"`
	Title           string  `gorm:"size:255;not null" json:"title"`
	Description     string  `gorm:"type:text" json:"description"`
	URL             string  `gorm:"size:512;not null" json:"url"`
	ThumbnailURL    string  `gorm:"size:512" json:"thumbnailUrl"`
	DurationSeconds float64 `gorm:"default:0" json:"durationSeconds"`
	Views           int64   `gorm:"default:0" json:"views"`
	Published       bool    `gorm:"default:false" json:"published"`
}

func (VideoLesson) TableName() string {
	return "video_lessons"
}
