package model

// swagger:model Question
type Question struct {
	BaseModel
	SubjectID     uint     `gorm:"index;not null" json:"subjectId"`
	TopicID       uint     `gorm:"index" json:"topicId"`
	Statement     string   `gorm:"type:text;not null" json:"statement"`
	Explanation   string   `gorm:"type:text" json:"explanation"`
	VideoLessonID *uint    `gorm:"index" json:"videoLessonId,omitempty"`
	Enabled       bool     `gorm:"default:true" json:"enabled"`
	Choices       []Choice `gorm:"foreignKey:QuestionID" json:"choices"`
}

func (Question) TableName() string {
	return "questions"
}

// Choice 题目的备选项，每题有且仅有一个 IsCorrect
type Choice struct {
	BaseModel
	QuestionID  uint   `gorm:"index;not null" json:"questionId"`
	Label       string `gorm:"size:10;not null" json:"label"`
	Description string `gorm:"type:text;not null" json:"description"`
	IsCorrect   bool   `gorm:"default:false" json:"-"`
}

func (Choice) TableName() string {
	return "choices"
}
