package model

// swagger:model Subject
type Subject struct {
	BaseModel
	Name        string `gorm:"size:100;not null;unique" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:255" json:"icon"`
	Enabled     bool   `gorm:"default:true" json:"enabled"`
}

func (Subject) TableName() string {
	return "subjects"
}

// Topic 科目下的细分主题，题目和视频课程按主题归类
type Topic struct {
	BaseModel
	SubjectID uint   `gorm:"index;not null" json:"subjectId"`
	Name      string `gorm:"size:100;not null" json:"name"`
	Order     int    `gorm:"default:0" json:"order"`
}

func (Topic) TableName() string {
	return "topics"
}
