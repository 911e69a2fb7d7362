package database

import (
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/logger"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Info),
	})

	if err != nil {
		return nil, err
	}

	logger.Log.Info("database connection established",
		zap.String("host", cfg.Host), zap.String("db", cfg.DBName))

	err = db.AutoMigrate(
		&model.User{},
		&model.Subject{},
		&model.Topic{},
		&model.Question{},
		&model.Choice{},
		&model.QuizAttempt{},
		&model.AttemptQuestion{},
		&model.VideoLesson{},
	)

	if err != nil {
		return nil, err
	}

	logger.Log.Info("database migration completed")

	// 默认科目（空库时插入，方便前端联调）
	var count int64
	db.Model(&model.Subject{}).Count(&count)
	if count == 0 {
		defaultSubjects := []model.Subject{
			{Name: "数学", Description: "高中数学真题与模拟题", Enabled: true},
			{Name: "物理", Description: "力学、电磁学专项训练", Enabled: true},
			{Name: "English", Description: "Reading and grammar drills", Enabled: true},
		}
		for _, s := range defaultSubjects {
			db.Create(&s)
		}
	}

	return db, nil
}
