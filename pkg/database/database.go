package database

import (
	"fmt"
	"limit_backend/internal/config"
	"limit_backend/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
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
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.Question{},
		&model.Module{},
		&model.UserState{},
		&model.GlobalSetting{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认主题设置
	var count int64
	db.Model(&model.GlobalSetting{}).Where("`key` = ?", model.SettingTheme).Count(&count)
	if count == 0 {
		db.Create(&model.GlobalSetting{Key: model.SettingTheme, Value: model.DefaultTheme})
	}

	return db, nil
}
