package store

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMysql  = "mysql"
	DriverSqlite = "sqlite"
)

func MysqlDSN(url, scheme, user, passwd string) string {
	return user + ":" + passwd + "@tcp(" + url + ")/" + scheme + "?charset=utf8mb4&parseTime=true"
}

// Open connects with the named driver. Sqlite is held to one connection so an
// in-memory database is shared by every caller.
func Open(driver, dsn string) (*gorm.DB, error) {
	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	var dialector gorm.Dialector
	switch driver {
	case DriverMysql:
		dialector = mysql.Open(dsn)
	case DriverSqlite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}
	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, err
	}
	if driver == DriverSqlite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

type Dao struct {
	db *gorm.DB
}

func NewDao(db *gorm.DB) (*Dao, error) {
	if err := db.AutoMigrate(&OperationRecord{}); err != nil {
		return nil, err
	}
	return &Dao{db: db}, nil
}

func (dao *Dao) SaveOperation(rec *OperationRecord) error {
	return dao.db.Create(rec).Error
}

func (dao *Dao) SelectOperation(id string) (*OperationRecord, error) {
	rec := &OperationRecord{}
	res := dao.db.Where("id = ?", id).First(rec)
	return rec, res.Error
}

// SelectRecent returns the newest records first. An empty operation matches all.
func (dao *Dao) SelectRecent(operation string, limit int) ([]*OperationRecord, error) {
	records := make([]*OperationRecord, 0)
	query := dao.db.Order("start_time desc").Limit(limit)
	if operation != "" {
		query = query.Where("operation = ?", operation)
	}
	res := query.Find(&records)
	return records, res.Error
}
