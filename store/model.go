package store

// OperationRecord is one finished operation. Times are unix milliseconds.
type OperationRecord struct {
	Id         string `gorm:"primaryKey;type:varchar(36);not null"`
	SessionId  string `gorm:"type:varchar(36);index"`
	Operation  string `gorm:"type:varchar(32);not null;index"`
	Signer     string `gorm:"type:varchar(48)"`
	Args       string `gorm:"type:text"`
	Outcome    string `gorm:"type:varchar(16);not null"`
	Signature  string `gorm:"type:varchar(120)"`
	ErrorKind  string `gorm:"type:varchar(32)"`
	Message    string `gorm:"type:text"`
	StartTime  int64  `gorm:"type:bigint(20);not null;index"`
	FinishTime int64  `gorm:"type:bigint(20);not null"`
}
