package models

// DocumentSequenceModel holds the last issued sequence of a document period
type DocumentSequenceModel struct {
	Period    string `gorm:"type:varchar(40);primary_key"`
	LastValue int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
