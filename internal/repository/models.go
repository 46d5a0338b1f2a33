package repository

// Models lists every GORM model, for AutoMigrate in development and tests.
func Models() []interface{} {
	return []interface{}{
		&BookingModel{},
		&StateRecordModel{},
		&RetiredTokenModel{},
		&SlotCellModel{},
	}
}
