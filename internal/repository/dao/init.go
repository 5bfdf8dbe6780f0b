package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Event{},
		&GalleryItem{},
		&MerchandiseItem{},
		&Registration{},
		&Reconciliation{},
	)
}

// Page limits a listing. A zero Limit returns every row.
type Page struct {
	Offset int
	Limit  int
}

func paginate(p Page) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Limit <= 0 {
			return db
		}
		return db.Offset(p.Offset).Limit(p.Limit)
	}
}

func dropAllTables(db *gorm.DB) error {
	db.Exec("SET CONSTRAINTS ALL DEFERRED;")

	var tableNames []string
	if err := db.Table("information_schema.tables").
		Where("table_schema = ?", "public").
		Pluck("table_name", &tableNames).Error; err != nil {
		return err
	}

	for _, tableName := range tableNames {
		if err := db.Exec("DROP TABLE IF EXISTS " + tableName + " CASCADE").Error; err != nil {
			return err
		}
	}

	db.Exec("SET CONSTRAINTS ALL IMMEDIATE;")

	return nil
}
