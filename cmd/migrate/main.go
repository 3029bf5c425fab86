package main

import (
	"fmt"
	"log"
	"os"

	"pulsecrm/internal/config"
	"pulsecrm/internal/models"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	err = db.AutoMigrate(
		&models.User{},
		&models.Contact{},
		&models.Pipeline{},
		&models.Stage{},
		&models.Deal{},
		&models.CustomField{},
		&models.EmailMessage{},
		&models.Automation{},
		&models.AutomationEnrollment{},
		&models.AutomationLog{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	log.Println("Creating additional indexes...")

	if err := models.EnsureAutomationIndexes(db); err != nil {
		log.Fatalf("Failed to create automation indexes: %v", err)
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_contacts_user_email ON contacts(user_id, email)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_deals_user_stage ON deals(user_id, stage_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_deals_user_status ON deals(user_id, status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_automation_logs_user_created ON automation_logs(user_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_enrollments_automation_status ON automation_enrollments(automation_id, status)")

	log.Println("Additional indexes created successfully!")

	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		log.Println("Seeding default data...")
		seedDefaultData(db)
		log.Println("Default data seeded successfully!")
	}

	log.Println("Migration process completed!")
}

func seedDefaultData(db *gorm.DB) {
	var adminUser models.User
	if err := db.Where("email = ?", "admin@pulsecrm.local").First(&adminUser).Error; err != nil {
		adminUser = models.User{
			Email: "admin@pulsecrm.local",
			Name:  "Administrator",
		}
		db.Create(&adminUser)
		log.Println("Created default admin user")
	}

	var pipeline models.Pipeline
	if err := db.Where("user_id = ? AND name = ?", adminUser.ID, "Sales Pipeline").First(&pipeline).Error; err != nil {
		pipeline = models.Pipeline{
			UserID: adminUser.ID,
			Name:   "Sales Pipeline",
		}
		db.Create(&pipeline)
		for i, name := range []string{"Lead", "Qualified", "Proposal", "Negotiation", "Closed"} {
			db.Create(&models.Stage{
				PipelineID: pipeline.ID,
				Name:       name,
				Position:   i,
			})
		}
		log.Println("Created default sales pipeline")
	}
}
