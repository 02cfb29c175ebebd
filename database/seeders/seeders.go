package seeders

import (
	"fmt"
	"log"

	"studioops_go/models"

	"gorm.io/gorm"
)

// Fixed ids keep re-seeding and local fixtures predictable.
const (
	HathaClassTypeID   = "8f0c1c6e-2b1a-4d0e-9c55-000000000001"
	VinyasaClassTypeID = "8f0c1c6e-2b1a-4d0e-9c55-000000000002"
	StarterPackageID   = "8f0c1c6e-2b1a-4d0e-9c55-000000000101"
	IntensivePackageID = "8f0c1c6e-2b1a-4d0e-9c55-000000000102"
	AshaInstructorID   = "8f0c1c6e-2b1a-4d0e-9c55-000000000201"
	RaviInstructorID   = "8f0c1c6e-2b1a-4d0e-9c55-000000000202"
	AdminUserID        = "8f0c1c6e-2b1a-4d0e-9c55-000000000301"
)

// SeedAll runs all seeders
func SeedAll(db *gorm.DB) error {
	log.Println("Starting database seeding...")

	for _, step := range []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"class types", SeedClassTypes},
		{"packages", SeedPackages},
		{"profiles", SeedProfiles},
		{"templates", SeedTemplates},
	} {
		if err := step.fn(db); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

// seedOnce inserts rows only when the model's table is empty.
func seedOnce(db *gorm.DB, model interface{}, rows interface{}, label string) error {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Printf("%s already seeded, skipping...", label)
		return nil
	}
	if err := db.Create(rows).Error; err != nil {
		return err
	}
	log.Printf("Seeded %s", label)
	return nil
}

func withID(id string) models.BaseModel { return models.BaseModel{ID: id} }

func SeedClassTypes(db *gorm.DB) error {
	rows := []models.ClassType{
		{BaseModel: withID(HathaClassTypeID), Name: "Hatha Yoga", DurationMinutes: 60, IsActive: true},
		{BaseModel: withID(VinyasaClassTypeID), Name: "Vinyasa Flow", DurationMinutes: 75, IsActive: true},
	}
	return seedOnce(db, &models.ClassType{}, &rows, "Class types")
}

func SeedPackages(db *gorm.DB) error {
	rows := []models.ClassPackage{
		{BaseModel: withID(StarterPackageID), Name: "Starter 8", ClassCount: 8, ValidityDays: 45, Price: 4000, CourseType: "regular", IsActive: true},
		{BaseModel: withID(IntensivePackageID), Name: "Intensive 10", ClassCount: 10, ValidityDays: 60, Price: 6000, CourseType: "crash", IsActive: true},
	}
	return seedOnce(db, &models.ClassPackage{}, &rows, "Packages")
}

func SeedProfiles(db *gorm.DB) error {
	profiles := []models.Profile{
		{BaseModel: withID(AshaInstructorID), FullName: "Asha Menon", Email: "asha@studio.local"},
		{BaseModel: withID(RaviInstructorID), FullName: "Ravi Kumar", Email: "ravi@studio.local"},
		{BaseModel: withID(AdminUserID), FullName: "Studio Admin", Email: "admin@studio.local"},
	}
	if err := seedOnce(db, &models.Profile{}, &profiles, "Profiles"); err != nil {
		return err
	}
	roles := []models.UserRole{
		{UserID: AshaInstructorID, Role: "instructor"},
		{UserID: RaviInstructorID, Role: "instructor"},
		{UserID: AdminUserID, Role: "admin"},
	}
	return seedOnce(db, &models.UserRole{}, &roles, "User roles")
}

func SeedTemplates(db *gorm.DB) error {
	rows := []models.WeeklyScheduleTemplate{
		{ClassTypeID: HathaClassTypeID, InstructorID: AshaInstructorID, DayOfWeek: 2, StartTime: "07:30", DurationMinutes: 45, IsActive: true},
		{ClassTypeID: VinyasaClassTypeID, InstructorID: RaviInstructorID, DayOfWeek: 4, StartTime: "18:00", DurationMinutes: 75, IsActive: true},
	}
	return seedOnce(db, &models.WeeklyScheduleTemplate{}, &rows, "Weekly templates")
}
