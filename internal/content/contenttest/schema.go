// Package contenttest creates the portfolio content schema in an in-memory
// SQLite database for tests.
package contenttest

import (
	"fmt"
	"sync/atomic"
	"testing"

	dbutil "github.com/folioworks/portfolio-api/internal/db"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// parentColumns are shared by every parent table.
const parentColumns = `"id" INTEGER PRIMARY KEY AUTOINCREMENT,
	"languageCode" TEXT NOT NULL DEFAULT 'en',
	"isActive" BOOLEAN NOT NULL DEFAULT 1`

// Schema is the DDL for every content table. Columns are camelCase as in the
// production database.
var Schema = []string{
	`CREATE TABLE "home" (` + parentColumns + `, "title" TEXT, "name" TEXT, "headline" TEXT, "bio" TEXT, "imageUrl" TEXT, "resumeUrl" TEXT)`,
	`CREATE TABLE "home_organizations" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "homeId" INTEGER NOT NULL REFERENCES "home"("id") ON DELETE CASCADE,
		"name" TEXT, "role" TEXT, "url" TEXT, "imageUrl" TEXT, "sortOrder" INTEGER DEFAULT 0)`,

	`CREATE TABLE "about" (` + parentColumns + `, "title" TEXT, "description" TEXT, "imageUrl" TEXT)`,
	`CREATE TABLE "about_skills" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "aboutId" INTEGER NOT NULL REFERENCES "about"("id") ON DELETE CASCADE,
		"skill" TEXT, "category" TEXT, "sortOrder" INTEGER DEFAULT 0)`,
	`CREATE TABLE "about_interests" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "aboutId" INTEGER NOT NULL REFERENCES "about"("id") ON DELETE CASCADE,
		"interest" TEXT, "sortOrder" INTEGER DEFAULT 0)`,

	`CREATE TABLE "awards" (` + parentColumns + `, "title" TEXT, "description" TEXT)`,
	`CREATE TABLE "award_items" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "awardId" INTEGER NOT NULL REFERENCES "awards"("id") ON DELETE CASCADE,
		"title" TEXT, "issuer" TEXT, "date" TEXT, "description" TEXT, "awardImageUrl" TEXT, "sortOrder" INTEGER DEFAULT 0)`,

	`CREATE TABLE "education" (` + parentColumns + `, "title" TEXT, "description" TEXT)`,
	`CREATE TABLE "education_items" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "educationId" INTEGER NOT NULL REFERENCES "education"("id") ON DELETE CASCADE,
		"school" TEXT, "degree" TEXT, "field" TEXT, "location" TEXT, "startDate" TEXT, "endDate" TEXT, "gpa" TEXT,
		"description" TEXT, "educationImageUrl" TEXT, "sortOrder" INTEGER DEFAULT 0)`,
	`CREATE TABLE "education_relevant_courses" ("id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"educationItemId" INTEGER NOT NULL REFERENCES "education_items"("id") ON DELETE CASCADE, "course" TEXT, "sortOrder" INTEGER DEFAULT 0)`,

	`CREATE TABLE "experience" (` + parentColumns + `, "title" TEXT, "description" TEXT)`,
	`CREATE TABLE "experience_professional" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "experienceId" INTEGER NOT NULL REFERENCES "experience"("id") ON DELETE CASCADE,
		"company" TEXT, "location" TEXT, "url" TEXT, "experienceImageUrl" TEXT, "sortOrder" INTEGER DEFAULT 0)`,
	`CREATE TABLE "experience_professional_positions" ("id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"professionalId" INTEGER NOT NULL REFERENCES "experience_professional"("id") ON DELETE CASCADE,
		"title" TEXT, "startDate" TEXT, "endDate" TEXT, "description" TEXT, "sortOrder" INTEGER DEFAULT 0)`,
	`CREATE TABLE "experience_leadership" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "experienceId" INTEGER NOT NULL REFERENCES "experience"("id") ON DELETE CASCADE,
		"organization" TEXT, "location" TEXT, "url" TEXT, "experienceImageUrl" TEXT, "sortOrder" INTEGER DEFAULT 0)`,
	`CREATE TABLE "experience_leadership_roles" ("id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"leadershipId" INTEGER NOT NULL REFERENCES "experience_leadership"("id") ON DELETE CASCADE,
		"title" TEXT, "startDate" TEXT, "endDate" TEXT, "description" TEXT, "sortOrder" INTEGER DEFAULT 0)`,

	`CREATE TABLE "gallery" (` + parentColumns + `, "title" TEXT, "caption" TEXT, "imageUrl" TEXT, "altText" TEXT,
		"takenAt" TEXT, "location" TEXT, "sortOrder" INTEGER DEFAULT 0)`,

	`CREATE TABLE "projects" (` + parentColumns + `, "title" TEXT, "description" TEXT)`,
	`CREATE TABLE "project_items" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "projectsId" INTEGER NOT NULL REFERENCES "projects"("id") ON DELETE CASCADE,
		"title" TEXT, "description" TEXT, "imageUrl" TEXT, "githubUrl" TEXT, "liveUrl" TEXT, "startDate" TEXT, "endDate" TEXT,
		"sortOrder" INTEGER DEFAULT 0)`,
	`CREATE TABLE "project_technologies" ("id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"projectItemId" INTEGER NOT NULL REFERENCES "project_items"("id") ON DELETE CASCADE, "technology" TEXT, "sortOrder" INTEGER DEFAULT 0)`,
	`CREATE TABLE "project_highlights" ("id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"projectItemId" INTEGER NOT NULL REFERENCES "project_items"("id") ON DELETE CASCADE, "highlight" TEXT, "sortOrder" INTEGER DEFAULT 0)`,
}

// NewDB opens a fresh shared in-memory database with the content schema and
// the contact table applied.
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:content_%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, errOpen := dbutil.Open(dsn)
	if errOpen != nil {
		tb.Fatalf("open sqlite: %v", errOpen)
	}
	tb.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	for _, stmt := range Schema {
		if errExec := conn.Exec(stmt).Error; errExec != nil {
			tb.Fatalf("create schema: %v\n%s", errExec, stmt)
		}
	}
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		tb.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

// Insert adds a row and returns its id.
func Insert(tb testing.TB, conn *gorm.DB, table string, values map[string]any) int64 {
	tb.Helper()

	if errCreate := conn.Table(table).Create(values).Error; errCreate != nil {
		tb.Fatalf("insert into %s: %v", table, errCreate)
	}
	var id int64
	if errScan := conn.Raw("SELECT last_insert_rowid()").Scan(&id).Error; errScan != nil {
		tb.Fatalf("read id for %s: %v", table, errScan)
	}
	return id
}

// SeedParents inserts one live default row per parent table and returns the
// ids keyed by table.
func SeedParents(tb testing.TB, conn *gorm.DB) map[string]int64 {
	tb.Helper()

	ids := map[string]int64{}
	for _, table := range []string{"home", "about", "awards", "education", "experience", "projects"} {
		ids[table] = Insert(tb, conn, table, map[string]any{"languageCode": "en", "isActive": true, "title": table})
	}
	return ids
}
