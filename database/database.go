package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sparkshare-api/models"
)

// Initialize opens the MySQL connection. TranslateError lets the
// repositories see gorm.ErrDuplicatedKey on unique index violations.
func Initialize(databaseURL string, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func Migrate(db *gorm.DB, log logrus.FieldLogger) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.FriendInvitation{},
		&models.Friendship{},
		&models.SharedItemEnvelope{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	addCustomIndexes(db, log)
	addDatabaseConstraints(db, log)
	return nil
}

// Statements that may already have been applied by an earlier migration.
// Failures are logged and skipped.
func addCustomIndexes(db *gorm.DB, log logrus.FieldLogger) {
	statements := map[string]string{
		"idx_friend_invitations_recipient_created": "CREATE INDEX idx_friend_invitations_recipient_created ON friend_invitations(to_email, status, created_at DESC)",
		"idx_friend_invitations_sender_created":    "CREATE INDEX idx_friend_invitations_sender_created ON friend_invitations(from_user_id, status, created_at DESC)",
		"idx_shared_items_recipient_shared":        "CREATE INDEX idx_shared_items_recipient_shared ON shared_items(shared_with_user_id, spark_id, status, shared_at DESC)",
		"idx_shared_items_sender_shared":           "CREATE INDEX idx_shared_items_sender_shared ON shared_items(shared_by_user_id, spark_id, shared_at DESC)",
	}
	for name, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			log.WithError(err).WithField("index", name).Warn("could not create index")
		}
	}
}

func addDatabaseConstraints(db *gorm.DB, log logrus.FieldLogger) {
	constraints := map[string]string{
		// Pairs are stored ordered, which is what makes the pair index unique per friendship.
		"ck_friendships_ordered_pair": "ALTER TABLE friendships ADD CONSTRAINT ck_friendships_ordered_pair CHECK (user_id1 < user_id2)",
		"ck_shared_items_no_self":     "ALTER TABLE shared_items ADD CONSTRAINT ck_shared_items_no_self CHECK (shared_by_user_id <> shared_with_user_id)",
	}
	for name, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			log.WithError(err).WithField("constraint", name).Warn("could not add constraint")
		}
	}
}
