package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fiapcontacts/pkg/domain"
)

const migrateLockID int64 = 51326114

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// pgUniqueViolation is the SQLSTATE raised by Postgres for unique index conflicts.
const pgUniqueViolation = "23505"

type GormStoreOptions struct {
	LogLevel     gormlogger.LogLevel
	MaxOpenConns int
}

type GormStoreOption func(*GormStoreOptions)

// WithLogLevel sets the GORM logger level. Defaults to Warn.
func WithLogLevel(level gormlogger.LogLevel) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.LogLevel = level
	}
}

// WithMaxOpenConns caps the connection pool size.
func WithMaxOpenConns(n int) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.MaxOpenConns = n
	}
}

// GormStore implements ContactStore using GORM over Postgres or SQLite.
type GormStore struct {
	db      *gorm.DB
	dialect string
}

var _ ContactStore = (*GormStore)(nil)

// NewGormStore opens the DB and runs auto-migrations.
// postgres:// and postgresql:// URLs select Postgres; sqlite: and file: DSNs select SQLite.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{LogLevel: gormlogger.Warn}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}

	dialector, dialect, err := openDialector(dsn)
	if err != nil {
		return nil, err
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	maxOpen := opts.MaxOpenConns
	if dialect == dialectSQLite {
		// every in-memory connection is its own database
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}

	migrate := func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ContactModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	if dialect == dialectPostgres {
		err = withMigrationLock(db, migrate)
	} else {
		err = migrate(db)
	}
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &GormStore{db: db, dialect: dialect}, nil
}

func openDialector(dsn string) (gorm.Dialector, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, "", errors.New("database URL required")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), dialectPostgres, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:")), dialectSQLite, nil
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn), dialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("unsupported database URL scheme: %q", dsn)
	}
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn inside a database transaction.
// Postgres transactions run at serializable isolation so read-then-write checks hold.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx ContactStore) error) error {
	var txOpts []*sql.TxOptions
	if s.dialect == dialectPostgres {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, dialect: s.dialect})
	}, txOpts...)
}

// CreateContact inserts c and writes the assigned id and timestamps back into it.
func (s *GormStore) CreateContact(ctx context.Context, c *domain.Contact) error {
	model := contactToModel(*c)
	model.ID = 0
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	*c = contactFromModel(model)
	return nil
}

// GetContact returns a contact by id.
func (s *GormStore) GetContact(ctx context.Context, id int64) (domain.Contact, bool, error) {
	var model ContactModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Contact{}, false, nil
		}
		return domain.Contact{}, false, err
	}
	return contactFromModel(model), true, nil
}

// SaveContact overwrites the mutable fields of an existing contact.
func (s *GormStore) SaveContact(ctx context.Context, c *domain.Contact) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&ContactModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":         c.Name,
			"area_code":    c.AreaCode,
			"phone_number": c.PhoneNumber,
			"email":        c.Email,
			"updated_at":   now,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrContactNotFound
	}
	c.UpdatedAt = now
	return nil
}

// DeleteContact removes a contact and reports whether a row existed.
func (s *GormStore) DeleteContact(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&ContactModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ContactEmailExists checks if another contact already uses email.
func (s *GormStore) ContactEmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&ContactModel{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ContactPhoneExists checks if another contact already uses the area code and phone pair.
func (s *GormStore) ContactPhoneExists(ctx context.Context, areaCode, phoneNumber string, excludeID int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&ContactModel{}).
		Where("area_code = ? AND phone_number = ? AND id <> ?", areaCode, phoneNumber, excludeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListContacts streams contacts from a rows cursor, optionally filtered by area code.
func (s *GormStore) ListContacts(ctx context.Context, areaCode string) iter.Seq2[domain.Contact, error] {
	return func(yield func(domain.Contact, error) bool) {
		tx := s.db.WithContext(ctx).Model(&ContactModel{})
		if areaCode != "" {
			tx = tx.Where("area_code = ?", areaCode)
		}
		rows, err := tx.Order("name ASC").Order("id ASC").Rows()
		if err != nil {
			yield(domain.Contact{}, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			var model ContactModel
			if err := s.db.ScanRows(rows, &model); err != nil {
				yield(domain.Contact{}, err)
				return
			}
			if !yield(contactFromModel(model), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Contact{}, err)
		}
	}
}

// translateError maps unique index violations onto ErrDuplicateEmail and ErrDuplicatePhone.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return err
		}
		switch pgErr.ConstraintName {
		case contactEmailIndex:
			return fmt.Errorf("%w: %w", ErrDuplicateEmail, err)
		case contactPhoneIndex:
			return fmt.Errorf("%w: %w", ErrDuplicatePhone, err)
		}
		return err
	}
	// SQLite reports "UNIQUE constraint failed: contacts.area_code, contacts.phone_number".
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	switch {
	case strings.Contains(msg, "contacts.email"):
		return fmt.Errorf("%w: %w", ErrDuplicateEmail, err)
	case strings.Contains(msg, "contacts.area_code"), strings.Contains(msg, "contacts.phone_number"):
		return fmt.Errorf("%w: %w", ErrDuplicatePhone, err)
	}
	return err
}

func contactToModel(c domain.Contact) ContactModel {
	return ContactModel{
		ID:          c.ID,
		Name:        c.Name,
		AreaCode:    c.AreaCode,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func contactFromModel(m ContactModel) domain.Contact {
	return domain.Contact{
		ID:          m.ID,
		Name:        m.Name,
		AreaCode:    m.AreaCode,
		PhoneNumber: m.PhoneNumber,
		Email:       m.Email,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
