package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"examreg/internal/registration/models"
	id "examreg/pkg/domain"
	"examreg/pkg/platform/sentinel"
)

// idempotencyKeyConstraint names the unique constraint backing the
// at-most-one-row-per-key guarantee. The race-recovery path keys off this
// constraint specifically; a 23505 on any other constraint propagates as a
// plain persistence failure.
const idempotencyKeyConstraint = "registrations_idempotency_key_key"

const uniqueViolation = pq.ErrorCode("23505")

// Postgres persists registrations in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the two tables when missing. Full migration tooling is
// out of scope; this keeps the binary bootable against an empty database.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS registrations (
			id UUID PRIMARY KEY,
			idempotency_key VARCHAR(128) NOT NULL,
			name VARCHAR(120) NOT NULL,
			email VARCHAR(254) NOT NULL,
			student_phone VARCHAR(32) NOT NULL DEFAULT '',
			parent_phone VARCHAR(32) NOT NULL DEFAULT '',
			school VARCHAR(120) NOT NULL DEFAULT '',
			grade VARCHAR(16) NOT NULL DEFAULT '',
			section VARCHAR(64) NOT NULL DEFAULT '',
			payment_status VARCHAR(32) NOT NULL DEFAULT 'Pending',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ,
			updated_by VARCHAR(120) NOT NULL DEFAULT 'System',
			CONSTRAINT registrations_idempotency_key_key UNIQUE (idempotency_key)
		);

		CREATE TABLE IF NOT EXISTS registration_audits (
			id UUID PRIMARY KEY,
			registration_id UUID NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
			action VARCHAR(32) NOT NULL,
			actor VARCHAR(120) NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_registration_audits_registration
			ON registration_audits (registration_id, created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const registrationColumns = `id, idempotency_key, name, email, student_phone, parent_phone,
	school, grade, section, payment_status, created_at, updated_at, updated_by`

func (s *Postgres) Insert(ctx context.Context, reg *models.Registration, entry *models.AuditEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO registrations (`+registrationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			reg.ID.String(), reg.IdempotencyKey, reg.Name, reg.Email,
			reg.StudentPhone, reg.ParentPhone, reg.School, reg.Grade, reg.Section,
			string(reg.PaymentStatus), reg.CreatedAt, nullTime(reg.UpdatedAt), reg.UpdatedBy,
		)
		if err != nil {
			if isIdempotencyKeyViolation(err) {
				return fmt.Errorf("insert registration: %w", sentinel.ErrAlreadyUsed)
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		if entry != nil {
			if err := insertAudit(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) Update(ctx context.Context, reg *models.Registration, entry *models.AuditEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE registrations SET
				name = $2, email = $3, student_phone = $4, parent_phone = $5,
				school = $6, grade = $7, section = $8, payment_status = $9,
				updated_at = $10, updated_by = $11
			WHERE id = $1`,
			reg.ID.String(), reg.Name, reg.Email, reg.StudentPhone, reg.ParentPhone,
			reg.School, reg.Grade, reg.Section, string(reg.PaymentStatus),
			nullTime(reg.UpdatedAt), reg.UpdatedBy,
		)
		if err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}
		if entry != nil {
			if err := insertAudit(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, regID.String())
	return scanRegistration(row)
}

func (s *Postgres) FindByKey(ctx context.Context, key string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE idempotency_key = $1`, key)
	return scanRegistration(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out, nil
}

func (s *Postgres) Exists(ctx context.Context, regID id.RegistrationID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`, regID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("registration exists: %w", err)
	}
	return exists, nil
}

// Delete removes the row; the audit trail goes with it via ON DELETE CASCADE.
func (s *Postgres) Delete(ctx context.Context, regID id.RegistrationID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, regID.String())
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Postgres) AuditsByRegistration(ctx context.Context, regID id.RegistrationID) ([]*models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, registration_id, action, actor, notes, created_at
		FROM registration_audits
		WHERE registration_id = $1
		ORDER BY created_at DESC`, regID.String())
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditEntry
	for rows.Next() {
		var (
			entry            models.AuditEntry
			entryID, ownerID string
			action           string
		)
		if err := rows.Scan(&entryID, &ownerID, &action, &entry.Actor, &entry.Notes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if entry.ID, err = id.ParseAuditEntryID(entryID); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if entry.RegistrationID, err = id.ParseRegistrationID(ownerID); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		entry.Action = models.AuditAction(action)
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	return out, nil
}

func (s *Postgres) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, entry *models.AuditEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO registration_audits (id, registration_id, action, actor, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID.String(), entry.RegistrationID.String(), string(entry.Action),
		entry.Actor, entry.Notes, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg       models.Registration
		regID     string
		status    string
		updatedAt sql.NullTime
	)
	err := row.Scan(&regID, &reg.IdempotencyKey, &reg.Name, &reg.Email,
		&reg.StudentPhone, &reg.ParentPhone, &reg.School, &reg.Grade, &reg.Section,
		&status, &reg.CreatedAt, &updatedAt, &reg.UpdatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	if reg.ID, err = id.ParseRegistrationID(regID); err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	reg.PaymentStatus = models.PaymentStatus(status)
	if updatedAt.Valid {
		t := updatedAt.Time
		reg.UpdatedAt = &t
	}
	return &reg, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// isIdempotencyKeyViolation reports whether err is a unique violation on the
// idempotency key constraint specifically. This is the structural signal the
// service's race recovery relies on instead of error-message matching.
func isIdempotencyKeyViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == idempotencyKeyConstraint
}
