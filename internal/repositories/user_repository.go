package repositories

import (
	"context"
	"strings"

	"gestion-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{DB: tx}
}

const userColumns = `id, name, username, email, COALESCE(phone, ''), password_hash, role,
	is_active, failed_logins, last_login_at, COALESCE(totp_secret, ''), totp_enabled, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.FailedLogins, &u.LastLoginAt, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO users(name, username, email, phone, password_hash, role, is_active)
         VALUES($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
         RETURNING id, created_at, updated_at`,
		u.Name, u.Username, strings.ToLower(u.Email), u.Phone, u.PasswordHash, u.Role, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(strings.TrimSpace(email))))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username)=lower($1)`, strings.TrimSpace(username)))
}

// GetByIdentifier resolves the login identifier as email when it contains
// "@", otherwise as username.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		return r.GetByEmail(ctx, identifier)
	}
	return r.GetByUsername(ctx, identifier)
}

// List returns users, optionally filtered by role
func (r *UserRepository) List(ctx context.Context, role string) ([]*models.User, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+userColumns+` FROM users
         WHERE ($1 = '' OR role = $1)
         ORDER BY created_at DESC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	return r.DB.QueryRow(ctx,
		`UPDATE users SET name=$1, username=$2, email=$3, phone=NULLIF($4, ''), role=$5, updated_at=NOW()
         WHERE id=$6
         RETURNING updated_at`,
		u.Name, u.Username, strings.ToLower(u.Email), u.Phone, u.Role, u.ID,
	).Scan(&u.UpdatedAt)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, hash string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`, hash, id)
	return err
}

// SetActive toggles the account; reactivation clears the failed-login counter.
func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE users
         SET is_active=$1,
             failed_logins = CASE WHEN $1 THEN 0 ELSE failed_logins END,
             updated_at=NOW()
         WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RegisterFailedLogin increments the counter and blocks the account once it
// reaches maxAttempts. It returns the new counter and whether the account is
// now inactive.
func (r *UserRepository) RegisterFailedLogin(ctx context.Context, id, maxAttempts int) (int, bool, error) {
	var count int
	var active bool
	err := r.DB.QueryRow(ctx,
		`UPDATE users
         SET failed_logins = failed_logins + 1,
             is_active = CASE WHEN failed_logins + 1 >= $2 THEN FALSE ELSE is_active END,
             updated_at = NOW()
         WHERE id=$1
         RETURNING failed_logins, is_active`, id, maxAttempts,
	).Scan(&count, &active)
	return count, !active, err
}

// RegisterSuccessfulLogin resets the failed-login counter.
func (r *UserRepository) RegisterSuccessfulLogin(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET failed_logins=0, last_login_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *UserRepository) ResetFailedLogins(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE users SET failed_logins=0, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ActiveIDsByRole returns ids of every active user holding role.
func (r *UserRepository) ActiveIDsByRole(ctx context.Context, role string) ([]int, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id FROM users WHERE role=$1 AND is_active ORDER BY id`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// Recipient is the contact data needed to notify a user.
type Recipient struct {
	ID    int
	Name  string
	Email string
}

// RecipientsPage returns up to limit active users with id > afterID, in id
// order. An empty role selects every role.
func (r *UserRepository) RecipientsPage(ctx context.Context, role string, afterID, limit int) ([]Recipient, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, email FROM users
         WHERE is_active AND ($1 = '' OR role = $1) AND id > $2
         ORDER BY id
         LIMIT $3`, role, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recipient
	for rows.Next() {
		var rc Recipient
		if err := rows.Scan(&rc.ID, &rc.Name, &rc.Email); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Contacts returns name and email of the given users.
func (r *UserRepository) Contacts(ctx context.Context, ids []int) (map[int]Recipient, error) {
	out := make(map[int]Recipient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, email FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rc Recipient
		if err := rows.Scan(&rc.ID, &rc.Name, &rc.Email); err != nil {
			return nil, err
		}
		out[rc.ID] = rc
	}
	return out, rows.Err()
}

// SetTOTPSecret stores a new, not yet verified secret. Accounts that already
// have 2FA enabled are left untouched.
func (r *UserRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_secret=$1, updated_at=NOW() WHERE id=$2 AND NOT totp_enabled`, secret, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *UserRepository) EnableTOTP(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_enabled=TRUE, totp_enabled_at=NOW(), updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *UserRepository) DisableTOTP(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_secret=NULL, totp_enabled=FALSE, totp_enabled_at=NULL, updated_at=NOW() WHERE id=$1`, id)
	return err
}
