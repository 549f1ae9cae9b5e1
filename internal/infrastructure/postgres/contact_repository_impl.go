package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/internal/domain/repository"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

const contactColumns = `id, user_id, first_name, last_name, email, phone, birthday, created_at, updated_at`

func scanContact(row pgx.Row) (*entity.Contact, error) {
	c := &entity.Contact{}
	if err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email,
		&c.Phone, &c.Birthday, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ContactRepository) Create(ctx context.Context, c *entity.Contact) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (user_id, first_name, last_name, email, phone, birthday)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, c.UserID, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday)

	return row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ContactRepository) GetByID(ctx context.Context, userID, id string) (*entity.Contact, error) {
	return scanContact(r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1 AND id = $2
	`, userID, id))
}

func (r *ContactRepository) List(ctx context.Context, userID string, q string) ([]*entity.Contact, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if q != "" {
		rows, err = r.pool.Query(ctx, `
			SELECT `+contactColumns+`
			FROM contacts
			WHERE user_id = $1
			  AND (first_name ILIKE '%' || $2 || '%'
			   OR  last_name  ILIKE '%' || $2 || '%'
			   OR  email      ILIKE '%' || $2 || '%')
			ORDER BY last_name, first_name
		`, userID, q)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+contactColumns+`
			FROM contacts
			WHERE user_id = $1
			ORDER BY last_name, first_name
		`, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

func (r *ContactRepository) Update(ctx context.Context, c *entity.Contact) error {
	c.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE contacts
		SET first_name = $1, last_name = $2, email = $3, phone = $4, birthday = $5, updated_at = $6
		WHERE user_id = $7 AND id = $8
	`, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.UpdatedAt, c.UserID, c.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM contacts
		WHERE user_id = $1 AND id = $2
	`, userID, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// birthdayWindow returns the MM-DD bounds of the next days days and whether
// the window wraps past December 31. Month/day comparison stays stable across
// leap years, unlike day-of-year arithmetic.
func birthdayWindow(today time.Time, days int) (from, to string, wraps bool) {
	from = today.Format("01-02")
	to = today.AddDate(0, 0, days).Format("01-02")
	return from, to, to < from
}

func (r *ContactRepository) UpcomingBirthdays(ctx context.Context, userID string, days int) ([]*entity.Contact, error) {
	from, to, wraps := birthdayWindow(time.Now(), days)
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		  AND birthday > DATE '0001-01-01'
		  AND (
			($4 AND (to_char(birthday, 'MM-DD') >= $2 OR to_char(birthday, 'MM-DD') <= $3))
			OR (NOT $4 AND to_char(birthday, 'MM-DD') BETWEEN $2 AND $3)
		  )
		ORDER BY to_char(birthday, 'MM-DD')
	`, userID, from, to, wraps)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

func collectContacts(rows pgx.Rows) ([]*entity.Contact, error) {
	var contacts []*entity.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

var _ repository.ContactRepository = (*ContactRepository)(nil)
