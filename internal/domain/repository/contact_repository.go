package repository

import (
	"context"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
)

// ContactRepository defines persistence operations for address-book entries.
// Every operation is scoped to the owning user.
type ContactRepository interface {
	Create(ctx context.Context, c *entity.Contact) error
	GetByID(ctx context.Context, userID, id string) (*entity.Contact, error)
	List(ctx context.Context, userID string, q string) ([]*entity.Contact, error)
	Update(ctx context.Context, c *entity.Contact) error
	Delete(ctx context.Context, userID, id string) error

	// UpcomingBirthdays returns contacts whose birthday falls within the next
	// days days, ignoring the year component.
	UpcomingBirthdays(ctx context.Context, userID string, days int) ([]*entity.Contact, error)
}
