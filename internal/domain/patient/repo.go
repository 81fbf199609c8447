package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by reads when no record matches.
var ErrNotFound = errors.New("not found")

// ProfileRepository stores patient profiles.
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	List(ctx context.Context, limit, offset int) ([]*Profile, int, error)
	// Delete reports whether a profile was found and removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// DocumentRepository stores patient document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Document, error)
	// Delete reports whether a document was found and removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
}
