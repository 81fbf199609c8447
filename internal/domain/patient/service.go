package patient

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medichat/medichat/internal/platform/blobstore"
)

// Service is the record service: patient profiles and their documents.
type Service struct {
	profiles  ProfileRepository
	documents DocumentRepository
	blobs     blobstore.BlobStore
}

func NewService(profiles ProfileRepository, documents DocumentRepository, blobs blobstore.BlobStore) *Service {
	return &Service{profiles: profiles, documents: documents, blobs: blobs}
}

// CreateProfileInput is the doctor-supplied profile data.
type CreateProfileInput struct {
	Name                  string
	Email                 string
	DateOfBirth           time.Time
	MedicalHistorySummary string
}

// CreateProfile creates a patient profile and issues its login password.
// The plaintext password is produced exactly once, returned to the caller,
// and never regenerated; only the bcrypt hash is stored.
func (s *Service) CreateProfile(ctx context.Context, in CreateProfileInput) (*CreatedProfile, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if in.DateOfBirth.IsZero() {
		return nil, fmt.Errorf("date_of_birth is required")
	}
	if _, err := s.profiles.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("a profile with email %s already exists", in.Email)
	}

	password, err := generatePassword(GeneratedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &Profile{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		DateOfBirth:  in.DateOfBirth,
		PasswordHash: string(hash),
	}
	if in.MedicalHistorySummary != "" {
		summary := in.MedicalHistorySummary
		p.MedicalHistorySummary = &summary
	}

	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	return &CreatedProfile{Profile: p, GeneratedPassword: password}, nil
}

func (s *Service) ListProfiles(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.profiles.List(ctx, limit, offset)
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *Service) GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.profiles.GetByEmail(ctx, email)
}

// DeleteProfile removes a profile and everything attached to it, including
// document metadata and stored blobs. Returns false when no such profile
// exists.
func (s *Service) DeleteProfile(ctx context.Context, id uuid.UUID) (bool, error) {
	docs, err := s.documents.ListByPatient(ctx, id)
	if err != nil {
		return false, err
	}

	deleted, err := s.profiles.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}

	if err := s.documents.DeleteByPatient(ctx, id); err != nil {
		return true, err
	}
	for _, d := range docs {
		_ = s.blobs.Delete(ctx, d.ID.String())
	}
	return true, nil
}

// ProfileIdentity resolves a patient login to the record it belongs to.
func (s *Service) ProfileIdentity(ctx context.Context, email string) (string, string, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}
	return p.ID.String(), p.Name, nil
}

// PasswordHashByEmail supplies the stored password hash for login
// verification.
func (s *Service) PasswordHashByEmail(ctx context.Context, email string) (string, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return p.PasswordHash, nil
}

// DisplayName supplies the patient's name to the chat pipeline.
func (s *Service) DisplayName(ctx context.Context, patientID uuid.UUID) (string, error) {
	p, err := s.profiles.GetByID(ctx, patientID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (s *Service) ListDocuments(ctx context.Context, patientID uuid.UUID) ([]*Document, error) {
	if _, err := s.profiles.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.documents.ListByPatient(ctx, patientID)
}

// CreateDocument stores the uploaded content in the blobstore and records
// the document against the profile. The document URL points at this
// server's content route.
func (s *Service) CreateDocument(ctx context.Context, patientID uuid.UUID, fileName, fileType string, content io.Reader) (*Document, error) {
	if _, err := s.profiles.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	id := uuid.New()
	if _, err := s.blobs.Upload(ctx, id.String(), fileName, fileType, content); err != nil {
		return nil, err
	}

	d := &Document{
		ID:        id,
		PatientID: patientID,
		FileName:  fileName,
		FileType:  fileType,
		URL:       fmt.Sprintf("/api/v1/documents/%s/content", id),
	}
	if err := s.documents.Create(ctx, d); err != nil {
		_ = s.blobs.Delete(ctx, id.String())
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.documents.GetByID(ctx, id)
}

// OpenDocument returns a reader over the document's stored content.
func (s *Service) OpenDocument(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Document, error) {
	d, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Download(ctx, id.String())
	if err != nil {
		return nil, nil, err
	}
	return rc, d, nil
}

// DeleteDocument removes a document and its blob. Returns false when no
// such document exists.
func (s *Service) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.documents.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	_ = s.blobs.Delete(ctx, id.String())
	return true, nil
}
