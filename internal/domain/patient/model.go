package patient

import (
	"time"

	"github.com/google/uuid"
)

// Profile maps to the patient_profile table. The plaintext password a
// doctor hands to a new patient is produced once at creation and never
// stored; only its bcrypt hash is kept for login.
type Profile struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	Name                  string    `db:"name" json:"name"`
	Email                 string    `db:"email" json:"email"`
	DateOfBirth           time.Time `db:"date_of_birth" json:"date_of_birth"`
	MedicalHistorySummary *string   `db:"medical_history_summary" json:"medical_history_summary,omitempty"`
	PasswordHash          string    `db:"password_hash" json:"-"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// Document maps to the patient_document table. Every document belongs to
// exactly one profile and is removed when the profile is deleted.
type Document struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	FileType   string    `db:"file_type" json:"file_type"`
	UploadDate time.Time `db:"upload_date" json:"upload_date"`
	URL        string    `db:"url" json:"url"`
}

// CreatedProfile is the one-time create response carrying the generated
// password in plaintext. It exists only in the create path.
type CreatedProfile struct {
	Profile           *Profile `json:"profile"`
	GeneratedPassword string   `json:"generated_password"`
}
