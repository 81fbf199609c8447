package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type seedProfile struct {
	name        string
	email       string
	dateOfBirth string
	summary     string
	createdAgo  time.Duration
	documents   []seedDocument
}

type seedDocument struct {
	fileName   string
	fileType   string
	uploadDate string
}

var seedProfiles = []seedProfile{
	{
		name: "Alice Wonderland", email: "alice@example.com",
		dateOfBirth: "1990-05-15", summary: "Asthma, seasonal allergies.",
		createdAgo: 5 * 24 * time.Hour,
		documents: []seedDocument{
			{fileName: "blood_test_results.pdf", fileType: "application/pdf", uploadDate: "2023-06-15T10:00:00Z"},
			{fileName: "xray_chest.jpg", fileType: "image/jpeg", uploadDate: "2023-07-01T14:30:00Z"},
		},
	},
	{
		name: "Bob The Builder", email: "bob@example.com",
		dateOfBirth: "1985-11-20", summary: "Hypertension, controlled with medication.",
		createdAgo: 10 * 24 * time.Hour,
		documents: []seedDocument{
			{fileName: "prescription_lisinopril.pdf", fileType: "application/pdf", uploadDate: "2023-08-01T09:00:00Z"},
		},
	},
	{
		name: "Charlie Brown", email: "charlie@example.com",
		dateOfBirth: "2000-01-10", summary: "Generally healthy, occasional sports injuries.",
		createdAgo: 2 * 24 * time.Hour,
	},
	{
		name: "Diana Prince", email: "diana@example.com",
		dateOfBirth: "1978-07-04", summary: "Type 2 Diabetes, well-managed.",
		createdAgo: 20 * 24 * time.Hour,
	},
}

// Seed populates empty repositories with a small demo data set. It is a
// no-op when profiles already exist, so it is safe to run on every start
// of the in-memory store.
func Seed(ctx context.Context, profiles ProfileRepository, documents DocumentRepository) error {
	_, total, err := profiles.List(ctx, 1, 0)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, sp := range seedProfiles {
		dob, err := time.Parse("2006-01-02", sp.dateOfBirth)
		if err != nil {
			return err
		}
		summary := sp.summary
		p := &Profile{
			ID:                    uuid.New(),
			Name:                  sp.name,
			Email:                 sp.email,
			DateOfBirth:           dob,
			MedicalHistorySummary: &summary,
			CreatedAt:             now.Add(-sp.createdAgo),
		}
		if err := profiles.Create(ctx, p); err != nil {
			return err
		}
		for _, sd := range sp.documents {
			uploaded, err := time.Parse(time.RFC3339, sd.uploadDate)
			if err != nil {
				return err
			}
			id := uuid.New()
			d := &Document{
				ID:         id,
				PatientID:  p.ID,
				FileName:   sd.fileName,
				FileType:   sd.fileType,
				UploadDate: uploaded,
				URL:        "/api/v1/documents/" + id.String() + "/content",
			}
			if err := documents.Create(ctx, d); err != nil {
				return err
			}
		}
	}
	return nil
}
