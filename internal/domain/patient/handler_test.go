package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medichat/medichat/internal/platform/auth"
	"github.com/medichat/medichat/internal/platform/blobstore"
)

func patientContext(t *testing.T, method, body string, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func doctorPrincipal() *auth.Principal {
	return &auth.Principal{ID: uuid.New().String(), Email: "doctor@medichat.com", Role: auth.RoleDoctor}
}

func TestCreateProfileHandler_ReturnsPasswordOnce(t *testing.T) {
	h := NewHandler(newService())

	body := `{"name":"Alice Wonderland","email":"alice@example.com","date_of_birth":"1990-05-15","medical_history_summary":"Asthma."}`
	c, rec := patientContext(t, http.MethodPost, body, doctorPrincipal())
	if err := h.CreateProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pw, _ := resp["generated_password"].(string)
	if len(pw) != GeneratedPasswordLength {
		t.Errorf("expected %d-char generated_password, got %q", GeneratedPasswordLength, pw)
	}
	if _, ok := resp["password_hash"]; ok {
		t.Error("password hash leaked in response")
	}
}

func TestCreateProfileHandler_BadDateOfBirth(t *testing.T) {
	h := NewHandler(newService())

	c, _ := patientContext(t, http.MethodPost, `{"name":"A","email":"a@b.c","date_of_birth":"15/05/1990"}`, doctorPrincipal())
	err := h.CreateProfile(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetProfileHandler_PatientSelfOnly(t *testing.T) {
	svc := newService()
	h := NewHandler(svc)

	created, err := svc.CreateProfile(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := created.Profile.ID

	// The patient reads its own record.
	self := &auth.Principal{ID: id.String(), Email: "alice@example.com", Role: auth.RolePatient}
	c, rec := patientContext(t, http.MethodGet, "", self)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	if err := h.GetProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), created.Profile.PasswordHash) {
		t.Error("password hash leaked in profile response")
	}

	// Another patient is turned away.
	other := &auth.Principal{ID: uuid.New().String(), Email: "bob@example.com", Role: auth.RolePatient}
	c, _ = patientContext(t, http.MethodGet, "", other)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	err = h.GetProfile(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestDeleteProfileHandler_NotFound(t *testing.T) {
	h := NewHandler(newService())

	c, _ := patientContext(t, http.MethodDelete, "", doctorPrincipal())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	err := h.DeleteProfile(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestDeleteProfileHandler_Deletes(t *testing.T) {
	svc := newService()
	h := NewHandler(svc)

	created, err := svc.CreateProfile(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, rec := patientContext(t, http.MethodDelete, "", doctorPrincipal())
	c.SetParamNames("id")
	c.SetParamValues(created.Profile.ID.String())
	if err := h.DeleteProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func multipartUpload(t *testing.T, fileName, contentType, content string) (*http.Request, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", buf)
	return req, w.FormDataContentType()
}

func TestCreateDocumentHandler_Upload(t *testing.T) {
	svc := newService()
	h := NewHandler(svc)

	created, err := svc.CreateProfile(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, formContentType := multipartUpload(t, "blood_test_results.pdf", "application/pdf", "%PDF-1.4")
	req.Header.Set(echo.HeaderContentType, formContentType)
	req = req.WithContext(auth.WithPrincipal(req.Context(), *doctorPrincipal()))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(created.Profile.ID.String())

	if err := h.CreateDocument(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var doc Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.FileName != "blood_test_results.pdf" {
		t.Errorf("unexpected file name %s", doc.FileName)
	}
	if doc.URL != "/api/v1/documents/"+doc.ID.String()+"/content" {
		t.Errorf("unexpected URL %s", doc.URL)
	}
}

func TestCreateDocumentHandler_RejectsContentType(t *testing.T) {
	svc := newService()
	h := NewHandler(svc)

	created, err := svc.CreateProfile(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, formContentType := multipartUpload(t, "run.exe", "application/octet-stream", "MZ")
	req.Header.Set(echo.HeaderContentType, formContentType)
	req = req.WithContext(auth.WithPrincipal(req.Context(), *doctorPrincipal()))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(created.Profile.ID.String())

	uploadErr := h.CreateDocument(c)
	he, ok := uploadErr.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", uploadErr)
	}
}

func TestDownloadDocumentHandler_PatientOwnOnly(t *testing.T) {
	blobs := blobstore.NewInMemoryBlobStore(1 << 20)
	svc := NewService(NewProfileRepoMem(), NewDocumentRepoMem(), blobs)
	h := NewHandler(svc)

	created, err := svc.CreateProfile(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, err := svc.CreateDocument(context.Background(), created.Profile.ID, "notes.txt", "text/plain", strings.NewReader("notes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := &auth.Principal{ID: uuid.New().String(), Email: "bob@example.com", Role: auth.RolePatient}
	c, _ := patientContext(t, http.MethodGet, "", other)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())
	err = h.DownloadDocument(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}

	self := &auth.Principal{ID: created.Profile.ID.String(), Email: "alice@example.com", Role: auth.RolePatient}
	c, rec := patientContext(t, http.MethodGet, "", self)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())
	if err := h.DownloadDocument(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "notes" {
		t.Errorf("expected document content, got %q", rec.Body.String())
	}
}

func TestListProfilesHandler_Paginates(t *testing.T) {
	svc := newService()
	h := NewHandler(svc)

	if err := Seed(context.Background(), svc.profiles, svc.documents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=2&offset=0", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), *doctorPrincipal()))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListProfiles(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data    []json.RawMessage `json:"data"`
		Total   int               `json:"total"`
		HasMore bool              `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 4 || len(resp.Data) != 2 || !resp.HasMore {
		t.Errorf("expected total 4, page of 2, has_more; got total=%d len=%d has_more=%v", resp.Total, len(resp.Data), resp.HasMore)
	}
}
