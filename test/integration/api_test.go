package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medichat/medichat/internal/domain/chat"
	"github.com/medichat/medichat/internal/domain/identity"
	"github.com/medichat/medichat/internal/domain/patient"
	"github.com/medichat/medichat/internal/platform/auth"
	"github.com/medichat/medichat/internal/platform/blobstore"
	"github.com/medichat/medichat/internal/platform/llm"
	"github.com/medichat/medichat/internal/platform/middleware"
)

// scriptedBackend returns a fixed completion for every generation call.
type scriptedBackend struct {
	reply string
}

func (b *scriptedBackend) Chat(context.Context, []llm.Message) (string, error) {
	return b.reply, nil
}

type testApp struct {
	e     *echo.Echo
	codec *auth.TokenCodec
}

// newTestApp wires the full API surface over in-memory stores, the same way
// the serve command does.
func newTestApp(backend llm.Client, verifier identity.CredentialVerifier) *testApp {
	logger := zerolog.Nop()
	codec := auth.NewTokenCodec([]byte("integration-secret"), time.Hour)
	blobs := blobstore.NewInMemoryBlobStore(1 << 20)

	patientSvc := patient.NewService(patient.NewProfileRepoMem(), patient.NewDocumentRepoMem(), blobs)
	if verifier == nil {
		verifier = identity.NewBcryptVerifier(patientSvc)
	}
	sessionSvc := identity.NewSessions(identity.NewUserRepoMem(), codec, verifier, logger).
		WithProfileDirectory(patientSvc)
	conversationSvc := chat.NewConversation(chat.NewMessageRepoMem(), chat.NewGenerator(backend), patientSvc, logger)

	e := echo.New()
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(auth.Middleware(codec))

	apiV1 := e.Group("/api/v1")
	identity.NewHandler(sessionSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	chat.NewHandler(conversationSvc).RegisterRoutes(apiV1)

	return &testApp{e: e, codec: codec}
}

func (a *testApp) doctorToken(t *testing.T) string {
	t.Helper()
	token, err := a.codec.Issue(auth.Principal{
		ID:          "11111111-1111-1111-1111-111111111111",
		Email:       "doctor@medichat.com",
		DisplayName: "Dr. Ada Lovelace",
		Role:        auth.RoleDoctor,
	})
	if err != nil {
		t.Fatalf("issue doctor token: %v", err)
	}
	return token
}

func (a *testApp) request(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	}
	return rec, parsed
}

// TestPatientJourney walks the full flow: the doctor registers a patient and
// uploads a document, the patient logs in with the generated password, chats
// with the assistant, and finally the doctor deletes the record.
func TestPatientJourney(t *testing.T) {
	app := newTestApp(&scriptedBackend{reply: "A headache is a pain in the head."}, nil)
	doctor := app.doctorToken(t)

	// Doctor creates the patient record.
	rec, created := app.request(t, http.MethodPost, "/api/v1/patients", doctor,
		`{"name":"Alice Wonderland","email":"alice@example.com","date_of_birth":"1990-05-15","medical_history_summary":"Asthma."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create patient: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	patientID, _ := created["id"].(string)
	password, _ := created["generated_password"].(string)
	if patientID == "" || password == "" {
		t.Fatalf("create patient: missing id or generated_password in %v", created)
	}

	// Doctor uploads a document.
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="blood_test_results.pdf"`)
	hdr.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	fmt.Fprint(part, "%PDF-1.4 results")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients/"+patientID+"/documents", buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+doctor)
	urec := httptest.NewRecorder()
	app.e.ServeHTTP(urec, req)
	if urec.Code != http.StatusCreated {
		t.Fatalf("upload document: expected 201, got %d: %s", urec.Code, urec.Body.String())
	}
	var doc struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(urec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}

	// Patient logs in with the generated password.
	rec, login := app.request(t, http.MethodPost, "/api/v1/auth/login", "",
		fmt.Sprintf(`{"email":"alice@example.com","password":%q,"role":"patient"}`, password))
	if rec.Code != http.StatusOK {
		t.Fatalf("patient login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	patientToken, _ := login["token"].(string)
	if patientToken == "" {
		t.Fatal("patient login: missing token")
	}

	// A wrong password stays out.
	rec, _ = app.request(t, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"alice@example.com","password":"wrong","role":"patient"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", rec.Code)
	}

	// The patient's session identity is their record: the token from login
	// opens their own conversation and documents.
	loginUser, _ := login["user"].(map[string]interface{})
	if loginID, _ := loginUser["id"].(string); loginID != patientID {
		t.Fatalf("expected login identity %s to be the patient record, got %s", patientID, loginID)
	}

	rec, history := app.request(t, http.MethodGet, "/api/v1/chat/"+patientID+"/messages", patientToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("chat history: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	msgs, _ := history["messages"].([]interface{})
	if len(msgs) != 1 {
		t.Fatalf("expected greeting-only history, got %d messages", len(msgs))
	}

	rec, _ = app.request(t, http.MethodPost, "/api/v1/chat/"+patientID+"/messages", patientToken,
		`{"text":"What is a headache?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("send message: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), chat.Disclaimer) {
		t.Error("expected the assistant reply to carry the medical disclaimer")
	}

	// Patient downloads their document.
	rec, _ = app.request(t, http.MethodGet, doc.URL, patientToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "%PDF-1.4 results" {
		t.Errorf("download: unexpected content %q", rec.Body.String())
	}

	// Doctor deletes the record; documents go with it.
	rec, _ = app.request(t, http.MethodDelete, "/api/v1/patients/"+patientID, doctor, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete patient: expected 204, got %d", rec.Code)
	}
	rec, _ = app.request(t, http.MethodGet, doc.URL, doctor, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected deleted document to be gone, got %d", rec.Code)
	}
}

// TestRouteGuards checks the access rules across the API surface.
func TestRouteGuards(t *testing.T) {
	app := newTestApp(&scriptedBackend{reply: "ok"}, identity.AllowAll{})
	doctor := app.doctorToken(t)

	// Unauthenticated requests are pointed at the login page.
	rec, _ := app.request(t, http.MethodGet, "/api/v1/patients", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/login") {
		t.Errorf("expected login location, got %s", rec.Body.String())
	}

	// A malformed token counts as logged out, not as an error.
	rec, _ = app.request(t, http.MethodGet, "/api/v1/patients", "not-a-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("malformed token: expected 401, got %d", rec.Code)
	}

	// Patients cannot reach doctor-only routes.
	patientToken, err := app.codec.Issue(auth.Principal{
		ID: "22222222-2222-2222-2222-222222222222", Email: "p@example.com", Role: auth.RolePatient,
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec, _ = app.request(t, http.MethodGet, "/api/v1/patients", patientToken, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient on doctor route: expected 403, got %d", rec.Code)
	}
	rec, _ = app.request(t, http.MethodPost, "/api/v1/patients", patientToken, `{"name":"x"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient create: expected 403, got %d", rec.Code)
	}

	// Doctors pass.
	rec, _ = app.request(t, http.MethodGet, "/api/v1/patients", doctor, "")
	if rec.Code != http.StatusOK {
		t.Errorf("doctor list: expected 200, got %d", rec.Code)
	}

	// An authenticated principal cannot revisit login.
	rec, _ = app.request(t, http.MethodPost, "/api/v1/auth/login", doctor,
		`{"email":"doctor@medichat.com","role":"doctor"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("authenticated login: expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/doctor-dashboard") {
		t.Errorf("expected doctor dashboard location, got %s", rec.Body.String())
	}
}
