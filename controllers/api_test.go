package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"study-booking-api/db"
	"study-booking-api/models"
	"study-booking-api/routes"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	_ = godotenv.Load("../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	gdb, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	err = gdb.AutoMigrate(
		&models.User{},
		&models.Study{},
		&models.Session{},
		&models.TimeSlot{},
		&models.Booking{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB = gdb

	app := fiber.New()
	routes.SetupAuthRoutes(app)
	routes.SetupStudyRoutes(app)
	routes.SetupSessionRoutes(app)
	routes.SetupTimeSlotRoutes(app)
	routes.SetupBookingRoutes(app)
	return app
}

func request(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func registerResearcher(t *testing.T, app *fiber.App) (token string, userID uint) {
	t.Helper()
	email := fmt.Sprintf("researcher-%d@test.com", time.Now().UnixNano())
	resp, body := request(t, app, "POST", "/auth/register", "", fiber.Map{
		"email":    email,
		"password": "testpass123",
		"name":     "Test Researcher",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	token, _ = body["token"].(string)
	if token == "" {
		t.Fatal("register returned no token")
	}
	user := body["user"].(map[string]interface{})
	return token, uint(user["id"].(float64))
}

func createStudy(t *testing.T, app *fiber.App, token string) uint {
	t.Helper()
	resp, body := request(t, app, "POST", "/studies", token, fiber.Map{
		"title":       "Reaction time study",
		"description": "Visual stimuli, 30 minutes",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create study status = %d", resp.StatusCode)
	}
	return uint(body["ID"].(float64))
}

func createSession(t *testing.T, app *fiber.App, token string, studyID uint) uint {
	t.Helper()
	resp, body := request(t, app, "POST", "/sessions", token, fiber.Map{
		"study_id": studyID,
		"location": "Room B114",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d", resp.StatusCode)
	}
	return uint(body["ID"].(float64))
}

func createSlot(t *testing.T, app *fiber.App, token string, sessionID uint, capacity int) uint {
	t.Helper()
	start := time.Now().Add(96 * time.Hour)
	resp, body := request(t, app, "POST", "/timeslots", token, fiber.Map{
		"session_id": sessionID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(30 * time.Minute).Format(time.RFC3339),
		"capacity":   capacity,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create slot status = %d", resp.StatusCode)
	}
	return uint(body["ID"].(float64))
}

func bookSlot(t *testing.T, app *fiber.App, slotID uint, name string) (*http.Response, map[string]interface{}) {
	t.Helper()
	return request(t, app, "POST", "/bookings", "", fiber.Map{
		"slot_id":    slotID,
		"name":       name,
		"email":      "",
		"consent_at": time.Now().Format(time.RFC3339),
	})
}

// ----- auth -----

func TestRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	email := fmt.Sprintf("login-%d@test.com", time.Now().UnixNano())
	resp, _ := request(t, app, "POST", "/auth/register", "", fiber.Map{
		"email": email, "password": "testpass123", "name": "X",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	resp, body := request(t, app, "POST", "/auth/login", "", fiber.Map{
		"email": email, "password": "testpass123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	if body["token"] == "" || body["refreshToken"] == "" {
		t.Fatal("login returned no tokens")
	}

	resp, _ = request(t, app, "POST", "/auth/login", "", fiber.Map{
		"email": email, "password": "wrongpass",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	app := setupApp(t)

	tests := []struct {
		name string
		body fiber.Map
	}{
		{"missing email", fiber.Map{"password": "testpass123", "name": "X"}},
		{"missing password", fiber.Map{"email": "a@b.com", "name": "X"}},
		{"short password", fiber.Map{"email": "a@b.com", "password": "short", "name": "X"}},
		{"missing name", fiber.Map{"email": "a@b.com", "password": "testpass123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := request(t, app, "POST", "/auth/register", "", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := setupApp(t)

	email := fmt.Sprintf("dup-%d@test.com", time.Now().UnixNano())
	payload := fiber.Map{"email": email, "password": "testpass123", "name": "X"}

	resp, body := request(t, app, "POST", "/auth/register", "", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register status = %d", resp.StatusCode)
	}
	userID := uint(body["user"].(map[string]interface{})["id"].(float64))

	resp, _ = request(t, app, "POST", "/auth/register", "", payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	// The email index is absolute: the address stays taken even after the
	// account is soft-deleted.
	if err := db.DB.Delete(&models.User{}, userID).Error; err != nil {
		t.Fatalf("soft-delete user: %v", err)
	}
	resp, _ = request(t, app, "POST", "/auth/register", "", payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("register over deleted account status = %d, want 409", resp.StatusCode)
	}
}

func TestRegisterIgnoresClientSuppliedIdentity(t *testing.T) {
	app := setupApp(t)

	email := fmt.Sprintf("sneaky-%d@test.com", time.Now().UnixNano())
	resp, body := request(t, app, "POST", "/auth/register", "", fiber.Map{
		"email":    email,
		"password": "testpass123",
		"name":     "X",
		"id":       999999999,
		"role":     "admin",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	user := body["user"].(map[string]interface{})
	if uint(user["id"].(float64)) == 999999999 {
		t.Error("client-supplied id must not be honored")
	}
	if user["role"] != "researcher" {
		t.Errorf("role = %v, want researcher", user["role"])
	}
}

// ----- ownership gate -----

func TestStudyMutationRequiresOwner(t *testing.T) {
	app := setupApp(t)
	ownerToken, _ := registerResearcher(t, app)
	otherToken, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, ownerToken)

	resp, _ := request(t, app, "PUT", fmt.Sprintf("/studies/%d", studyID), otherToken, fiber.Map{
		"title": "hijacked",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner update status = %d, want 403", resp.StatusCode)
	}

	resp, _ = request(t, app, "DELETE", fmt.Sprintf("/studies/%d", studyID), otherToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner delete status = %d, want 403", resp.StatusCode)
	}

	resp, _ = request(t, app, "PUT", fmt.Sprintf("/studies/%d", studyID), ownerToken, fiber.Map{
		"title": "Updated title",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner update status = %d, want 200", resp.StatusCode)
	}

	resp, _ = request(t, app, "DELETE", fmt.Sprintf("/studies/%d", studyID), ownerToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("owner delete status = %d, want 204", resp.StatusCode)
	}
}

func TestDescendantMutationRequiresOwner(t *testing.T) {
	app := setupApp(t)
	ownerToken, _ := registerResearcher(t, app)
	otherToken, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, ownerToken)

	resp, _ := request(t, app, "POST", "/sessions", otherToken, fiber.Map{
		"study_id": studyID,
		"location": "Room 1",
		"date":     time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner session create status = %d, want 403", resp.StatusCode)
	}

	sessionID := createSession(t, app, ownerToken, studyID)
	resp, _ = request(t, app, "DELETE", fmt.Sprintf("/sessions/%d", sessionID), otherToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner session delete status = %d, want 403", resp.StatusCode)
	}
}

// ----- time slot validation -----

func TestCreateTimeSlotRejectsBadInput(t *testing.T) {
	app := setupApp(t)
	token, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, token)
	sessionID := createSession(t, app, token, studyID)
	start := time.Now().Add(time.Hour)

	tests := []struct {
		name string
		body fiber.Map
	}{
		{"zero capacity", fiber.Map{
			"session_id": sessionID,
			"start_time": start.Format(time.RFC3339),
			"end_time":   start.Add(time.Hour).Format(time.RFC3339),
			"capacity":   0,
		}},
		{"inverted range", fiber.Map{
			"session_id": sessionID,
			"start_time": start.Format(time.RFC3339),
			"end_time":   start.Add(-time.Hour).Format(time.RFC3339),
			"capacity":   1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := request(t, app, "POST", "/timeslots", token, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestUpdateTimeSlotOverHTTP(t *testing.T) {
	app := setupApp(t)
	ownerToken, _ := registerResearcher(t, app)
	otherToken, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, ownerToken)
	sessionID := createSession(t, app, ownerToken, studyID)
	slotID := createSlot(t, app, ownerToken, sessionID, 2)

	bookSlot(t, app, slotID, "Alice")
	bookSlot(t, app, slotID, "Bob")

	resp, _ := request(t, app, "PUT", fmt.Sprintf("/timeslots/%d", slotID), otherToken, fiber.Map{
		"capacity": 5,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner update status = %d, want 403", resp.StatusCode)
	}

	// Capacity cannot drop below the two admitted bookings.
	resp, _ = request(t, app, "PUT", fmt.Sprintf("/timeslots/%d", slotID), ownerToken, fiber.Map{
		"capacity": 1,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("shrink below bookings status = %d, want 400", resp.StatusCode)
	}

	resp, body := request(t, app, "PUT", fmt.Sprintf("/timeslots/%d", slotID), ownerToken, fiber.Map{
		"capacity": 5,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner update status = %d, want 200", resp.StatusCode)
	}
	if int(body["capacity"].(float64)) != 5 || int(body["available_count"].(float64)) != 3 {
		t.Errorf("capacity/available = %v/%v, want 5/3", body["capacity"], body["available_count"])
	}

	resp, _ = request(t, app, "PUT", "/timeslots/999999999", ownerToken, fiber.Map{
		"capacity": 5,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown slot update status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionAndSlotListings(t *testing.T) {
	app := setupApp(t)
	token, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, token)
	sessionID := createSession(t, app, token, studyID)
	slotID := createSlot(t, app, token, sessionID, 1)

	listIDs := func(path string) map[uint]bool {
		t.Helper()
		req := httptest.NewRequest("GET", path, nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
		var rows []map[string]interface{}
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &rows); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		ids := make(map[uint]bool, len(rows))
		for _, r := range rows {
			ids[uint(r["ID"].(float64))] = true
		}
		return ids
	}

	if !listIDs("/sessions/")[sessionID] {
		t.Error("session missing from listing")
	}
	if !listIDs("/timeslots/")[slotID] {
		t.Error("slot missing from listing")
	}

	resp, _ := request(t, app, "DELETE", fmt.Sprintf("/studies/%d", studyID), token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete study status = %d", resp.StatusCode)
	}

	if listIDs("/sessions/")[sessionID] {
		t.Error("session of deleted study still listed")
	}
	if listIDs("/timeslots/")[slotID] {
		t.Error("slot of deleted study still listed")
	}
}

// ----- booking admission -----

func TestBookingFillsSlotThenConflicts(t *testing.T) {
	app := setupApp(t)
	token, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, token)
	sessionID := createSession(t, app, token, studyID)
	slotID := createSlot(t, app, token, sessionID, 1)

	resp, _ := bookSlot(t, app, slotID, "First participant")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first booking status = %d, want 201", resp.StatusCode)
	}

	resp, body := bookSlot(t, app, slotID, "Second participant")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second booking status = %d, want 409", resp.StatusCode)
	}
	if body["error"] != "Slot is full" {
		t.Errorf("conflict body = %v, want {error: Slot is full}", body)
	}
}

func TestBookingUnknownSlotIs404(t *testing.T) {
	app := setupApp(t)

	resp, _ := bookSlot(t, app, 999999999, "Nobody")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBookingMissingFieldsIs400(t *testing.T) {
	app := setupApp(t)
	token, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, token)
	sessionID := createSession(t, app, token, studyID)
	slotID := createSlot(t, app, token, sessionID, 1)

	resp, _ := request(t, app, "POST", "/bookings", "", fiber.Map{
		"slot_id": slotID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestConcurrentBookingsCapacityOne(t *testing.T) {
	app := setupApp(t)
	token, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, token)
	sessionID := createSession(t, app, token, studyID)
	slotID := createSlot(t, app, token, sessionID, 1)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload, _ := json.Marshal(fiber.Map{
				"slot_id":    slotID,
				"name":       fmt.Sprintf("racer-%d", i),
				"consent_at": time.Now().Format(time.RFC3339),
			})
			req := httptest.NewRequest("POST", "/bookings", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Errorf("booking request: %v", err)
				return
			}
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created, conflicted := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if created != 1 || conflicted != 1 {
		t.Fatalf("created=%d conflicted=%d, want exactly one of each", created, conflicted)
	}
}

// ----- cascade over HTTP -----

func TestDeleteSessionCascadesOverHTTP(t *testing.T) {
	app := setupApp(t)
	token, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, token)
	sessionID := createSession(t, app, token, studyID)

	slotIDs := make([]uint, 3)
	for i := range slotIDs {
		slotIDs[i] = createSlot(t, app, token, sessionID, 5)
	}
	for i := 0; i < 5; i++ {
		resp, _ := bookSlot(t, app, slotIDs[i%3], fmt.Sprintf("participant-%d", i))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("booking %d status = %d", i, resp.StatusCode)
		}
	}

	resp, _ := request(t, app, "DELETE", fmt.Sprintf("/sessions/%d", sessionID), token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete session status = %d", resp.StatusCode)
	}

	resp, _ = request(t, app, "GET", fmt.Sprintf("/sessions/%d", sessionID), "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted session GET status = %d, want 404", resp.StatusCode)
	}
	for _, slotID := range slotIDs {
		resp, _ = request(t, app, "GET", fmt.Sprintf("/timeslots/%d", slotID), "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("slot %d GET status = %d, want 404", slotID, resp.StatusCode)
		}
	}

	// Bookings survive on the audit path, owner only.
	total := 0
	for _, slotID := range slotIDs {
		req := httptest.NewRequest("GET", fmt.Sprintf("/timeslots/%d/bookings/audit", slotID), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		auditResp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("audit request: %v", err)
		}
		if auditResp.StatusCode != http.StatusOK {
			t.Fatalf("audit status = %d", auditResp.StatusCode)
		}
		var rows []map[string]interface{}
		raw, _ := io.ReadAll(auditResp.Body)
		if err := json.Unmarshal(raw, &rows); err != nil {
			t.Fatalf("audit decode: %v", err)
		}
		total += len(rows)
	}
	if total != 5 {
		t.Errorf("audit bookings = %d, want 5", total)
	}
}

func TestDeletedStudyDisappearsFromListing(t *testing.T) {
	app := setupApp(t)
	token, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, token)

	resp, _ := request(t, app, "DELETE", fmt.Sprintf("/studies/%d", studyID), token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, _ = request(t, app, "GET", fmt.Sprintf("/studies/%d", studyID), "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted study GET status = %d, want 404", resp.StatusCode)
	}

	req := httptest.NewRequest("GET", "/studies/", nil)
	listResp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	var studies []map[string]interface{}
	raw, _ := io.ReadAll(listResp.Body)
	if err := json.Unmarshal(raw, &studies); err != nil {
		t.Fatalf("list decode: %v", err)
	}
	for _, s := range studies {
		if uint(s["ID"].(float64)) == studyID {
			t.Error("deleted study still listed")
		}
	}
}

// ----- availability over HTTP -----

func TestSlotAvailabilityCounts(t *testing.T) {
	app := setupApp(t)
	token, _ := registerResearcher(t, app)
	studyID := createStudy(t, app, token)
	sessionID := createSession(t, app, token, studyID)
	slotID := createSlot(t, app, token, sessionID, 3)

	check := func(wantBooked, wantAvailable int, wantFull bool) {
		t.Helper()
		resp, body := request(t, app, "GET", fmt.Sprintf("/timeslots/%d", slotID), "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get slot status = %d", resp.StatusCode)
		}
		if int(body["booked_count"].(float64)) != wantBooked ||
			int(body["available_count"].(float64)) != wantAvailable ||
			body["is_full"].(bool) != wantFull {
			t.Errorf("occupancy = %v/%v full=%v, want %d/%d full=%v",
				body["booked_count"], body["available_count"], body["is_full"],
				wantBooked, wantAvailable, wantFull)
		}
	}

	check(0, 3, false)
	bookSlot(t, app, slotID, "Alice")
	check(1, 2, false)
	bookSlot(t, app, slotID, "Bob")
	bookSlot(t, app, slotID, "Carol")
	check(3, 0, true)
}
