package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// registerAndLogin creates an account through the API and returns its token
// and user ID.
func registerAndLogin(t *testing.T, server *httptest.Server, username string) (string, int64) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" || loginResp.User == nil {
		t.Fatal("empty token or user from login")
	}
	return loginResp.Token, loginResp.User.ID
}

func TestRegisterAndLogin(t *testing.T) {
	server := setupTestServer(t)

	token, _ := registerAndLogin(t, server, "mojca")
	if token == "" {
		t.Fatal("expected a token")
	}

	// Duplicate registration.
	body, _ := json.Marshal(map[string]string{"username": "mojca", "password": "other"})
	resp, _ := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Wrong password.
	body, _ = json.Marshal(map[string]string{"username": "mojca", "password": "wrong"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	server := setupTestServer(t)

	// Browsing is public.
	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for public item listing, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Reporting is not.
	req, _ := authRequest("POST", server.URL+"/api/items", "", map[string]string{"title": "Keys"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated report, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestItemsAPIFlow(t *testing.T) {
	server := setupTestServer(t)
	ownerToken, _ := registerAndLogin(t, server, "owner")
	otherToken, _ := registerAndLogin(t, server, "other")

	// Report a lost item (default status).
	req, _ := authRequest("POST", server.URL+"/api/items", ownerToken, map[string]string{
		"title":    "Wallet",
		"category": "accessories",
		"location": "main station",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var item model.Item
	json.NewDecoder(resp.Body).Decode(&item)
	resp.Body.Close()
	if item.Status != model.ItemStatusLost {
		t.Errorf("expected default status 'lost', got %q", item.Status)
	}

	// Missing fields.
	req, _ = authRequest("POST", server.URL+"/api/items", ownerToken, map[string]string{"title": "Keys"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Public get.
	resp, _ = http.Get(server.URL + "/api/items/" + itoa(item.ID))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Malformed and missing ids.
	resp, _ = http.Get(server.URL + "/api/items/abc")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp, _ = http.Get(server.URL + "/api/items/99999")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Owner advances lost -> found.
	req, _ = authRequest("PUT", server.URL+"/api/items/"+itoa(item.ID)+"/status", ownerToken,
		map[string]string{"status": model.ItemStatusFound})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Skipping a step is rejected with the allowed transition.
	req, _ = authRequest("PUT", server.URL+"/api/items/"+itoa(item.ID)+"/status", ownerToken,
		map[string]string{"status": model.ItemStatusReturned})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for skipped transition, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Non-owner cannot advance.
	req, _ = authRequest("PUT", server.URL+"/api/items/"+itoa(item.ID)+"/status", otherToken,
		map[string]string{"status": model.ItemStatusClaimed})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server := setupTestServer(t)
	token, _ := registerAndLogin(t, server, "mojca")

	req, _ := authRequest("GET", server.URL+"/api/auth/me", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/auth/me", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminOnlyRoutes(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "root", string(hash), model.RoleAdmin)

	body, _ := json.Marshal(map[string]string{"username": "root", "password": "password"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	resp.Body.Close()

	req, _ := authRequest("GET", server.URL+"/api/users", loginResp.Token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for admin listing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A regular user is rejected.
	userBody, _ := json.Marshal(map[string]string{"username": "pleb", "password": "password"})
	resp, _ = http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(userBody))
	resp.Body.Close()
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(userBody))
	var userLogin struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&userLogin)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/users", userLogin.Token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for regular user, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
