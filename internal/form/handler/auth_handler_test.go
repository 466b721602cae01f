package handler

import (
	"net/http"
	"testing"

	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/testutil"
	"github.com/formkite/formkite/internal/shared/invitecode"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register",
		map[string]interface{}{
			"email":    "Alice@Test.com",
			"password": "supersecret1",
			"name":     "Alice",
		}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	if user["email"] != "alice@test.com" {
		t.Errorf("Expected lower-cased email, got %v", user["email"])
	}
	if user["role"] != entity.RoleUser {
		t.Errorf("New accounts start as user, got %v", user["role"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password_hash must never appear in responses")
	}
	tokenData := data["token"].(map[string]interface{})
	if tokenData["access_token"] == "" {
		t.Error("Expected an access token on register")
	}

	// Duplicate email conflicts
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register",
		map[string]interface{}{
			"email":    "alice@test.com",
			"password": "othersecret1",
		}, "")
	if w2.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d", w2.Code)
	}

	// Short passwords are rejected
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register",
		map[string]interface{}{
			"email":    "bob@test.com",
			"password": "short",
		}, "")
	if w3.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for weak password, got %d", w3.Code)
	}

	// Login round-trips and /auth/me works with the issued token
	w4 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login",
		map[string]interface{}{
			"email":    "alice@test.com",
			"password": "supersecret1",
		}, "")
	if w4.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w4.Code, w4.Body.String())
	}
	access := testutil.ParseResponse(w4)["data"].(map[string]interface{})["token"].(map[string]interface{})["access_token"].(string)

	w5 := testutil.DoRequest(env.Router, "GET", "/api/v1/auth/me", nil, access)
	if w5.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w5.Code, w5.Body.String())
	}
	me := testutil.ParseResponse(w5)["data"].(map[string]interface{})
	if me["email"] != "alice@test.com" {
		t.Errorf("Expected own profile, got %v", me["email"])
	}

	// Wrong password
	w6 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login",
		map[string]interface{}{
			"email":    "alice@test.com",
			"password": "wrongwrong",
		}, "")
	if w6.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", w6.Code)
	}
}

func TestRegisterWithInviteCode(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedTestUser(t, env.DB, "adm-r", "Admin R", "admr@test.com", entity.RoleAdmin)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register",
		map[string]interface{}{
			"email":       "invited@test.com",
			"password":    "supersecret1",
			"invite_code": invitecode.Encode("adm-r"),
		}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	user := testutil.ParseResponse(w)["data"].(map[string]interface{})["user"].(map[string]interface{})

	var count int64
	env.DB.Model(&entity.AdminAssignment{}).
		Where("admin_id = ? AND user_id = ?", "adm-r", user["id"]).Count(&count)
	if count != 1 {
		t.Errorf("Expected signup with invite code to create the edge, got %d", count)
	}

	// A bad invite code does not block registration
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register",
		map[string]interface{}{
			"email":       "solo@test.com",
			"password":    "supersecret1",
			"invite_code": "garbage!!",
		}, "")
	if w2.Code != http.StatusCreated {
		t.Errorf("Expected 201 despite bad invite code, got %d: %s", w2.Code, w2.Body.String())
	}
}
