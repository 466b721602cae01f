package handler

import (
	"net/http"
	"testing"

	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/testutil"
)

// seedReviewFixture 两个用户、两个管理员，各有一条已填写的提交
func seedReviewFixture(t *testing.T, env *testEnv) {
	t.Helper()
	testutil.SeedTestUser(t, env.DB, "adm-1", "Admin One", "adm1@test.com", entity.RoleAdmin)
	testutil.SeedTestUser(t, env.DB, "adm-2", "Admin Two", "adm2@test.com", entity.RoleAdmin)
	testutil.SeedTestUser(t, env.DB, "sup-1", "Super", "sup@test.com", entity.RoleSuperAdmin)
	testutil.SeedTestUser(t, env.DB, "usr-1", "Alice", "alice@test.com", entity.RoleUser)
	testutil.SeedTestUser(t, env.DB, "usr-2", "Bob", "bob@test.com", entity.RoleUser)
	testutil.SeedTestTemplate(t, env.DB, "tpl-r", "Review Form", basicFields())
	testutil.SeedAssignment(t, env.DB, "edge-1", "adm-1", "usr-1")
	testutil.SeedAssignment(t, env.DB, "edge-2", "adm-2", "usr-2")

	for i, userID := range []string{"usr-1", "usr-2"} {
		token := testutil.GenerateTestToken(userID, "u", userID+"@test.com", entity.RoleUser)
		name := []string{"Alice", "Bob"}[i]
		w := testutil.DoRequest(env.Router, "PUT", "/api/v1/forms/tpl-r/draft",
			map[string]interface{}{
				"form_data": map[string]interface{}{"fld_name": name, "fld_salary": 9000},
			}, token)
		if w.Code != http.StatusOK {
			t.Fatalf("Seed draft failed: %d %s", w.Code, w.Body.String())
		}
	}
}

func TestReviewListScoping(t *testing.T) {
	env := newTestEnv(t)
	seedReviewFixture(t, env)

	// Admin one sees only the assigned user's submission
	token := testutil.GenerateTestToken("adm-1", "Admin One", "adm1@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 submission for adm-1, got %d", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["user_id"] != "usr-1" {
		t.Errorf("Expected usr-1's submission, got %v", item["user_id"])
	}

	// Super admin sees everything
	supToken := testutil.GenerateTestToken("sup-1", "Super", "sup@test.com", entity.RoleSuperAdmin)
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions", nil, supToken)
	data2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if len(data2["items"].([]interface{})) != 2 {
		t.Errorf("Expected 2 submissions for super admin, got %d", len(data2["items"].([]interface{})))
	}

	// Plain users are rejected outright
	usrToken := testutil.GenerateTestToken("usr-1", "Alice", "alice@test.com", entity.RoleUser)
	w3 := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions", nil, usrToken)
	if w3.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for user role, got %d", w3.Code)
	}
}

func TestReviewSensitiveRedaction(t *testing.T) {
	env := newTestEnv(t)
	seedReviewFixture(t, env)

	// Mark admin one as partial access
	env.DB.Model(&entity.User{}).Where("id = ?", "adm-1").
		Update("metadata", entity.JSONB{"access_level": entity.AccessPartial})

	token := testutil.GenerateTestToken("adm-1", "Admin One", "adm1@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	formData := items[0].(map[string]interface{})["form_data"].(map[string]interface{})
	if formData["fld_salary"] != entity.RedactedValue {
		t.Errorf("Expected redacted salary, got %v", formData["fld_salary"])
	}
	if formData["fld_name"] != "Alice" {
		t.Errorf("Non-sensitive value should pass through, got %v", formData["fld_name"])
	}

	// Full-access admin two sees raw values
	token2 := testutil.GenerateTestToken("adm-2", "Admin Two", "adm2@test.com", entity.RoleAdmin)
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions", nil, token2)
	items2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})["items"].([]interface{})
	formData2 := items2[0].(map[string]interface{})["form_data"].(map[string]interface{})
	if formData2["fld_salary"] != float64(9000) {
		t.Errorf("Full-access admin should see raw salary, got %v", formData2["fld_salary"])
	}
}

func TestReviewDetailAccessAndNotes(t *testing.T) {
	env := newTestEnv(t)
	seedReviewFixture(t, env)

	var sub entity.Submission
	env.DB.Where("user_id = ?", "usr-1").First(&sub)

	// Admin two is not assigned to usr-1
	token2 := testutil.GenerateTestToken("adm-2", "Admin Two", "adm2@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions/"+sub.ID, nil, token2)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for unassigned admin, got %d: %s", w.Code, w.Body.String())
	}

	// Assigned admin reads the detail with a read-only render
	token1 := testutil.GenerateTestToken("adm-1", "Admin One", "adm1@test.com", entity.RoleAdmin)
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions/"+sub.ID, nil, token1)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	detail := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	fields := detail["fields"].([]interface{})
	for _, raw := range fields {
		f := raw.(map[string]interface{})
		if f["editable"] == true {
			t.Errorf("Review render must be read-only, field %v is editable", f["id"])
		}
	}

	// Notes: add then list, newest first
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/admin/submissions/"+sub.ID+"/notes",
		map[string]interface{}{"note": "needs a second look"}, token1)
	if w3.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w3.Code, w3.Body.String())
	}
	testutil.DoRequest(env.Router, "POST", "/api/v1/admin/submissions/"+sub.ID+"/notes",
		map[string]interface{}{"note": "approved"}, token1)

	w4 := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions/"+sub.ID+"/notes", nil, token1)
	notes := testutil.ParseResponse(w4)["data"].(map[string]interface{})["items"].([]interface{})
	if len(notes) != 2 {
		t.Fatalf("Expected 2 notes, got %d", len(notes))
	}
	first := notes[0].(map[string]interface{})
	if first["note"] != "approved" {
		t.Errorf("Expected newest note first, got %v", first["note"])
	}
	if first["admin_name"] != "Admin One" {
		t.Errorf("Expected admin_name joined in, got %v", first["admin_name"])
	}

	// Unassigned admins cannot attach notes either
	w5 := testutil.DoRequest(env.Router, "POST", "/api/v1/admin/submissions/"+sub.ID+"/notes",
		map[string]interface{}{"note": "sneaky"}, token2)
	if w5.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w5.Code)
	}
}

func TestReviewStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	seedReviewFixture(t, env)
	supToken := testutil.GenerateTestToken("sup-1", "Super", "sup@test.com", entity.RoleSuperAdmin)

	// Complete one of the submissions
	usrToken := testutil.GenerateTestToken("usr-1", "Alice", "alice@test.com", entity.RoleUser)
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/forms/tpl-r/submit",
		map[string]interface{}{
			"form_data": map[string]interface{}{"fld_name": "Alice"},
		}, usrToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Submit failed: %d %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions?status=completed", nil, supToken)
	items := testutil.ParseResponse(w2)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 completed submission, got %d", len(items))
	}

	// Reserved statuses are accepted as filters but match nothing
	w3 := testutil.DoRequest(env.Router, "GET", "/api/v1/admin/submissions?status=rejected", nil, supToken)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w3.Code)
	}
	items3 := testutil.ParseResponse(w3)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items3) != 0 {
		t.Errorf("Reserved status filter should match nothing, got %d items", len(items3))
	}
}
