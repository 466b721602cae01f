package handler

import (
	"net/http"
	"testing"

	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/testutil"
)

func superToken() string {
	return testutil.GenerateTestToken("sup-t", "Super", "sup@test.com", entity.RoleSuperAdmin)
}

func TestTemplateCRUD(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedTestUser(t, env.DB, "sup-t", "Super", "sup@test.com", entity.RoleSuperAdmin)
	token := superToken()

	// Create with inline fields; missing ids are assigned
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/templates",
		map[string]interface{}{"name": "Employee Info"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	tplID := data["id"].(string)

	// Update name
	w2 := testutil.DoRequest(env.Router, "PUT", "/api/v1/templates/"+tplID,
		map[string]interface{}{"name": "Employee Info v2"}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	data2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if data2["name"] != "Employee Info v2" {
		t.Errorf("Expected renamed template, got %v", data2["name"])
	}

	// Admins cannot reach the designer endpoints
	admToken := testutil.GenerateTestToken("adm-t", "Admin", "adm@test.com", entity.RoleAdmin)
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/templates",
		map[string]interface{}{"name": "nope"}, admToken)
	if w3.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for admin role, got %d", w3.Code)
	}

	// Delete
	w4 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/templates/"+tplID, nil, token)
	if w4.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w4.Code, w4.Body.String())
	}
	w5 := testutil.DoRequest(env.Router, "GET", "/api/v1/templates/"+tplID, nil, token)
	if w5.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w5.Code)
	}
}

func TestTemplateFieldOperations(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedTestUser(t, env.DB, "sup-t", "Super", "sup@test.com", entity.RoleSuperAdmin)
	testutil.SeedTestTemplate(t, env.DB, "tpl-f", "Builder", entity.FieldList{})
	token := superToken()

	// Add a text field; server assigns the id
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/templates/tpl-f/fields",
		map[string]interface{}{
			"label": "Full Name", "type": "text", "required": true,
		}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	fields := testutil.ParseResponse(w)["data"].(map[string]interface{})["fields"].([]interface{})
	field := fields[0].(map[string]interface{})
	fieldID := field["id"].(string)
	if fieldID == "" {
		t.Fatal("Expected a server-assigned field id")
	}

	// Add a dropdown with no options: one default option is created
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/templates/tpl-f/fields",
		map[string]interface{}{"label": "Team", "type": "dropdown"}, token)
	fields2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})["fields"].([]interface{})
	dropdown := fields2[1].(map[string]interface{})
	dropdownID := dropdown["id"].(string)
	options := dropdown["options"].([]interface{})
	if len(options) != 1 {
		t.Fatalf("Expected 1 default option, got %d", len(options))
	}
	opt := options[0].(map[string]interface{})
	if opt["label"] != "Option 1" || opt["value"] != "option1" {
		t.Errorf("Unexpected default option: %v", opt)
	}

	// Update the field: id in the body is ignored, slugs recomputed
	w3 := testutil.DoRequest(env.Router, "PUT", "/api/v1/templates/tpl-f/fields/"+dropdownID,
		map[string]interface{}{
			"id": "forged-id", "label": "Team", "type": "dropdown",
			"options": []map[string]interface{}{
				{"label": "Core Team"}, {"label": "Platform"},
			},
		}, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	fields3 := testutil.ParseResponse(w3)["data"].(map[string]interface{})["fields"].([]interface{})
	updated := fields3[1].(map[string]interface{})
	if updated["id"] != dropdownID {
		t.Errorf("Field id must be immutable, got %v", updated["id"])
	}
	opts := updated["options"].([]interface{})
	if opts[0].(map[string]interface{})["value"] != "core_team" {
		t.Errorf("Expected slug core_team, got %v", opts[0].(map[string]interface{})["value"])
	}

	// Removing options down to the last one is rejected
	testutil.DoRequest(env.Router, "DELETE",
		"/api/v1/templates/tpl-f/fields/"+dropdownID+"/options/core_team", nil, token)
	w4 := testutil.DoRequest(env.Router, "DELETE",
		"/api/v1/templates/tpl-f/fields/"+dropdownID+"/options/platform", nil, token)
	if w4.Code != http.StatusConflict {
		t.Errorf("Expected 409 when removing the last option, got %d: %s", w4.Code, w4.Body.String())
	}

	// Move: first field up is a no-op, down swaps
	w5 := testutil.DoRequest(env.Router, "POST",
		"/api/v1/templates/tpl-f/fields/"+fieldID+"/move",
		map[string]interface{}{"direction": "up"}, token)
	if w5.Code != http.StatusOK {
		t.Fatalf("Expected 200 for boundary move, got %d: %s", w5.Code, w5.Body.String())
	}
	fields5 := testutil.ParseResponse(w5)["data"].(map[string]interface{})["fields"].([]interface{})
	if fields5[0].(map[string]interface{})["id"] != fieldID {
		t.Error("Boundary move must not reorder")
	}

	w6 := testutil.DoRequest(env.Router, "POST",
		"/api/v1/templates/tpl-f/fields/"+fieldID+"/move",
		map[string]interface{}{"direction": "down"}, token)
	fields6 := testutil.ParseResponse(w6)["data"].(map[string]interface{})["fields"].([]interface{})
	if fields6[1].(map[string]interface{})["id"] != fieldID {
		t.Error("Expected field moved down one position")
	}

	// Remove field
	w7 := testutil.DoRequest(env.Router, "DELETE",
		"/api/v1/templates/tpl-f/fields/"+fieldID, nil, token)
	fields7 := testutil.ParseResponse(w7)["data"].(map[string]interface{})["fields"].([]interface{})
	if len(fields7) != 1 {
		t.Errorf("Expected 1 field left, got %d", len(fields7))
	}
}

func TestTemplateDuplicate(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedTestUser(t, env.DB, "sup-t", "Super", "sup@test.com", entity.RoleSuperAdmin)
	tmpl := testutil.SeedTestTemplate(t, env.DB, "tpl-d", "Quarterly Review", basicFields())
	env.DB.Model(tmpl).Update("is_predefined", true)
	token := superToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/templates/tpl-d/duplicate", nil, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	dup := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if dup["name"] != "Quarterly Review (Copy)" {
		t.Errorf("Expected copy suffix, got %v", dup["name"])
	}
	if dup["is_predefined"] != false {
		t.Error("Duplicates are always custom templates")
	}
	if len(dup["fields"].([]interface{})) != len(basicFields()) {
		t.Error("Duplicate should carry all fields")
	}
	if dup["id"] == "tpl-d" {
		t.Error("Duplicate must get a fresh id")
	}
}

func TestTemplateDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedTestUser(t, env.DB, "sup-t", "Super", "sup@test.com", entity.RoleSuperAdmin)
	testutil.SeedTestUser(t, env.DB, "usr-d", "User", "usrd@test.com", entity.RoleUser)
	testutil.SeedTestTemplate(t, env.DB, "tpl-c", "Cascade", basicFields())
	token := superToken()

	usrToken := testutil.GenerateTestToken("usr-d", "User", "usrd@test.com", entity.RoleUser)
	w := testutil.DoRequest(env.Router, "PUT", "/api/v1/forms/tpl-c/draft",
		map[string]interface{}{
			"form_data": map[string]interface{}{"fld_name": "User"},
		}, usrToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Draft failed: %d %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/templates/tpl-c", nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	var count int64
	env.DB.Model(&entity.Submission{}).Where("form_template_id = ?", "tpl-c").Count(&count)
	if count != 0 {
		t.Errorf("Expected submissions cascade-deleted, %d left", count)
	}
}
