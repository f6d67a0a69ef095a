package app

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestProjectLifecycleOverHTTP(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	token := registerAndLogin(t, server, "/api/users/register-client", "shop@example.com", "Shop Owner")

	// Create with no stories
	rr := doJSON(t, server, http.MethodPost, "/api/projects", token,
		`{"name":"Shop App","description":"storefront"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d body=%s", rr.Code, rr.Body.String())
	}
	created := parseBody(t, rr)
	projectID, _ := created["id"].(string)
	if projectID == "" {
		t.Fatalf("expected project id, body=%s", rr.Body.String())
	}
	if created["progress"] != float64(0) {
		t.Errorf("expected progress 0 with no stories, got %v", created["progress"])
	}

	// Replace stories, one pre-done
	rr = doJSON(t, server, http.MethodPut, "/api/projects/"+projectID, token,
		`{"stories":[{"title":"Login"},{"title":"Checkout","status":"done"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update returned %d body=%s", rr.Code, rr.Body.String())
	}
	updated := parseBody(t, rr)
	if updated["progress"] != float64(50) {
		t.Errorf("expected progress 50, got %v", updated["progress"])
	}
	stories, _ := updated["stories"].([]any)
	if len(stories) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(stories))
	}
	first, _ := stories[0].(map[string]any)
	storyID, _ := first["id"].(string)
	if storyID == "" {
		t.Fatalf("expected story id, body=%s", rr.Body.String())
	}

	// Mark the pending story done through the targeted update
	rr = doJSON(t, server, http.MethodPatch, "/api/projects/"+projectID+"/stories/"+storyID, token,
		`{"status":"done"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("story update returned %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["progress"] != float64(100) {
		t.Errorf("expected progress 100, got %v", parseBody(t, rr)["progress"])
	}

	// Public view requires no token and hides the owner's email
	rr = doJSON(t, server, http.MethodGet, "/api/projects/public/"+projectID, "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("public view returned %d body=%s", rr.Code, rr.Body.String())
	}
	owner, _ := parseBody(t, rr)["owner"].(map[string]any)
	if owner["name"] != "Shop Owner" {
		t.Errorf("expected owner name on public view, got %v", owner["name"])
	}
	if _, leaked := owner["email"]; leaked {
		t.Errorf("public view leaked owner email: %v", owner)
	}

	// Delete, then reads are 404
	rr = doJSON(t, server, http.MethodDelete, "/api/projects/"+projectID, token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete returned %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodGet, "/api/projects/"+projectID, token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestListAllIsAdminOnlyOverHTTP(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	clientToken := registerAndLogin(t, server, "/api/users/register-client", "client@example.com", "Client")
	adminToken := registerAndLogin(t, server, "/api/users/register-admin", "admin@example.com", "Admin")

	rr := doJSON(t, server, http.MethodPost, "/api/projects", clientToken, `{"name":"Mine"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d", rr.Code)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/projects/all", clientToken, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for client, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "FORBIDDEN" {
		t.Errorf("expected code FORBIDDEN, got %v", parseBody(t, rr)["code"])
	}

	rr = doJSON(t, server, http.MethodGet, "/api/projects/all", adminToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestNonOwnerIsForbiddenOverHTTP(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	ownerToken := registerAndLogin(t, server, "/api/users/register-client", "owner@example.com", "Owner")
	strangerToken := registerAndLogin(t, server, "/api/users/register-client", "stranger@example.com", "Stranger")

	rr := doJSON(t, server, http.MethodPost, "/api/projects", ownerToken, `{"name":"Private"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d", rr.Code)
	}
	projectID, _ := parseBody(t, rr)["id"].(string)

	for _, tc := range []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/projects/" + projectID, ""},
		{http.MethodPut, "/api/projects/" + projectID, `{"name":"hijack"}`},
		{http.MethodDelete, "/api/projects/" + projectID, ""},
	} {
		rr := doJSON(t, server, tc.method, tc.path, strangerToken, tc.body)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403, got %d body=%s", tc.method, tc.path, rr.Code, rr.Body.String())
		}
	}

	// Public view is still reachable while the project remains public
	rr = doJSON(t, server, http.MethodGet, "/api/projects/public/"+projectID, "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("public view returned %d", rr.Code)
	}

	// Once hidden, the public view is forbidden too
	rr = doJSON(t, server, http.MethodPut, "/api/projects/"+projectID, ownerToken, `{"isPublic":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("hide returned %d", rr.Code)
	}
	rr = doJSON(t, server, http.MethodGet, "/api/projects/public/"+projectID, "", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for private public view, got %d", rr.Code)
	}
}

func TestSyncEndpointCountsCreated(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	token := registerAndLogin(t, server, "/api/users/register-client", "sync@example.com", "Sync")

	rr := doJSON(t, server, http.MethodPost, "/api/projects/sync", token,
		`{"projects":[{"name":"X"},{"name":""},{"name":"Y","stories":[{"title":"A"}]}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("sync returned %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["created"] != float64(2) {
		t.Errorf("expected created 2, got %v", parseBody(t, rr)["created"])
	}

	rr = doJSON(t, server, http.MethodGet, "/api/projects", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list returned %d", rr.Code)
	}
}

func TestUnknownProjectReturnsNotFound(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	token := registerAndLogin(t, server, "/api/users/register-client", "missing@example.com", "Missing")

	rr := doJSON(t, server, http.MethodGet, "/api/projects/proj_nope", token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodGet, "/api/projects/public/proj_nope", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for public view, got %d", rr.Code)
	}
}

func TestBusinessEndpoints(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")

	rr := doJSON(t, server, http.MethodPost, "/api/businesses", "", `{"name":"Panaderia"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/businesses", "",
		`{"name":"Panaderia","whatsapp":"+34600111222","email":"pan@example.com"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["plan"] != "freemium" {
		t.Errorf("expected default plan freemium, got %v", parseBody(t, rr)["plan"])
	}

	rr = doJSON(t, server, http.MethodGet, "/api/businesses", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var listed []any
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil {
		t.Fatalf("parse list: %v body=%s", err, rr.Body.String())
	}
	if len(listed) != 1 {
		t.Errorf("expected one business, got %d", len(listed))
	}
}
