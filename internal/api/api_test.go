package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/centsible-app/centsible/internal/auth"
	"github.com/centsible-app/centsible/internal/config"
	"github.com/centsible-app/centsible/internal/models"
	"github.com/centsible-app/centsible/internal/service"
	"github.com/centsible-app/centsible/internal/storage/sqlite"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir, err := os.MkdirTemp("", "centsible-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{
			Environment: config.EnvDevelopment,
			Port:        "8080",
		},
	}

	return NewRouter(Dependencies{
		Config:        cfg,
		JWTManager:    auth.NewJWTManager("api-test-secret", time.Hour),
		Authenticator: auth.NewPasswordAuthenticator(store),
		Users:         store,
		Groups:        service.NewGroupService(store),
		Settlements:   service.NewSettlementService(store),
	})
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func signupUser(t *testing.T, r *gin.Engine, email, name string) (userID, token string) {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/auth/signup", "", gin.H{
		"email":        email,
		"display_name": name,
		"password":     "correct-horse-battery",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup failed: status %d, body %s", w.Code, w.Body.String())
	}
	var resp authResponse
	decodeBody(t, w, &resp)
	return resp.User.ID, resp.Token
}

func createGroup(t *testing.T, r *gin.Engine, token, name string) *models.Group {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/groups", token, gin.H{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create group failed: status %d, body %s", w.Code, w.Body.String())
	}
	var group models.Group
	decodeBody(t, w, &group)
	return &group
}

func joinGroup(t *testing.T, r *gin.Engine, token, code string) {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/groups/join", token, gin.H{"join_code": code})
	if w.Code != http.StatusOK {
		t.Fatalf("join group failed: status %d, body %s", w.Code, w.Body.String())
	}
}

func findSplit(t *testing.T, splits []splitResponse, memberID string) splitResponse {
	t.Helper()
	for _, s := range splits {
		if s.MemberID == memberID {
			return s
		}
	}
	t.Fatalf("no split for member %s", memberID)
	return splitResponse{}
}

func findMember(t *testing.T, members []memberBalanceResponse, memberID string) memberBalanceResponse {
	t.Helper()
	for _, m := range members {
		if m.MemberID == memberID {
			return m
		}
	}
	t.Fatalf("no balance entry for member %s", memberID)
	return memberBalanceResponse{}
}

func TestPing(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/ping", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ping failed: status %d", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("expected status healthy, got %q", resp["status"])
	}
	if resp["version"] != version {
		t.Errorf("expected version %q, got %q", version, resp["version"])
	}
}

func TestAuthFlow(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(t, r, http.MethodPost, "/auth/signup", "", gin.H{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "hunter2hunter2",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup failed: status %d, body %s", w.Code, w.Body.String())
	}
	var signup authResponse
	decodeBody(t, w, &signup)
	if signup.User.ID == "" || signup.Token == "" {
		t.Fatalf("expected user id and token, got %+v", signup)
	}
	if signup.User.Email != "alice@example.com" {
		t.Errorf("expected email to round-trip, got %q", signup.User.Email)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("response leaks password material: %s", w.Body.String())
	}

	w = doRequest(t, r, http.MethodPost, "/auth/signup", "", gin.H{
		"email":        "alice@example.com",
		"display_name": "Alice Again",
		"password":     "hunter2hunter2",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate signup: expected 409, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/auth/signup", "", gin.H{
		"email":        "bob@example.com",
		"display_name": "Bob",
		"password":     "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("weak password: expected 400, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/auth/signup", "", gin.H{
		"email":        "not-an-email",
		"display_name": "Bob",
		"password":     "hunter2hunter2",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed email: expected 400, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: status %d, body %s", w.Code, w.Body.String())
	}
	var login authResponse
	decodeBody(t, w, &login)
	if login.Token == "" {
		t.Fatal("expected a token from login")
	}

	w = doRequest(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password login: expected 401, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/auth/me", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me failed: status %d, body %s", w.Code, w.Body.String())
	}
	var me models.User
	decodeBody(t, w, &me)
	if me.ID != signup.User.ID {
		t.Errorf("expected me %s, got %s", signup.User.ID, me.ID)
	}

	w = doRequest(t, r, http.MethodGet, "/auth/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me without token: expected 401, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/auth/me", "not-a-jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me with garbage token: expected 401, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/groups", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("protected route without token: expected 401, got %d", w.Code)
	}
}

func TestGroupFlow(t *testing.T) {
	r := newTestRouter(t)
	aliceID, aliceToken := signupUser(t, r, "alice@example.com", "Alice")
	bobID, bobToken := signupUser(t, r, "bob@example.com", "Bob")
	_, carolToken := signupUser(t, r, "carol@example.com", "Carol")

	group := createGroup(t, r, aliceToken, "Ski Trip")
	if len(group.JoinCode) != 4 {
		t.Fatalf("expected a 4 character join code, got %q", group.JoinCode)
	}
	if group.CreatedBy != aliceID {
		t.Errorf("expected creator %s, got %s", aliceID, group.CreatedBy)
	}
	if len(group.Members) != 1 || group.Members[0] != aliceID {
		t.Errorf("expected creator enrolled, got members %v", group.Members)
	}

	w := doRequest(t, r, http.MethodGet, "/api/groups", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list groups failed: status %d", w.Code)
	}
	var list struct {
		Groups []*models.Group `json:"groups"`
	}
	decodeBody(t, w, &list)
	if len(list.Groups) != 1 || list.Groups[0].ID != group.ID {
		t.Fatalf("expected 1 group, got %+v", list.Groups)
	}

	// Codes are matched case-insensitively.
	w = doRequest(t, r, http.MethodPost, "/api/groups/join", bobToken, gin.H{
		"join_code": strings.ToLower(group.JoinCode),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("join failed: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodPost, "/api/groups/join", bobToken, gin.H{"join_code": group.JoinCode})
	if w.Code != http.StatusConflict {
		t.Errorf("joining twice: expected 409, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/groups/join", carolToken, gin.H{"join_code": "0000"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown join code: expected 404, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/groups/"+group.ID, bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get group failed: status %d", w.Code)
	}
	var detail models.Group
	decodeBody(t, w, &detail)
	if len(detail.Members) != 2 {
		t.Errorf("expected 2 members, got %v", detail.Members)
	}
	if !detail.IsMember(bobID) {
		t.Errorf("expected bob enrolled, got %v", detail.Members)
	}

	w = doRequest(t, r, http.MethodGet, "/api/groups/"+group.ID, carolToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("outsider get group: expected 403, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/groups/no-such-group", aliceToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown group: expected 404, got %d", w.Code)
	}
}

func TestExpenseFlow(t *testing.T) {
	r := newTestRouter(t)
	aliceID, aliceToken := signupUser(t, r, "alice@example.com", "Alice")
	bobID, bobToken := signupUser(t, r, "bob@example.com", "Bob")
	carolID, carolToken := signupUser(t, r, "carol@example.com", "Carol")
	_, malloryToken := signupUser(t, r, "mallory@example.com", "Mallory")

	group := createGroup(t, r, aliceToken, "Trip")
	joinGroup(t, r, bobToken, group.JoinCode)
	joinGroup(t, r, carolToken, group.JoinCode)

	w := doRequest(t, r, http.MethodPost, "/api/expenses", aliceToken, gin.H{
		"group_id":    group.ID,
		"description": "Dinner",
		"amount":      "90.00",
		"category":    "food",
		"split":       gin.H{"policy": "equal"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create expense failed: status %d, body %s", w.Code, w.Body.String())
	}
	var dinner expenseResponse
	decodeBody(t, w, &dinner)
	if dinner.TotalAmount != "90.00" {
		t.Errorf("expected total 90.00, got %q", dinner.TotalAmount)
	}
	if dinner.SplitMethod != "equal" {
		t.Errorf("expected split method equal, got %q", dinner.SplitMethod)
	}
	if dinner.PayerID != aliceID {
		t.Errorf("expected payer to default to the caller, got %s", dinner.PayerID)
	}
	if len(dinner.Splits) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(dinner.Splits))
	}
	for _, id := range []string{aliceID, bobID, carolID} {
		if share := findSplit(t, dinner.Splits, id); share.ShareAmount != "30.00" {
			t.Errorf("expected share 30.00 for %s, got %q", id, share.ShareAmount)
		}
	}
	if role := findSplit(t, dinner.Splits, aliceID).Role; role != "payer" {
		t.Errorf("expected payer role for alice, got %q", role)
	}

	w = doRequest(t, r, http.MethodPost, "/api/expenses", aliceToken, gin.H{
		"group_id":    group.ID,
		"description": "Hotel",
		"amount":      "100.00",
		"split": gin.H{
			"policy": "custom",
			"participants": []gin.H{
				{"member_id": bobID, "fixed_amount": "25.00"},
				{"member_id": carolID, "percent": "25"},
				{"member_id": aliceID, "remainder": true},
			},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("custom expense failed: status %d, body %s", w.Code, w.Body.String())
	}
	var hotel expenseResponse
	decodeBody(t, w, &hotel)
	if share := findSplit(t, hotel.Splits, bobID).ShareAmount; share != "25.00" {
		t.Errorf("expected fixed share 25.00, got %q", share)
	}
	if share := findSplit(t, hotel.Splits, carolID).ShareAmount; share != "25.00" {
		t.Errorf("expected percent share 25.00, got %q", share)
	}
	if share := findSplit(t, hotel.Splits, aliceID).ShareAmount; share != "50.00" {
		t.Errorf("expected remainder share 50.00, got %q", share)
	}

	w = doRequest(t, r, http.MethodGet, "/api/groups/"+group.ID+"/expenses", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list expenses failed: status %d", w.Code)
	}
	var listed struct {
		Expenses []expenseResponse `json:"expenses"`
	}
	decodeBody(t, w, &listed)
	if len(listed.Expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(listed.Expenses))
	}

	rejections := []struct {
		name string
		body gin.H
		want int
	}{
		{
			name: "sub-cent amount",
			body: gin.H{"group_id": group.ID, "description": "x", "amount": "10.005", "split": gin.H{"policy": "equal"}},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown policy",
			body: gin.H{"group_id": group.ID, "description": "x", "amount": "10.00", "split": gin.H{"policy": "weighted"}},
			want: http.StatusBadRequest,
		},
		{
			name: "custom without participants",
			body: gin.H{"group_id": group.ID, "description": "x", "amount": "10.00", "split": gin.H{"policy": "custom"}},
			want: http.StatusBadRequest,
		},
		{
			name: "equal with participants",
			body: gin.H{"group_id": group.ID, "description": "x", "amount": "10.00", "split": gin.H{
				"policy":       "equal",
				"participants": []gin.H{{"member_id": bobID, "remainder": true}},
			}},
			want: http.StatusBadRequest,
		},
		{
			name: "two strategies on one participant",
			body: gin.H{"group_id": group.ID, "description": "x", "amount": "10.00", "split": gin.H{
				"policy":       "custom",
				"participants": []gin.H{{"member_id": bobID, "fixed_amount": "5.00", "remainder": true}},
			}},
			want: http.StatusBadRequest,
		},
		{
			name: "over-allocated percents",
			body: gin.H{"group_id": group.ID, "description": "x", "amount": "10.00", "split": gin.H{
				"policy": "custom",
				"participants": []gin.H{
					{"member_id": bobID, "percent": "60"},
					{"member_id": carolID, "percent": "60"},
				},
			}},
			want: http.StatusBadRequest,
		},
		{
			name: "participant outside the group",
			body: gin.H{"group_id": group.ID, "description": "x", "amount": "10.00", "split": gin.H{
				"policy":       "custom",
				"participants": []gin.H{{"member_id": "nobody", "remainder": true}},
			}},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown group",
			body: gin.H{"group_id": "no-such-group", "description": "x", "amount": "10.00", "split": gin.H{"policy": "equal"}},
			want: http.StatusNotFound,
		},
	}
	for _, tc := range rejections {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, r, http.MethodPost, "/api/expenses", aliceToken, tc.body)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d (body %s)", tc.want, w.Code, w.Body.String())
			}
		})
	}

	w = doRequest(t, r, http.MethodPost, "/api/expenses", malloryToken, gin.H{
		"group_id":    group.ID,
		"description": "Sneaky",
		"amount":      "10.00",
		"split":       gin.H{"policy": "equal"},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("non-member expense: expected 403, got %d", w.Code)
	}
}

func TestPaymentFlow(t *testing.T) {
	r := newTestRouter(t)
	aliceID, aliceToken := signupUser(t, r, "alice@example.com", "Alice")
	bobID, bobToken := signupUser(t, r, "bob@example.com", "Bob")

	group := createGroup(t, r, aliceToken, "Roommates")
	joinGroup(t, r, bobToken, group.JoinCode)

	w := doRequest(t, r, http.MethodPost, "/api/expenses", aliceToken, gin.H{
		"group_id":    group.ID,
		"description": "Internet",
		"amount":      "30.00",
		"split":       gin.H{"policy": "equal"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create expense failed: status %d, body %s", w.Code, w.Body.String())
	}

	// Partial payment leaves the rest of the debt standing.
	w = doRequest(t, r, http.MethodPost, "/api/payments", bobToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": aliceID,
		"amount":       "10.00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("payment failed: status %d, body %s", w.Code, w.Body.String())
	}
	var partial createPaymentResponse
	decodeBody(t, w, &partial)
	if partial.Settled {
		t.Error("expected partial payment to leave debt standing")
	}
	if partial.Remaining == nil || partial.Remaining.Amount != "5.00" {
		t.Fatalf("expected 5.00 remaining, got %+v", partial.Remaining)
	}
	if partial.Payment.Amount != "10.00" {
		t.Errorf("expected payment amount 10.00, got %q", partial.Payment.Amount)
	}

	// Paying the exact rest settles the debt.
	w = doRequest(t, r, http.MethodPost, "/api/payments", bobToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": aliceID,
		"amount":       "5.00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("final payment failed: status %d, body %s", w.Code, w.Body.String())
	}
	var final createPaymentResponse
	decodeBody(t, w, &final)
	if !final.Settled || final.Remaining != nil {
		t.Errorf("expected settled debt, got %+v", final)
	}

	// With nothing owed any further payment is refused.
	w = doRequest(t, r, http.MethodPost, "/api/payments", bobToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": aliceID,
		"amount":       "1.00",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("payment without debt: expected 422, got %d", w.Code)
	}

	// The lender cannot "pay back" the borrower either.
	w = doRequest(t, r, http.MethodPost, "/api/payments", aliceToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": bobID,
		"amount":       "1.00",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("payment against the direction of debt: expected 422, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/expenses", aliceToken, gin.H{
		"group_id":    group.ID,
		"description": "Groceries",
		"amount":      "30.00",
		"split":       gin.H{"policy": "equal"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("second expense failed: status %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/payments", bobToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": aliceID,
		"amount":       "20.00",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("overpayment: expected 422, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/payments", bobToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": bobID,
		"amount":       "1.00",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("self payment: expected 400, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/payments", bobToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": aliceID,
		"amount":       "0.505",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("sub-cent payment: expected 400, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/groups/"+group.ID+"/payments", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list payments failed: status %d", w.Code)
	}
	var listed struct {
		Payments []paymentResponse `json:"payments"`
	}
	decodeBody(t, w, &listed)
	if len(listed.Payments) != 2 {
		t.Fatalf("expected 2 recorded payments, got %d", len(listed.Payments))
	}
}

func TestBalanceEndpoints(t *testing.T) {
	r := newTestRouter(t)
	aliceID, aliceToken := signupUser(t, r, "alice@example.com", "Alice")
	bobID, bobToken := signupUser(t, r, "bob@example.com", "Bob")
	carolID, carolToken := signupUser(t, r, "carol@example.com", "Carol")
	_, malloryToken := signupUser(t, r, "mallory@example.com", "Mallory")

	group := createGroup(t, r, aliceToken, "Trip")
	joinGroup(t, r, bobToken, group.JoinCode)
	joinGroup(t, r, carolToken, group.JoinCode)

	w := doRequest(t, r, http.MethodPost, "/api/expenses", aliceToken, gin.H{
		"group_id":    group.ID,
		"description": "Dinner",
		"amount":      "90.00",
		"split":       gin.H{"policy": "equal"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create expense failed: status %d, body %s", w.Code, w.Body.String())
	}
	w = doRequest(t, r, http.MethodPost, "/api/payments", bobToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": aliceID,
		"amount":       "10.00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("payment failed: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/api/groups/"+group.ID+"/balances", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("group balances failed: status %d, body %s", w.Code, w.Body.String())
	}
	var balances groupBalancesResponse
	decodeBody(t, w, &balances)
	if len(balances.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %+v", balances.Edges)
	}

	alice := findMember(t, balances.Members, aliceID)
	if alice.Owed != "50.00" || alice.Owes != "0.00" || alice.Net != "50.00" {
		t.Errorf("alice balance wrong: %+v", alice)
	}
	if alice.DisplayName != "Alice" {
		t.Errorf("expected display name Alice, got %q", alice.DisplayName)
	}
	bob := findMember(t, balances.Members, bobID)
	if bob.Owes != "20.00" || bob.Net != "-20.00" {
		t.Errorf("bob balance wrong: %+v", bob)
	}
	carol := findMember(t, balances.Members, carolID)
	if carol.Owes != "30.00" || carol.Net != "-30.00" {
		t.Errorf("carol balance wrong: %+v", carol)
	}

	w = doRequest(t, r, http.MethodGet, "/api/groups/"+group.ID+"/balances", malloryToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("outsider balances: expected 403, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/balance", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("user balance failed: status %d", w.Code)
	}
	var mine userBalanceResponse
	decodeBody(t, w, &mine)
	if mine.OwedToMe != "50.00" || mine.OwedByMe != "0.00" || mine.Net != "50.00" {
		t.Errorf("alice summary wrong: %+v", mine)
	}
	if len(mine.Edges) != 2 {
		t.Errorf("expected 2 edges in summary, got %d", len(mine.Edges))
	}

	w = doRequest(t, r, http.MethodGet, "/api/balance", bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("user balance failed: status %d", w.Code)
	}
	var bobs userBalanceResponse
	decodeBody(t, w, &bobs)
	if bobs.OwedByMe != "20.00" || bobs.Net != "-20.00" {
		t.Errorf("bob summary wrong: %+v", bobs)
	}
}

func TestActivityFeed(t *testing.T) {
	r := newTestRouter(t)
	aliceID, aliceToken := signupUser(t, r, "alice@example.com", "Alice")
	_, bobToken := signupUser(t, r, "bob@example.com", "Bob")
	_, carolToken := signupUser(t, r, "carol@example.com", "Carol")

	group := createGroup(t, r, aliceToken, "Roommates")
	joinGroup(t, r, bobToken, group.JoinCode)

	w := doRequest(t, r, http.MethodPost, "/api/expenses", aliceToken, gin.H{
		"group_id":    group.ID,
		"description": "Dinner",
		"amount":      "24.00",
		"split":       gin.H{"policy": "equal"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create expense failed: status %d", w.Code)
	}
	w = doRequest(t, r, http.MethodPost, "/api/payments", bobToken, gin.H{
		"group_id":     group.ID,
		"recipient_id": aliceID,
		"amount":       "12.00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("payment failed: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/api/activity", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activity failed: status %d", w.Code)
	}
	var feed struct {
		Activity []activityResponse `json:"activity"`
	}
	decodeBody(t, w, &feed)
	if len(feed.Activity) != 2 {
		t.Fatalf("expected 2 feed entries, got %+v", feed.Activity)
	}
	seen := make(map[string]activityResponse)
	for _, entry := range feed.Activity {
		seen[entry.Type] = entry
		if entry.GroupName != "Roommates" {
			t.Errorf("expected group name on feed entry, got %q", entry.GroupName)
		}
	}
	if seen["expense"].Amount != "24.00" || seen["expense"].Description != "Dinner" {
		t.Errorf("expense entry wrong: %+v", seen["expense"])
	}
	if seen["payment"].Amount != "12.00" || seen["payment"].Description != "Payment" {
		t.Errorf("payment entry wrong: %+v", seen["payment"])
	}

	w = doRequest(t, r, http.MethodGet, "/api/activity?limit=1", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("limited activity failed: status %d", w.Code)
	}
	var limited struct {
		Activity []activityResponse `json:"activity"`
	}
	decodeBody(t, w, &limited)
	if len(limited.Activity) != 1 {
		t.Errorf("expected 1 feed entry with limit=1, got %d", len(limited.Activity))
	}

	w = doRequest(t, r, http.MethodGet, "/api/activity?limit=nope", aliceToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid limit: expected 400, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/activity", carolToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("empty activity failed: status %d", w.Code)
	}
	var empty struct {
		Activity []activityResponse `json:"activity"`
	}
	decodeBody(t, w, &empty)
	if len(empty.Activity) != 0 {
		t.Errorf("expected empty feed for carol, got %+v", empty.Activity)
	}
}

func TestReceiptEndpoint(t *testing.T) {
	r := newTestRouter(t)
	_, token := signupUser(t, r, "alice@example.com", "Alice")

	w := doRequest(t, r, http.MethodPost, "/api/receipts/parse", token, gin.H{
		"text": "Burger 5.00\nFries 2.40\nTOTAL: $12.40",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("parse failed: status %d, body %s", w.Code, w.Body.String())
	}
	var parsed parseReceiptResponse
	decodeBody(t, w, &parsed)
	if parsed.Amount != "12.40" || parsed.MinorUnits != 1240 {
		t.Errorf("expected 12.40 / 1240, got %+v", parsed)
	}

	w = doRequest(t, r, http.MethodPost, "/api/receipts/parse", token, gin.H{
		"text": "Burger 5.00\nFries 2.40",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("no total: expected 422, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/receipts/parse", token, gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing text: expected 400, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/receipts/parse", "", gin.H{"text": "TOTAL 5.00"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated parse: expected 401, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	if w := doRequest(t, r, http.MethodGet, "/ping", "", nil); w.Code != http.StatusOK {
		t.Fatalf("ping failed: status %d", w.Code)
	}

	w := doRequest(t, r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics failed: status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "centsible_http_requests_total") {
		t.Error("expected request counter in metrics output")
	}
}
