package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// handlerTestContext builds a gin context with an authenticated caller, the
// way the auth middleware would leave it.
func handlerTestContext(t *testing.T, method, target, userID, role string, body []byte, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	c.Params = params
	c.Set("user_id", userID)
	c.Set("role", role)
	return c, w
}

func gameRow(id, name, site, status, submittedBy string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "official_site", "status", "submitted_by"}).
		AddRow(id, name, site, status, submittedBy)
}

func TestApproveGameRejectsSelfApproval(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	Init(Deps{DB: mockDB, Logger: logrus.New()})

	// The approving admin is the submitter: no approval, no server row.
	mock.ExpectQuery("SELECT id, name, official_site, status, submitted_by FROM games").
		WithArgs("game-1").
		WillReturnRows(gameRow("game-1", "Mu Online", "https://muonline.example", "pending", "admin-1"))

	c, w := handlerTestContext(t, "POST", "/admin/games/game-1/approve", "admin-1", "admin", nil,
		gin.Params{{Key: "id", Value: "game-1"}})

	ApproveGame(c)

	if w.Code != 409 {
		t.Fatalf("expected 409, got %d (body=%s)", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["error"] != "Admins cannot approve their own submissions" {
		t.Fatalf("unexpected error message: %q", resp["error"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApproveGameRejectsNonPending(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	Init(Deps{DB: mockDB, Logger: logrus.New()})

	mock.ExpectQuery("SELECT id, name, official_site, status, submitted_by FROM games").
		WithArgs("game-1").
		WillReturnRows(gameRow("game-1", "Mu Online", "https://muonline.example", "approved", "user-1"))

	c, w := handlerTestContext(t, "POST", "/admin/games/game-1/approve", "admin-1", "admin", nil,
		gin.Params{{Key: "id", Value: "game-1"}})

	ApproveGame(c)

	if w.Code != 409 {
		t.Fatalf("expected 409, got %d (body=%s)", w.Code, w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
