package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/object-registry/object-registry/internal/db/models"
)

// captureWriter collects audit log entries via a buffered channel.
type captureWriter struct {
	ch  chan *models.AuditLog
	err error
}

func newCaptureWriter(buf int) *captureWriter {
	return &captureWriter{ch: make(chan *models.AuditLog, buf)}
}

func (w *captureWriter) CreateAuditLog(_ context.Context, e *models.AuditLog) error {
	w.ch <- e
	return w.err
}

// waitForEntry blocks until an entry arrives or the timeout fires.
func (w *captureWriter) waitForEntry(t *testing.T, timeout time.Duration) *models.AuditLog {
	t.Helper()
	select {
	case e := <-w.ch:
		return e
	case <-time.After(timeout):
		t.Fatal("timed out waiting for audit log entry")
		return nil
	}
}

func (w *captureWriter) expectNone(t *testing.T) {
	t.Helper()
	select {
	case e := <-w.ch:
		t.Errorf("unexpected audit entry: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func newAuditRouter(writer AuditWriter, enabled bool, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(UserIDKey, int64(1))
		c.Set(AuthMethodKey, "cookie")
		c.Next()
	})
	r.Use(AuditMiddleware(writer, enabled))
	r.POST("/object/edit/:id", handler)
	return r
}

func TestAuditMiddleware_WritesAuditedAction(t *testing.T) {
	writer := newCaptureWriter(1)
	r := newAuditRouter(writer, true, func(c *gin.Context) {
		Audit(c, "object.update", "json_object", 5, 2)
		c.Redirect(http.StatusFound, "/object/edit/5")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/object/edit/5", nil))

	e := writer.waitForEntry(t, time.Second)
	if e.Action != "object.update" {
		t.Errorf("Action = %q, want object.update", e.Action)
	}
	if e.UserID == nil || *e.UserID != 1 {
		t.Errorf("UserID = %v, want 1", e.UserID)
	}
	if e.OrganizationID == nil || *e.OrganizationID != 2 {
		t.Errorf("OrganizationID = %v, want 2", e.OrganizationID)
	}
	if e.ResourceType == nil || *e.ResourceType != "json_object" {
		t.Errorf("ResourceType = %v, want json_object", e.ResourceType)
	}
	if e.ResourceID == nil || *e.ResourceID != "5" {
		t.Errorf("ResourceID = %v, want 5", e.ResourceID)
	}
	if e.Metadata["status_code"] != http.StatusFound {
		t.Errorf("status_code = %v, want 302", e.Metadata["status_code"])
	}
	if e.Metadata["auth_method"] != "cookie" {
		t.Errorf("auth_method = %v, want cookie", e.Metadata["auth_method"])
	}
}

func TestAuditMiddleware_SkipsUnauditedRequests(t *testing.T) {
	writer := newCaptureWriter(1)
	r := newAuditRouter(writer, true, func(c *gin.Context) {
		c.Status(http.StatusUnprocessableEntity)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/object/edit/5", nil))

	writer.expectNone(t)
}

func TestAuditMiddleware_Disabled(t *testing.T) {
	writer := newCaptureWriter(1)
	r := newAuditRouter(writer, false, func(c *gin.Context) {
		Audit(c, "object.delete", "json_object", 5, 2)
		c.Status(http.StatusFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/object/edit/5", nil))

	writer.expectNone(t)
}

func TestAuditMiddleware_WriterErrorDoesNotAffectResponse(t *testing.T) {
	writer := newCaptureWriter(1)
	writer.err = errDB
	r := newAuditRouter(writer, true, func(c *gin.Context) {
		Audit(c, "object.create", "json_object", 6, 2)
		c.Status(http.StatusFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/object/edit/5", nil))

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", w.Code)
	}
	writer.waitForEntry(t, time.Second)
}

func TestAudit_OmitsZeroIDs(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)

	Audit(c, "session.login", "session", 0, 0)
	e := buildAuditLog(c, c.GetString(AuditActionKey))

	if e.ResourceID != nil {
		t.Errorf("ResourceID = %v, want nil", *e.ResourceID)
	}
	if e.OrganizationID != nil {
		t.Errorf("OrganizationID = %v, want nil", *e.OrganizationID)
	}
	if e.UserID != nil {
		t.Errorf("UserID = %v, want nil for anonymous request", *e.UserID)
	}
}
