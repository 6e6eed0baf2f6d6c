// internal/app/features/signup/handler_test.go
package signup_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	uierrors "github.com/floatchat/floatchatweb/internal/app/features/errors"
	"github.com/floatchat/floatchatweb/internal/app/features/signup"
	userstore "github.com/floatchat/floatchatweb/internal/app/store/users"
	"github.com/floatchat/floatchatweb/internal/app/system/accounts"
	"github.com/floatchat/floatchatweb/internal/app/system/mailer"
	"github.com/floatchat/floatchatweb/internal/app/system/normalize"
	"github.com/floatchat/floatchatweb/internal/domain/models"
	"github.com/floatchat/floatchatweb/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeUsers struct {
	byEmail map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: make(map[string]*models.User)}
}

func (f *fakeUsers) Create(_ context.Context, u models.User) (models.User, error) {
	if _, ok := f.byEmail[u.Email]; ok {
		return models.User{}, userstore.ErrDuplicate
	}
	u.ID = primitive.NewObjectID()
	f.byEmail[u.Email] = &u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[normalize.Email(email)]; ok {
		return u, nil
	}
	return nil, userstore.ErrNotFound
}

func (f *fakeUsers) GetByVerificationToken(_ context.Context, token string) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			return u, nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (f *fakeUsers) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.IsVerified = true
			u.VerificationToken = nil
			return nil
		}
	}
	return userstore.ErrNotFound
}

func (f *fakeUsers) SetVerificationToken(_ context.Context, id primitive.ObjectID, token string) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.VerificationToken = &token
			return nil
		}
	}
	return userstore.ErrNotFound
}

func (f *fakeUsers) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	for _, u := range f.byEmail {
		if u.Email == normalize.Email(email) || u.Username == normalize.Username(username) {
			return true, nil
		}
	}
	return false, nil
}

type fakeMail struct {
	sent []mailer.Email
}

func (f *fakeMail) Send(_ context.Context, e mailer.Email) error {
	f.sent = append(f.sent, e)
	return nil
}

func newTestHandler(t *testing.T) (*signup.Handler, *fakeUsers, *fakeMail) {
	t.Helper()
	testutil.BootTemplates(t)
	users := newFakeUsers()
	mail := &fakeMail{}
	svc := accounts.NewService(users, mail, "http://localhost:8080", "", zap.NewNop())
	h := signup.NewHandler(svc, uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())
	return h, users, mail
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleSignupPost_CreatesUserAndRedirects(t *testing.T) {
	h, users, mail := newTestHandler(t)

	req := postForm("/signup", url.Values{
		"username": {"ada"},
		"email":    {"ada@example.com"},
		"password": {"secret123"},
	})
	rec := httptest.NewRecorder()
	h.HandleSignupPost(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/verify-notice" {
		t.Fatalf("Location = %q, want /verify-notice", loc)
	}

	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.IsVerified {
		t.Fatal("new local account must start unverified")
	}
	if len(mail.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(mail.sent))
	}
}

func TestHandleSignupPost_DuplicateRerendersForm(t *testing.T) {
	h, _, mail := newTestHandler(t)

	first := postForm("/signup", url.Values{
		"username": {"ada"},
		"email":    {"ada@example.com"},
		"password": {"secret123"},
	})
	h.HandleSignupPost(httptest.NewRecorder(), first)
	mail.sent = nil

	second := postForm("/signup", url.Values{
		"username": {"ada2"},
		"email":    {"ada@example.com"},
		"password": {"other456"},
	})
	rec := httptest.NewRecorder()
	h.HandleSignupPost(rec, second)

	// Form errors are not HTTP errors: the page re-renders with 200,
	// the duplicate message, and the submitted fields intact.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "A user with that email or username already exists.") {
		t.Error("response does not show the duplicate-account message")
	}
	if !strings.Contains(body, `value="ada2"`) || !strings.Contains(body, `value="ada@example.com"`) {
		t.Error("re-rendered form lost the submitted username or email")
	}
	if len(mail.sent) != 0 {
		t.Fatal("duplicate signup must not send email")
	}
}

func TestHandleVerifyEmail_ValidTokenRedirectsToLogin(t *testing.T) {
	h, users, mail := newTestHandler(t)

	req := postForm("/signup", url.Values{
		"username": {"ada"},
		"email":    {"ada@example.com"},
		"password": {"secret123"},
	})
	h.HandleSignupPost(httptest.NewRecorder(), req)

	if len(mail.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(mail.sent))
	}
	u, _ := users.GetByEmail(context.Background(), "ada@example.com")
	if u.VerificationToken == nil {
		t.Fatal("no verification token stored")
	}

	verify := httptest.NewRequest(http.MethodGet, "/verify-email?token="+*u.VerificationToken, nil)
	rec := httptest.NewRecorder()
	h.HandleVerifyEmail(rec, verify)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("Location = %q, want /login", loc)
	}

	u, _ = users.GetByEmail(context.Background(), "ada@example.com")
	if !u.IsVerified || u.VerificationToken != nil {
		t.Fatal("verification did not flip the account to verified")
	}
}

func TestHandleVerifyEmail_UnknownTokenIsBadRequest(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/verify-email?token=bogus", nil)
	rec := httptest.NewRecorder()
	h.HandleVerifyEmail(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleResendVerification_UnknownEmailStillRedirects(t *testing.T) {
	h, _, mail := newTestHandler(t)

	req := postForm("/resend-verification", url.Values{"email": {"nobody@example.com"}})
	rec := httptest.NewRecorder()
	h.HandleResendVerification(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/verify-notice" {
		t.Fatalf("Location = %q, want /verify-notice", loc)
	}
	if len(mail.sent) != 0 {
		t.Fatal("unknown address must not receive email")
	}
}

func TestHandleResendVerification_UnverifiedGetsFreshToken(t *testing.T) {
	h, users, mail := newTestHandler(t)

	signupReq := postForm("/signup", url.Values{
		"username": {"ada"},
		"email":    {"ada@example.com"},
		"password": {"secret123"},
	})
	h.HandleSignupPost(httptest.NewRecorder(), signupReq)

	u, _ := users.GetByEmail(context.Background(), "ada@example.com")
	oldToken := *u.VerificationToken
	mail.sent = nil

	resend := postForm("/resend-verification", url.Values{"email": {"ada@example.com"}})
	rec := httptest.NewRecorder()
	h.HandleResendVerification(rec, resend)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(mail.sent))
	}

	u, _ = users.GetByEmail(context.Background(), "ada@example.com")
	if u.VerificationToken == nil || *u.VerificationToken == oldToken {
		t.Fatal("resend must replace the verification token")
	}
}
