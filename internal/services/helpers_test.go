package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	"github.com/yungbote/scripture-study-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/ctxutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/gcp"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/querycache"
	"github.com/yungbote/scripture-study-backend/internal/platform/sendgrid"
	"github.com/yungbote/scripture-study-backend/internal/realtime"
)

type testEnv struct {
	db     *gorm.DB
	log    *logger.Logger
	events *recordingEmitter
	notify Notifier
	cache  querycache.Cache

	users     repos.UserRepo
	tokens    repos.UserTokenRepo
	idents    repos.UserIdentityRepo
	nonces    repos.OAuthNonceRepo
	verifies  repos.EmailVerificationRepo
	flags     repos.SystemFlagRepo
	mains     repos.MainRepo
	classes   repos.ClassRepo
	lessons   repos.LessonRepo
	progress  repos.ProgressRepo
	bookmarks repos.BookmarkRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	events := &recordingEmitter{}
	return &testEnv{
		db:        gdb,
		log:       log,
		events:    events,
		notify:    NewNotifier(events),
		cache:     querycache.New(log, querycache.NewMemoryStore()),
		users:     repos.NewUserRepo(gdb, log),
		tokens:    repos.NewUserTokenRepo(gdb, log),
		idents:    repos.NewUserIdentityRepo(gdb, log),
		nonces:    repos.NewOAuthNonceRepo(gdb, log),
		verifies:  repos.NewEmailVerificationRepo(gdb, log),
		flags:     repos.NewSystemFlagRepo(gdb, log),
		mains:     repos.NewMainRepo(gdb, log),
		classes:   repos.NewClassRepo(gdb, log),
		lessons:   repos.NewLessonRepo(gdb, log),
		progress:  repos.NewProgressRepo(gdb, log),
		bookmarks: repos.NewBookmarkRepo(gdb, log),
	}
}

func (e *testEnv) curriculumService() CurriculumService {
	return NewCurriculumService(e.db, e.log, e.users, e.mains, e.classes, e.lessons, e.progress, e.bookmarks, e.cache, time.Minute, e.notify)
}

func (e *testEnv) lessonService(ceiling int) LessonService {
	return NewLessonService(e.db, e.log, e.users, e.mains, e.classes, e.lessons, e.progress, e.bookmarks, e.cache, time.Minute, e.notify, ceiling)
}

func (e *testEnv) progressService() ProgressService {
	return NewProgressService(e.db, e.log, e.progress, e.lessons, e.mains, e.classes, e.notify)
}

func (e *testEnv) bookmarkService() BookmarkService {
	return NewBookmarkService(e.db, e.log, e.bookmarks, e.lessons, e.mains, e.classes, e.notify)
}

func (e *testEnv) authService(mailer sendgrid.Client, google IDTokenVerifier) AuthService {
	return NewAuthService(e.db, e.log, e.users, e.tokens, e.idents, e.nonces, e.verifies, e.flags, nil, mailer, google, AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		AppBaseURL: "https://study.test",
	})
}

func (e *testEnv) dbc() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

// as returns a context carrying u the way the auth middleware would.
func as(u *types.User) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: u.ID, Role: u.Role})
}

func wantAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d %s, got nil", status, code)
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected api error %d %s, got %v", status, code, err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("expected %d %s, got %d %s (%v)", status, code, ae.Status, ae.Code, err)
	}
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (r *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingEmitter) count(channel string, event realtime.SSEEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Channel == channel && m.Event == event {
			n++
		}
	}
	return n
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *fakeBucket) UploadFile(dbc dbctx.Context, category gcp.BucketCategory, key string, contentType string, file io.Reader) error {
	if b.failOn != "" && strings.Contains(key, b.failOn) {
		return errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.types[key] = contentType
	return nil
}

func (b *fakeBucket) DeleteFile(dbc dbctx.Context, category gcp.BucketCategory, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return "https://cdn.test/" + key
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sendgrid.SendEmailRequest
}

func (m *fakeMailer) Send(ctx context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, req)
	return &sendgrid.SendEmailResult{StatusCode: 202}, nil
}

func (m *fakeMailer) last() sendgrid.SendEmailRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sendgrid.SendEmailRequest{}
	}
	return m.sent[len(m.sent)-1]
}

func memFile(name, contentType string, data []byte) UploadFile {
	return UploadFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func ptr[T any](v T) *T { return &v }
