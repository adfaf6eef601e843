package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/scripture-study-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadLessonImages(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	bucket := newFakeBucket()
	bucket.failOn = "broken"
	svc := NewUploadService(env.log, env.users, bucket, 1024)
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	img := pngBytes(t)

	res, err := svc.UploadLessonImages(as(admin), []UploadFile{
		memFile("../../etc/Jordan River.png", "image/png", img),
		memFile("notes.txt", "text/plain", []byte("hello")),
		memFile("disguised.png", "image/png", []byte("just text, honest")),
		memFile("huge.png", "image/png", bytes.Repeat([]byte{0x89}, 2048)),
		memFile("broken.png", "image/png", img),
	})
	if err != nil {
		t.Fatalf("UploadLessonImages: %v", err)
	}
	if len(res.Uploaded) != 1 {
		t.Fatalf("uploaded = %+v", res.Uploaded)
	}
	up := res.Uploaded[0]
	prefix := "lessons/" + admin.ID.String() + "/"
	if !strings.HasPrefix(up.Key, prefix) || !strings.HasSuffix(up.Key, "_Jordan_River.png") {
		t.Fatalf("key = %s", up.Key)
	}
	if up.URL != "https://cdn.test/"+up.Key {
		t.Fatalf("url = %s", up.URL)
	}
	if bucket.types[up.Key] != "image/png" {
		t.Fatalf("stored content type = %s", bucket.types[up.Key])
	}

	reasons := map[string]string{}
	for _, r := range res.Rejected {
		reasons[r.Name] = r.Reason
	}
	want := map[string]string{
		"notes.txt":     "not_an_image",
		"disguised.png": "not_an_image",
		"huge.png":      "too_large",
		"broken.png":    "upload_failed",
	}
	for name, reason := range want {
		if reasons[name] != reason {
			t.Fatalf("%s rejected as %q, want %q", name, reasons[name], reason)
		}
	}
}

func TestUploadSameNameTwiceKeepsBoth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	bucket := newFakeBucket()
	svc := NewUploadService(env.log, env.users, bucket, 1024)
	svc.(*uploadService).now = func() time.Time { return time.UnixMilli(1700000000000) }
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	img := pngBytes(t)

	res, err := svc.UploadLessonImages(as(admin), []UploadFile{
		memFile("a.png", "image/png", img),
		memFile("a.png", "image/png", img),
	})
	if err != nil {
		t.Fatalf("UploadLessonImages: %v", err)
	}
	if len(res.Uploaded) != 2 {
		t.Fatalf("uploaded = %+v", res.Uploaded)
	}
	if res.Uploaded[0].Key == res.Uploaded[1].Key || res.Uploaded[0].URL == res.Uploaded[1].URL {
		t.Fatalf("same-named files collided on %s", res.Uploaded[0].Key)
	}
	if len(bucket.objects) != 2 {
		t.Fatalf("bucket holds %d objects, want 2", len(bucket.objects))
	}
}

func TestUploadRequiresAdminAndBucket(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	reader := testutil.SeedUser(t, env.db, "reader@example.com", types.RoleUser)
	file := memFile("a.png", "image/png", pngBytes(t))

	withBucket := NewUploadService(env.log, env.users, newFakeBucket(), 0)
	_, err := withBucket.UploadLessonImages(as(reader), []UploadFile{file})
	wantAPIError(t, err, http.StatusForbidden, "forbidden")

	_, err = withBucket.UploadLessonImages(as(admin), nil)
	wantAPIError(t, err, http.StatusBadRequest, "no_files")

	noBucket := NewUploadService(env.log, env.users, nil, 0)
	_, err = noBucket.UploadLessonImages(as(admin), []UploadFile{file})
	wantAPIError(t, err, http.StatusServiceUnavailable, "storage_unavailable")
}

func TestSafeFilename(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"photo.jpg":              "photo.jpg",
		`C:\Users\me\Sinai.jpeg`: "Sinai.jpeg",
		"../..":                  "image",
		"שלום.png":               "png",
	}
	for in, want := range cases {
		if got := safeFilename(in); got != want {
			t.Fatalf("safeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
