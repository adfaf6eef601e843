package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"math/rand/v2"
	"os"
	"strings"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/gcp"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

const avatarSize = 256

var defaultAvatarPalette = []string{
	"#1E3A8A", "#3B82F6", "#0F766E", "#15803D",
	"#B45309", "#B91C1C", "#7C3AED", "#BE185D",
}

// AvatarService renders an initials badge for new users and stores it in the bucket.
type AvatarService interface {
	CreateAndUploadUserAvatar(ctx context.Context, user *types.User) error
	Render(user *types.User) ([]byte, error)
}

type AvatarConfig struct {
	FontPath   string
	ColorsPath string
}

type avatarService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	bucket   gcp.BucketService
	palette  []string
	face     font.Face
}

func NewAvatarService(log *logger.Logger, userRepo repos.UserRepo, bucket gcp.BucketService, cfg AvatarConfig) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	palette := defaultAvatarPalette
	if p := strings.TrimSpace(cfg.ColorsPath); p != "" {
		loaded, err := loadPalette(p)
		if err != nil {
			return nil, fmt.Errorf("load avatar colors: %w", err)
		}
		palette = loaded
	}

	face, err := loadAvatarFace(strings.TrimSpace(cfg.FontPath), avatarSize*0.4)
	if err != nil {
		return nil, fmt.Errorf("load avatar font: %w", err)
	}
	return &avatarService{
		log:      serviceLog,
		userRepo: userRepo,
		bucket:   bucket,
		palette:  palette,
		face:     face,
	}, nil
}

func (s *avatarService) CreateAndUploadUserAvatar(ctx context.Context, user *types.User) error {
	if user == nil || user.ID == uuid.Nil {
		return fmt.Errorf("avatar: user required")
	}
	if s.bucket == nil {
		s.log.Debug("No bucket configured; skipping avatar", "user_id", user.ID)
		return nil
	}
	if normalizeHex(user.AvatarColor) == "" {
		user.AvatarColor = s.palette[rand.IntN(len(s.palette))]
	}
	png, err := s.Render(user)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("avatars/%s.png", user.ID)
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.bucket.UploadFile(dbc, gcp.BucketCategoryAvatar, key, "image/png", bytes.NewReader(png)); err != nil {
		return fmt.Errorf("upload avatar: %w", err)
	}
	url := s.bucket.GetPublicURL(gcp.BucketCategoryAvatar, key)
	if err := s.userRepo.UpdateAvatarFields(dbc, user.ID, key, url); err != nil {
		return fmt.Errorf("save avatar fields: %w", err)
	}
	if err := s.userRepo.UpdateAvatarColor(dbc, user.ID, user.AvatarColor); err != nil {
		return fmt.Errorf("save avatar color: %w", err)
	}
	user.AvatarBucketKey = key
	user.AvatarURL = url
	return nil
}

func (s *avatarService) Render(user *types.User) ([]byte, error) {
	bg, err := parseHexColor(user.AvatarColor)
	if err != nil {
		bg, _ = parseHexColor(s.palette[0])
	}

	dc := gg.NewContext(avatarSize, avatarSize)
	half := float64(avatarSize) / 2
	dc.DrawCircle(half, half, half)
	dc.Clip()
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, avatarSize, avatarSize)
	dc.Fill()

	dc.SetFontFace(s.face)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(initials(user.DisplayName, user.Email), half, half, 0.5, 0.35)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// initials takes the first letter of up to two words of name, falling back
// to the email's local part.
func initials(name, email string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		local, _, _ := strings.Cut(email, "@")
		words = strings.FieldsFunc(local, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	}
	var out []rune
	for _, w := range words {
		r := []rune(w)
		if len(r) == 0 {
			continue
		}
		out = append(out, unicode.ToUpper(r[0]))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

func loadPalette(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hexes []string
	if err := json.Unmarshal(raw, &hexes); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hexes))
	for _, h := range hexes {
		if n := normalizeHex(h); n != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no valid colors", path)
	}
	return out, nil
}

// loadAvatarFace reads a TTF from path, or uses the bundled Go Bold face when path is empty.
func loadAvatarFace(path string, size float64) (font.Face, error) {
	data := gobold.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
}

func normalizeHex(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if _, err := parseHexColor(s); err != nil {
		return ""
	}
	return s
}

func parseHexColor(s string) (color.NRGBA, error) {
	var c color.NRGBA
	c.A = 0xff
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("bad color %q", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("bad color %q: %w", s, err)
	}
	return c, nil
}
