package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/clients/gcp"
	"github.com/rizzlab/rizzlab-backend/internal/clients/redis"
	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/repos"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

type PersonaService interface {
	// AcquireForRound hands out a reusable pool persona, seeding a fresh one
	// when the pool is empty.
	AcquireForRound(ctx context.Context, tx *gorm.DB) (*types.Persona, error)
	GetByID(ctx context.Context, tx *gorm.DB, personaID uuid.UUID) (*types.Persona, error)
	// SetPortrait records a generated portrait as the persona's canonical one.
	SetPortrait(ctx context.Context, tx *gorm.DB, personaID uuid.UUID, bucketKey, portraitURL string) error
	// RemoveCursed evicts a persona whose description keeps tripping provider
	// safety filters: stored assets and the cached reward go with it.
	RemoveCursed(ctx context.Context, personaID uuid.UUID) error
}

type personaSeed struct {
	Name   string
	Age    int
	Bio    string
	Traits []string
}

var personaSeeds = []personaSeed{
	{Name: "Maya", Age: 27, Bio: "Ceramics teacher who plans trips around food markets and never checks a coat.", Traits: []string{"playful", "direct", "dry humor"}},
	{Name: "Sofia", Age: 30, Bio: "ER nurse, half-marathon runner, will absolutely rank your taco order.", Traits: []string{"warm", "teasing", "competitive"}},
	{Name: "Jade", Age: 25, Bio: "Freelance illustrator with a rescue greyhound and strong opinions about fonts.", Traits: []string{"artsy", "sarcastic", "curious"}},
	{Name: "Elena", Age: 29, Bio: "Climate researcher back from two years in Lisbon, still jetlagged on purpose.", Traits: []string{"thoughtful", "witty", "adventurous"}},
	{Name: "Priya", Age: 28, Bio: "Product designer who hosts a trivia night she refuses to let anyone else win.", Traits: []string{"sharp", "flirty", "stubborn"}},
}

type personaService struct {
	db          *gorm.DB
	log         *logger.Logger
	personaRepo repos.PersonaRepo
	bucket      gcp.BucketService
	cache       redis.RewardCache

	bgColors []color.NRGBA
	fontFace font.Face
}

func NewPersonaService(db *gorm.DB, log *logger.Logger, personaRepo repos.PersonaRepo, bucket gcp.BucketService, cache redis.RewardCache) (PersonaService, error) {
	serviceLog := log.With("service", "PersonaService")

	fontPath := os.Getenv("PERSONA_CARD_FONT")
	var face font.Face
	if strings.TrimSpace(fontPath) != "" {
		f, err := loadFontFace(fontPath, 206)
		if err != nil {
			return nil, fmt.Errorf("could not load persona card font: %w", err)
		}
		face = f
	} else {
		serviceLog.Warn("PERSONA_CARD_FONT not set, placeholder cards render without initials")
	}

	return &personaService{
		db:          db,
		log:         serviceLog,
		personaRepo: personaRepo,
		bucket:      bucket,
		cache:       cache,
		bgColors: []color.NRGBA{
			{R: 0xE8, G: 0x5D, B: 0x75, A: 0xFF},
			{R: 0xC8, G: 0x55, B: 0xA8, A: 0xFF},
			{R: 0x7B, G: 0x61, B: 0xD6, A: 0xFF},
			{R: 0x4E, G: 0x8F, B: 0xE0, A: 0xFF},
			{R: 0xE0, G: 0x8A, B: 0x3C, A: 0xFF},
		},
		fontFace: face,
	}, nil
}

func (ps *personaService) AcquireForRound(ctx context.Context, tx *gorm.DB) (*types.Persona, error) {
	persona, err := ps.personaRepo.PickReusable(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("pick reusable persona: %w", err)
	}
	if persona != nil {
		return persona, nil
	}
	return ps.seedPersona(ctx, tx)
}

func (ps *personaService) GetByID(ctx context.Context, tx *gorm.DB, personaID uuid.UUID) (*types.Persona, error) {
	return ps.personaRepo.GetByID(ctx, tx, personaID)
}

func (ps *personaService) SetPortrait(ctx context.Context, tx *gorm.DB, personaID uuid.UUID, bucketKey, portraitURL string) error {
	return ps.personaRepo.UpdatePortraitFields(ctx, tx, personaID, bucketKey, portraitURL)
}

func (ps *personaService) seedPersona(ctx context.Context, tx *gorm.DB) (*types.Persona, error) {
	seed := personaSeeds[rand.Intn(len(personaSeeds))]
	traits, err := json.Marshal(seed.Traits)
	if err != nil {
		return nil, fmt.Errorf("marshal persona traits: %w", err)
	}

	persona := &types.Persona{
		Name:        seed.Name,
		Age:         seed.Age,
		Bio:         seed.Bio,
		StyleTraits: datatypes.JSON(traits),
		Reusable:    true,
	}
	if _, err := ps.personaRepo.Create(ctx, tx, persona); err != nil {
		return nil, fmt.Errorf("create persona: %w", err)
	}

	// Placeholder card until a generated portrait exists. Best effort: a
	// persona without an avatar is still playable.
	if err := ps.renderAndUploadCard(ctx, tx, persona); err != nil {
		ps.log.Warn("failed to render persona placeholder card (ignored)", "persona_id", persona.ID, "error", err)
	}
	return persona, nil
}

func (ps *personaService) renderAndUploadCard(ctx context.Context, tx *gorm.DB, persona *types.Persona) error {
	const size = 512

	dc := gg.NewContext(size, size)
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()

	base := ps.bgColors[rand.Intn(len(ps.bgColors))]
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	if ps.fontFace != nil {
		initial := "?"
		if len(persona.Name) > 0 {
			initial = strings.ToUpper(persona.Name[:1])
		}
		dc.SetFontFace(ps.fontFace)
		tw, th := dc.MeasureString(initial)
		cx, cy := float64(size)/2, float64(size)/2
		dc.SetColor(color.White)
		dc.DrawString(initial, cx-(tw/2), cy+(th/2)-10)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	key := fmt.Sprintf("%s/%d.png", persona.ID.String(), time.Now().UnixNano())
	if err := ps.bucket.UploadBytes(ctx, gcp.BucketCategoryAvatar, key, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to upload persona card: %w", err)
	}

	avatarURL := ps.bucket.GetPublicURL(gcp.BucketCategoryAvatar, key)
	if err := ps.personaRepo.UpdateAvatarFields(ctx, tx, persona.ID, key, avatarURL); err != nil {
		return err
	}
	persona.AvatarBucketKey = key
	persona.AvatarURL = avatarURL
	return nil
}

func (ps *personaService) RemoveCursed(ctx context.Context, personaID uuid.UUID) error {
	ps.log.Warn("removing cursed persona from pool", "persona_id", personaID)

	prefix := personaID.String() + "/"
	for _, category := range []gcp.BucketCategory{gcp.BucketCategoryAvatar, gcp.BucketCategoryVoice, gcp.BucketCategoryImage} {
		if err := ps.bucket.DeletePrefix(ctx, category, prefix); err != nil {
			ps.log.Warn("failed to delete persona assets (continuing)", "persona_id", personaID, "category", category, "error", err)
		}
	}

	if ps.cache != nil {
		if err := ps.cache.Delete(ctx, personaID); err != nil {
			ps.log.Warn("failed to drop persona reward cache entry (continuing)", "persona_id", personaID, "error", err)
		}
	}

	if err := ps.personaRepo.MarkNotReusable(ctx, nil, personaID); err != nil {
		return fmt.Errorf("mark persona not reusable: %w", err)
	}
	return nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
