// Package meditation runs the generation pipeline shared by the bot and the
// REST API: text generation, speech synthesis and background mixing.
package meditation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meditation-bot/internal/audio"
	"meditation-bot/internal/broker"
	"meditation-bot/internal/models"
	"meditation-bot/internal/storage"
	"meditation-bot/internal/wizard"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownBackground = errors.New("unknown background")
	ErrForbidden         = errors.New("background belongs to another user")
	ErrInvalidAudio      = errors.New("background audio must be a 24 kHz mono 16-bit WAV file")
	ErrMissingCustom     = errors.New("custom background selected but no audio was provided")
)

type TextGenerator interface {
	GenerateMeditationText(ctx context.Context, meditationType, language string) (string, error)
}

type SpeechSynthesizer interface {
	ListVoices(ctx context.Context) ([]models.Voice, error)
	TextToSpeech(ctx context.Context, voiceID, text string, tempo float64) ([]byte, error)
}

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type BackgroundRepository interface {
	SaveBackground(ctx context.Context, b models.Background) error
	ListBackgrounds(ctx context.Context, userID int64) ([]models.Background, error)
	GetBackground(ctx context.Context, id string) (models.Background, error)
	DeleteBackground(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishGenerated(ev broker.GeneratedEvent) error
}

// SystemBackgrounds is the catalog of built-in tracks, read from <dir>/<id>.wav.
// Only tracks whose file is installed are offered.
var SystemBackgrounds = []models.Background{
	{ID: "ocean", Filename: "ocean.wav", CustomName: "Ocean", Icon: "🌊", Color: "#2b6cb0", IsSystemBackground: true},
	{ID: "rain", Filename: "rain.wav", CustomName: "Rain", Icon: "🌧", Color: "#4a5568", IsSystemBackground: true},
	{ID: "forest", Filename: "forest.wav", CustomName: "Forest", Icon: "🌲", Color: "#276749", IsSystemBackground: true},
	{ID: "stream", Filename: "stream.wav", CustomName: "Stream", Icon: "💧", Color: "#3182ce", IsSystemBackground: true},
	{ID: "bowls", Filename: "bowls.wav", CustomName: "Singing bowls", Icon: "🔔", Color: "#b7791f", IsSystemBackground: true},
}

type Service struct {
	text           TextGenerator
	speech         SpeechSynthesizer
	blobs          BlobStore
	backgrounds    BackgroundRepository
	events         EventPublisher
	backgroundsDir string
	mix            audio.MixOptions
	logger         *zap.Logger
}

func NewService(text TextGenerator, speech SpeechSynthesizer, blobs BlobStore, backgrounds BackgroundRepository, events EventPublisher, backgroundsDir string, logger *zap.Logger) *Service {
	return &Service{
		text:           text,
		speech:         speech,
		blobs:          blobs,
		backgrounds:    backgrounds,
		events:         events,
		backgroundsDir: backgroundsDir,
		mix:            audio.DefaultMixOptions(),
		logger:         logger,
	}
}

func (s *Service) systemPath(id string) string {
	return filepath.Join(s.backgroundsDir, id+".wav")
}

// InstalledBackgrounds returns the catalog entries whose audio file exists.
func (s *Service) InstalledBackgrounds() []models.Background {
	var out []models.Background
	for _, b := range SystemBackgrounds {
		if s.installed(b.ID) {
			out = append(out, b)
		}
	}
	return out
}

// Voices returns the voice list narrowed by gender. Voices without a gender label only appear under "all".
func (s *Service) Voices(ctx context.Context, filter wizard.GenderFilter) ([]models.Voice, error) {
	voices, err := s.speech.ListVoices(ctx)
	if err != nil {
		return nil, err
	}
	if filter == "" || filter == wizard.GenderAll {
		return voices, nil
	}
	var out []models.Voice
	for _, v := range voices {
		if v.GenderLabel() == string(filter) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Service) GenerateText(ctx context.Context, meditationType wizard.MeditationType, language string) (string, error) {
	if !meditationType.Valid() {
		return "", fmt.Errorf("%w: %q", wizard.ErrUnknownMeditationType, meditationType)
	}
	return s.text.GenerateMeditationText(ctx, string(meditationType), language)
}

// Backgrounds lists the system tracks followed by the user's saved uploads.
func (s *Service) Backgrounds(ctx context.Context, userID int64) ([]models.Background, error) {
	saved, err := s.backgrounds.ListBackgrounds(ctx, userID)
	if err != nil {
		return nil, err
	}
	system := s.InstalledBackgrounds()
	out := make([]models.Background, 0, len(system)+len(saved))
	out = append(out, system...)
	return append(out, saved...), nil
}

type UploadRequest struct {
	UserID      int64
	Filename    string
	Name        string
	Description string
	Data        []byte
}

func (s *Service) UploadBackground(ctx context.Context, req UploadRequest) (models.Background, error) {
	if _, err := audio.DecodeWAV(req.Data); err != nil {
		return models.Background{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	bg := models.Background{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		Filename:          filepath.Base(req.Filename),
		CustomName:        strings.TrimSpace(req.Name),
		CustomDescription: strings.TrimSpace(req.Description),
		Icon:              "🎵",
		CreatedAt:         time.Now().UTC(),
	}
	if bg.CustomName == "" {
		bg.CustomName = strings.TrimSuffix(bg.Filename, filepath.Ext(bg.Filename))
	}

	if err := s.blobs.Put(ctx, bg.ID, req.Data); err != nil {
		return models.Background{}, err
	}
	if err := s.backgrounds.SaveBackground(ctx, bg); err != nil {
		if delErr := s.blobs.Delete(ctx, bg.ID); delErr != nil {
			s.logger.Warn("Failed to remove orphaned background blob", zap.String("background_id", bg.ID), zap.Error(delErr))
		}
		return models.Background{}, err
	}
	return bg, nil
}

func (s *Service) DeleteBackground(ctx context.Context, userID int64, id string) error {
	bg, err := s.backgrounds.GetBackground(ctx, id)
	if err != nil {
		return err
	}
	if bg.UserID != userID {
		return ErrForbidden
	}
	if err := s.backgrounds.DeleteBackground(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, id); err != nil && !errors.Is(err, broker.ErrObjectNotFound) {
		s.logger.Warn("Failed to delete background blob", zap.String("background_id", id), zap.Error(err))
	}
	return nil
}

type Request struct {
	UserID   int64
	Language string
	Data     wizard.Data
	// CustomBackground is the one-off track used when Data.Background is "custom".
	CustomBackground []byte
}

type Result struct {
	ID    string
	WAV   []byte
	Words int
}

// Generate re-validates every wizard step before doing any work.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	if err := wizard.ValidateAll(req.Data); err != nil {
		return Result{}, err
	}

	background, err := s.loadBackground(ctx, req)
	if err != nil {
		return Result{}, err
	}

	pcm, err := s.speech.TextToSpeech(ctx, req.Data.VoiceID, req.Data.Text, req.Data.SpeechTempo)
	if err != nil {
		return Result{}, fmt.Errorf("speech synthesis failed: %w", err)
	}

	mixed := audio.Mix(audio.PCM16ToFloat(pcm), background, s.mix)
	wav, err := audio.EncodeWAV(mixed)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		ID:    uuid.New().String(),
		WAV:   wav,
		Words: wizard.WordCount(req.Data.Text),
	}
	s.logger.Info("Meditation generated",
		zap.String("id", res.ID),
		zap.Int64("user_id", req.UserID),
		zap.String("type", string(req.Data.MeditationType)),
		zap.Int("bytes", len(wav)))

	if s.events != nil {
		ev := broker.GeneratedEvent{
			ID:             res.ID,
			UserID:         req.UserID,
			MeditationType: string(req.Data.MeditationType),
			VoiceID:        req.Data.VoiceID,
			Background:     req.Data.EffectiveBackground(),
			Words:          res.Words,
			Bytes:          len(wav),
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.events.PublishGenerated(ev); err != nil {
			s.logger.Warn("Failed to publish generated event", zap.String("id", res.ID), zap.Error(err))
		}
	}
	return res, nil
}

func (s *Service) loadBackground(ctx context.Context, req Request) ([]float32, error) {
	key := req.Data.EffectiveBackground()
	if key == wizard.BackgroundNone {
		return nil, nil
	}

	var raw []byte
	if key == wizard.BackgroundCustom {
		if len(req.CustomBackground) == 0 {
			return nil, ErrMissingCustom
		}
		raw = req.CustomBackground
	} else {
		if key == wizard.DefaultBackground && !s.installed(key) {
			s.logger.Warn("Default background is not installed, mixing without music", zap.String("dir", s.backgroundsDir))
			return nil, nil
		}
		var err error
		raw, err = s.BackgroundWAV(ctx, req.UserID, key)
		if err != nil {
			return nil, err
		}
	}

	samples, err := audio.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	return samples, nil
}

// BackgroundWAV returns the stored audio of a system track or of one of the user's saved uploads.
func (s *Service) BackgroundWAV(ctx context.Context, userID int64, key string) ([]byte, error) {
	if !strings.HasPrefix(key, wizard.SavedPrefix) {
		if !isSystemBackground(key) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBackground, key)
		}
		raw, err := os.ReadFile(s.systemPath(key))
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s is not installed", ErrUnknownBackground, key)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read system background %s: %w", key, err)
		}
		return raw, nil
	}

	id := strings.TrimPrefix(key, wizard.SavedPrefix)
	bg, err := s.backgrounds.GetBackground(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackground, key)
	}
	if err != nil {
		return nil, err
	}
	if bg.UserID != userID {
		return nil, ErrForbidden
	}
	return s.blobs.Get(ctx, id)
}

func isSystemBackground(key string) bool {
	for _, b := range SystemBackgrounds {
		if b.ID == key {
			return true
		}
	}
	return false
}

func (s *Service) installed(key string) bool {
	_, err := os.Stat(s.systemPath(key))
	return err == nil
}
