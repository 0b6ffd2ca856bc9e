package analysis

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/bryanwahyu/plantcare/internal/application"
	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
	"github.com/bryanwahyu/plantcare/internal/infra/ai/prompt"
)

// ProfileStore is the part of the plant repository the Service needs.
type ProfileStore interface {
	Get(ctx context.Context, id string) (plants.PlantProfile, error)
	AddPlant(ctx context.Context, name string) (plants.PlantProfile, error)
	Latest(ctx context.Context, plantID string) (*plants.AnalysisRecord, error)
	AppendAnalysis(ctx context.Context, plantID string, record plants.AnalysisRecord) error
}

// Service runs analyses end to end. A record is appended to the store only
// after the whole response was received and validated, at most once per call.
type Service struct {
	Store  ProfileStore
	Client *Client
	Images plants.ImageStore // optional
	Clock  application.Clock
	NewID  func() string // optional, defaults to uuid
}

// AnalyzeCommand targets an existing plant by PlantID, or creates one named
// PlantName. With neither set a "Quick Analysis" plant is created.
type AnalyzeCommand struct {
	PlantID    string
	PlantName  string
	Image      Image
	Env        *plants.EnvironmentalData
	OnFragment func(string)
}

type AnalyzeResult struct {
	Plant  plants.PlantProfile   `json:"plant"`
	Record plants.AnalysisRecord `json:"record"`
}

func (s *Service) RunAnalysis(ctx context.Context, cmd AnalyzeCommand) (AnalyzeResult, error) {
	start := s.now()
	if len(cmd.Image.Data) == 0 {
		return AnalyzeResult{}, fmt.Errorf("%w: image is empty", plants.ErrInvalidArgument)
	}

	plant, err := s.resolvePlant(ctx, cmd)
	if err != nil {
		return AnalyzeResult{}, err
	}
	previous, err := s.Store.Latest(ctx, plant.ID)
	if err != nil {
		return AnalyzeResult{}, err
	}

	req := prompt.Build(cmd.Env, previous)
	payload, err := s.Client.Analyze(ctx, cmd.Image, req, cmd.OnFragment)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if err := checkProgress(payload, previous); err != nil {
		return AnalyzeResult{}, err
	}

	recordID := s.newID()
	imageURL, err := s.storeImage(ctx, plant.ID, recordID, cmd.Image)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return AnalyzeResult{}, err
	}

	record := payload.Record(recordID, s.now(), imageURL)
	if err := s.Store.AppendAnalysis(ctx, plant.ID, record); err != nil {
		return AnalyzeResult{}, err
	}
	plant.AnalysisHistory = append(plant.AnalysisHistory, record.Clone())

	log.WithFields(log.Fields{
		"plant_id":    plant.ID,
		"record_id":   record.ID,
		"healthy":     record.IsHealthy,
		"progress":    record.ProgressAssessment,
		"confidence":  record.ConfidenceScore,
		"duration_ms": s.now().Sub(start).Milliseconds(),
	}).Info("analysis completed")

	return AnalyzeResult{Plant: plant, Record: record}, nil
}

func (s *Service) resolvePlant(ctx context.Context, cmd AnalyzeCommand) (plants.PlantProfile, error) {
	if id := strings.TrimSpace(cmd.PlantID); id != "" {
		return s.Store.Get(ctx, id)
	}
	name := strings.TrimSpace(cmd.PlantName)
	if name == "" {
		name = "Quick Analysis " + s.now().Format("2006-01-02 15:04")
	}
	return s.Store.AddPlant(ctx, name)
}

// checkProgress ties the progress fields to the history the request was built from.
func checkProgress(p *Payload, previous *plants.AnalysisRecord) error {
	first := p.ProgressAssessment == plants.ProgressNA
	if previous == nil && !first {
		return fmt.Errorf("%w: progressAssessment %q reported for a plant without prior analysis", ai.ErrSchemaViolation, p.ProgressAssessment)
	}
	if previous != nil && first {
		return fmt.Errorf("%w: progressAssessment is N/A although a previous analysis exists", ai.ErrSchemaViolation)
	}
	return nil
}

func (s *Service) storeImage(ctx context.Context, plantID, recordID string, img Image) (string, error) {
	if s.Images == nil {
		return img.URL, nil
	}
	key := fmt.Sprintf("plants/%s/%s%s", plantID, recordID, extensionFor(img.MIMEType))
	url, err := s.Images.PutImage(ctx, key, img.Data, img.MIMEType)
	if err != nil {
		return "", fmt.Errorf("store analyzed image: %w", err)
	}
	return url, nil
}

func extensionFor(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	for _, e := range exts {
		if e == ".jpg" || e == ".png" || e == ".webp" {
			return e
		}
	}
	return exts[0]
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.New().String()
}
