package plants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"

	domain "github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// Store is the repository of plant profiles and their analysis histories.
// Every mutation rewrites the whole collection in its Slot while holding mu,
// so concurrent callers in one process never lose an update. Two processes
// writing the same slot are not coordinated; the last write wins.
type Store struct {
	slot  domain.Slot
	mu    sync.Mutex
	newID func() string
}

func NewStore(slot domain.Slot) *Store {
	return &Store{slot: slot, newID: func() string { return uuid.New().String() }}
}

// Load returns every stored profile. Missing, unreadable or corrupt storage
// yields an empty collection; the failure is only logged.
func (s *Store) Load(ctx context.Context) []domain.PlantProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.read(ctx)
	if errors.Is(err, domain.ErrSlotEmpty) {
		return []domain.PlantProfile{}
	}
	if err != nil {
		log.WithError(err).Warn("plant store: read failed, starting with empty collection")
		return []domain.PlantProfile{}
	}
	return cloneAll(profiles)
}

// List is Load under the name the HTTP layer uses.
func (s *Store) List(ctx context.Context) []domain.PlantProfile {
	return s.Load(ctx)
}

// Get returns one profile by id.
func (s *Store) Get(ctx context.Context, id string) (domain.PlantProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readCollection(ctx)
	if err != nil {
		return domain.PlantProfile{}, err
	}
	i := indexOf(profiles, id)
	if i < 0 {
		return domain.PlantProfile{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return profiles[i].Clone(), nil
}

// AddPlant creates a profile with an empty history.
func (s *Store) AddPlant(ctx context.Context, name string) (domain.PlantProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.PlantProfile{}, fmt.Errorf("%w: plant name cannot be empty", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readCollection(ctx)
	if err != nil {
		return domain.PlantProfile{}, err
	}
	p := domain.PlantProfile{ID: s.newID(), Name: name, AnalysisHistory: []domain.AnalysisRecord{}}
	profiles = append(profiles, p)
	if err := s.write(ctx, profiles); err != nil {
		return domain.PlantProfile{}, err
	}
	log.WithFields(log.Fields{"plant_id": p.ID, "name": p.Name}).Info("plant added")
	return p.Clone(), nil
}

// Rename changes the display name of an existing plant.
func (s *Store) Rename(ctx context.Context, id, name string) (domain.PlantProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.PlantProfile{}, fmt.Errorf("%w: plant name cannot be empty", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readCollection(ctx)
	if err != nil {
		return domain.PlantProfile{}, err
	}
	i := indexOf(profiles, id)
	if i < 0 {
		return domain.PlantProfile{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	profiles[i].Name = name
	if err := s.write(ctx, profiles); err != nil {
		return domain.PlantProfile{}, err
	}
	return profiles[i].Clone(), nil
}

// AppendAnalysis adds record to the end of the plant's history.
func (s *Store) AppendAnalysis(ctx context.Context, plantID string, record domain.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readCollection(ctx)
	if err != nil {
		return err
	}
	i := indexOf(profiles, plantID)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, plantID)
	}
	profiles[i].AnalysisHistory = append(profiles[i].AnalysisHistory, record.Clone())
	return s.write(ctx, profiles)
}

// Latest returns the newest record of a plant, or nil when it has none.
func (s *Store) Latest(ctx context.Context, plantID string) (*domain.AnalysisRecord, error) {
	p, err := s.Get(ctx, plantID)
	if err != nil {
		return nil, err
	}
	return p.Latest(), nil
}

func (s *Store) read(ctx context.Context) ([]domain.PlantProfile, error) {
	data, err := s.slot.Read(ctx)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// readCollection treats an empty or corrupt slot as an empty collection, but
// fails when the slot itself cannot be read. Lookups then report the outage
// instead of a missing plant, and writes cannot erase unreachable data.
func (s *Store) readCollection(ctx context.Context) ([]domain.PlantProfile, error) {
	data, err := s.slot.Read(ctx)
	if errors.Is(err, domain.ErrSlotEmpty) {
		return []domain.PlantProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plant profiles: %w", err)
	}
	profiles, err := decode(data)
	if err != nil {
		log.WithError(err).Warn("plant store: corrupt collection replaced on write")
		return []domain.PlantProfile{}, nil
	}
	return profiles, nil
}

func (s *Store) write(ctx context.Context, profiles []domain.PlantProfile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("encode plant profiles: %w", err)
	}
	if err := s.slot.Write(ctx, data); err != nil {
		return fmt.Errorf("write plant profiles: %w", err)
	}
	return nil
}

func decode(data []byte) ([]domain.PlantProfile, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []domain.PlantProfile{}, nil
	}
	var profiles []domain.PlantProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decode plant profiles: %w", err)
	}
	if profiles == nil {
		profiles = []domain.PlantProfile{}
	}
	return profiles, nil
}

func indexOf(profiles []domain.PlantProfile, id string) int {
	for i := range profiles {
		if profiles[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(in []domain.PlantProfile) []domain.PlantProfile {
	out := make([]domain.PlantProfile, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
