package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/ferrofluid/config"
)

const (
	// BuiltInID identifies the read-only profile built from the defaults.
	BuiltInID = "client-default"
	// BuiltInName is the display name of the built-in profile.
	BuiltInName = "Client Default"

	fallbackName = "Custom Profile"
)

var (
	ErrNotFound = errors.New("profile not found")
	ErrReadOnly = errors.New("built-in profile is read-only")
)

// Profile is a named parameter bundle.
type Profile struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	BuiltIn bool   `yaml:"-"`
	Values  Values `yaml:"values"`
}

// storeFile is the on-disk layout. The built-in profile is never written.
type storeFile struct {
	Profiles        []Profile `yaml:"profiles"`
	ActiveProfileID string    `yaml:"active_profile_id"`
}

// Store keeps the built-in profile followed by user profiles, and the id of
// the active one. Every mutation is persisted to path when path is set.
type Store struct {
	path     string
	defaults *config.Config
	profiles []Profile
	active   string
	rng      *rand.Rand
	now      func() time.Time
}

// NewStore returns a store holding only the built-in profile. Nothing is
// persisted when path is empty.
func NewStore(path string, defaults *config.Config) *Store {
	s := &Store{
		path:     path,
		defaults: defaults,
		active:   BuiltInID,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	s.profiles = []Profile{s.builtIn()}
	return s
}

// OpenStore loads path into a new store. A missing file yields a store with
// only the built-in profile. Stored entries with a blank or reserved id are
// skipped; blank names become "Custom Profile".
func OpenStore(path string, defaults *config.Config) (*Store, error) {
	s := NewStore(path, defaults)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	for _, entry := range file.Profiles {
		id := strings.TrimSpace(entry.ID)
		if id == "" || id == BuiltInID {
			continue
		}
		if _, ok := s.Get(id); ok {
			continue
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = fallbackName
		}
		s.profiles = append(s.profiles, Profile{
			ID:     id,
			Name:   name,
			Values: Sanitize(entry.Values, defaults),
		})
	}
	if _, ok := s.Get(file.ActiveProfileID); ok {
		s.active = file.ActiveProfileID
	}

	slog.Info("profiles loaded", "path", path, "count", len(s.profiles), "active", s.active)
	return s, nil
}

func (s *Store) builtIn() Profile {
	return Profile{
		ID:      BuiltInID,
		Name:    BuiltInName,
		BuiltIn: true,
		Values:  Collect(s.defaults, s.defaults),
	}
}

// Profiles returns the profiles in display order, built-in first.
func (s *Store) Profiles() []Profile {
	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Get returns the profile with id.
func (s *Store) Get(id string) (Profile, bool) {
	if i := s.index(id); i >= 0 {
		return s.profiles[i], true
	}
	return Profile{}, false
}

func (s *Store) index(id string) int {
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			return i
		}
	}
	return -1
}

// Active returns the active profile.
func (s *Store) Active() Profile {
	if p, ok := s.Get(s.active); ok {
		return p
	}
	return s.profiles[0]
}

// Select makes id the active profile and returns it. Unknown ids select the
// built-in profile.
func (s *Store) Select(id string) (Profile, error) {
	p, ok := s.Get(id)
	if !ok {
		p = s.profiles[0]
	}
	s.active = p.ID
	return p, s.persist()
}

// Save overwrites the values of an existing user profile and makes it active.
func (s *Store) Save(id string, values Values) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("saving %q: %w", id, ErrNotFound)
	}
	if s.profiles[i].BuiltIn {
		return fmt.Errorf("saving %q: %w", id, ErrReadOnly)
	}
	s.profiles[i].Values = Sanitize(values, s.defaults)
	s.active = id
	slog.Info("profile saved", "id", id, "name", s.profiles[i].Name)
	return s.persist()
}

// SaveAs creates a new user profile from values and makes it active. A blank
// name becomes "Profile N" where N is the current profile count.
func (s *Store) SaveAs(name string, values Values) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Profile " + strconv.Itoa(len(s.profiles))
	}
	p := Profile{
		ID:     s.newID(),
		Name:   name,
		Values: Sanitize(values, s.defaults),
	}
	s.profiles = append(s.profiles, p)
	s.active = p.ID
	slog.Info("profile created", "id", p.ID, "name", p.Name)
	return p, s.persist()
}

// Delete removes a user profile. The built-in profile becomes active and is
// returned so the caller can apply it.
func (s *Store) Delete(id string) (Profile, error) {
	i := s.index(id)
	if i < 0 {
		return Profile{}, fmt.Errorf("deleting %q: %w", id, ErrNotFound)
	}
	if s.profiles[i].BuiltIn {
		return Profile{}, fmt.Errorf("deleting %q: %w", id, ErrReadOnly)
	}
	name := s.profiles[i].Name
	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	s.active = BuiltInID
	slog.Info("profile deleted", "id", id, "name", name)
	return s.profiles[0], s.persist()
}

func (s *Store) newID() string {
	for {
		id := "custom-" + strconv.FormatInt(s.now().UnixMilli(), 36) + "-" + strconv.FormatInt(int64(s.rng.Intn(0x10000)), 36)
		if s.index(id) < 0 {
			return id
		}
	}
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	file := storeFile{ActiveProfileID: s.active}
	for _, p := range s.profiles {
		if p.BuiltIn {
			continue
		}
		file.Profiles = append(file.Profiles, p)
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshaling profiles: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating profile directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing profiles: %w", err)
	}
	return nil
}
