package roomlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tOgg1/roomlist/internal/models"
)

// Fixture is a YAML description of a room list, used by the CLI and tests.
type Fixture struct {
	Rooms  []*models.Room     `yaml:"rooms"`
	Events []models.RoomEvent `yaml:"events,omitempty"`
}

// ParseFixture decodes and validates a fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	var errs models.ValidationErrors
	seen := make(map[string]struct{}, len(f.Rooms))
	for i, room := range f.Rooms {
		field := fmt.Sprintf("rooms[%d]", i)
		if err := room.Validate(); err != nil {
			errs.Add(field, err)
			continue
		}
		if _, dup := seen[room.ID]; dup {
			errs.AddMessage(field+".id", fmt.Sprintf("duplicate room %q", room.ID))
		}
		seen[room.ID] = struct{}{}
	}
	for i, ev := range f.Events {
		if _, err := models.CauseForEvent(ev.Type); err != nil {
			errs.Add(fmt.Sprintf("events[%d].type", i), err)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixture(data)
}

// Source returns a MemorySource populated with the fixture rooms.
func (f *Fixture) Source(buffer int) *MemorySource {
	src := NewMemorySource(buffer)
	for _, room := range f.Rooms {
		src.Set(room)
	}
	return src
}
