package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ---- RMMZ Data Structures ----

type SystemData struct {
	GameTitle    string `json:"gameTitle"`
	CurrencyUnit string `json:"currencyUnit"`
	StartMapID   int    `json:"startMapId"`
	StartX       int    `json:"startX"`
	StartY       int    `json:"startY"`
	PartyMembers []int  `json:"partyMembers"`
	Title1Name   string `json:"title1Name"`
}

type Actor struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Nickname       string `json:"nickname"`
	ClassID        int    `json:"classId"`
	InitialLevel   int    `json:"initialLevel"`
	CharacterName  string `json:"characterName"`
	CharacterIndex int    `json:"characterIndex"`
	FaceName       string `json:"faceName"`
	FaceIndex      int    `json:"faceIndex"`
	Profile        string `json:"profile"`
}

// ---- ResourceLoader ----

// ResourceLoader reads and holds the RMMZ data files the selection flow
// needs, and resolves image assets under the project's img/ directory.
type ResourceLoader struct {
	DataPath string
	ImgPath  string
	System   *SystemData
	Actors   []*Actor // index = actor ID; index 0 is always nil in RMMZ data

	// Plugins maps each active plugin in js/plugins.js to its parameters.
	Plugins map[string]map[string]string

	// CharacterSelect holds the parameters of the CharacterSelect plugin
	// entry. Nil if the plugin is not listed or disabled.
	CharacterSelect *CharacterSelectParams
}

// NewLoader creates a ResourceLoader for the given RMMZ data directory.
func NewLoader(dataPath, imgPath string) *ResourceLoader {
	return &ResourceLoader{
		DataPath: dataPath,
		ImgPath:  imgPath,
		Plugins:  make(map[string]map[string]string),
	}
}

// Load reads all data files, then applies plugin adapters.
func (rl *ResourceLoader) Load() error {
	loaders := []func() error{
		rl.loadSystem,
		rl.loadActors,
	}
	for _, fn := range loaders {
		if err := fn(); err != nil {
			return err
		}
	}
	return rl.applyPluginAdapters()
}

func (rl *ResourceLoader) path(file string) string {
	return filepath.Join(rl.DataPath, file)
}

func loadJSONArray[T any](path string) ([]*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	var arr []*T
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return arr, nil
}

func loadJSONObject[T any](path string, out *T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("resource: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return nil
}

func (rl *ResourceLoader) loadSystem() error {
	rl.System = &SystemData{}
	return loadJSONObject(rl.path("System.json"), rl.System)
}

func (rl *ResourceLoader) loadActors() error {
	var err error
	rl.Actors, err = loadJSONArray[Actor](rl.path("Actors.json"))
	return err
}

// ActorByID returns the Actor with the given ID, or nil.
func (rl *ResourceLoader) ActorByID(id int) *Actor {
	if rl == nil || id <= 0 || id >= len(rl.Actors) {
		return nil
	}
	if a := rl.Actors[id]; a != nil && a.ID == id {
		return a
	}
	// Hand-edited data may not be dense; fall back to a scan.
	for _, a := range rl.Actors {
		if a != nil && a.ID == id {
			return a
		}
	}
	return nil
}

// HasActor reports whether the actor database defines id.
func (rl *ResourceLoader) HasActor(id int) bool {
	return rl.ActorByID(id) != nil
}

// ActorName returns the database name of an actor, or "" if unknown.
func (rl *ResourceLoader) ActorName(id int) string {
	if a := rl.ActorByID(id); a != nil {
		return a.Name
	}
	return ""
}

// StartingParty returns System.json's partyMembers, or nil.
func (rl *ResourceLoader) StartingParty() []int {
	if rl == nil || rl.System == nil {
		return nil
	}
	out := make([]int, len(rl.System.PartyMembers))
	copy(out, rl.System.PartyMembers)
	return out
}

// ---- Asset lookups ----

// PicturePath returns the file path of img/pictures/<name>.png.
func (rl *ResourceLoader) PicturePath(name string) string {
	return filepath.Join(rl.ImgPath, "pictures", name+".png")
}

// CharacterPath returns the file path of img/characters/<name>.png.
func (rl *ResourceLoader) CharacterPath(name string) string {
	return filepath.Join(rl.ImgPath, "characters", name+".png")
}

// ValidWalkName checks that the given walk character sheet name exists in img/characters/.
func (rl *ResourceLoader) ValidWalkName(name string) bool {
	if rl.ImgPath == "" {
		return true // no img path configured, skip check
	}
	_, err := os.Stat(rl.CharacterPath(name))
	return err == nil
}

// ValidPictureName checks that the given picture exists in img/pictures/.
func (rl *ResourceLoader) ValidPictureName(name string) bool {
	if rl.ImgPath == "" {
		return true
	}
	_, err := os.Stat(rl.PicturePath(name))
	return err == nil
}
