package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// matterMu serializes read-modify-write cycles on matter files so
// concurrent submissions to the same matter cannot drop each other's
// messages.
var matterMu sync.Mutex

// EnsureDataDir ensures the matter data directory exists.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir, 0755)
}

// MatterPath returns the file path for a matter.
func MatterPath(matterID string) string {
	return filepath.Join(DataDir, matterID+".json")
}

// NewMatterID generates a matter identifier of the form matter_<12 hex>.
func NewMatterID() string {
	return "matter_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// CreateMatter creates and persists a new matter. Empty metadata fields get
// the same defaults the original system used.
func CreateMatter(req CreateMatterRequest) (*Matter, error) {
	if err := EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	meta := MatterMetadata{
		MatterName:   req.MatterName,
		PracticeArea: req.PracticeArea,
		Jurisdiction: req.Jurisdiction,
		Client:       req.Client,
	}
	if meta.MatterName == "" {
		meta.MatterName = "New Matter"
	}
	if meta.PracticeArea == "" {
		meta.PracticeArea = "civil"
	}
	if meta.Jurisdiction == "" {
		meta.Jurisdiction = "federal"
	}

	now := time.Now().UTC()
	matter := &Matter{
		ID:        NewMatterID(),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  meta,
		Messages:  []Message{},
	}

	if err := SaveMatter(matter); err != nil {
		return nil, err
	}
	return matter, nil
}

// GetMatter loads a matter by ID. Returns nil without error when the matter
// does not exist.
func GetMatter(matterID string) (*Matter, error) {
	path := MatterPath(matterID)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matter file: %w", err)
	}

	var matter Matter
	if err := json.Unmarshal(data, &matter); err != nil {
		return nil, fmt.Errorf("failed to parse matter JSON: %w", err)
	}
	return &matter, nil
}

// SaveMatter writes a matter to disk as formatted JSON.
func SaveMatter(matter *Matter) error {
	if err := EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(matter, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal matter: %w", err)
	}

	if err := os.WriteFile(MatterPath(matter.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write matter file: %w", err)
	}
	return nil
}

// ListMatters lists all matters with summary info, newest first. Unreadable
// or invalid files are skipped.
func ListMatters() ([]MatterSummary, error) {
	if err := EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	entries, err := os.ReadDir(DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	summaries := make([]MatterSummary, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "matter_") || filepath.Ext(name) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(DataDir, name))
		if err != nil {
			continue
		}

		var matter Matter
		if err := json.Unmarshal(data, &matter); err != nil {
			continue
		}

		summaries = append(summaries, MatterSummary{
			ID:           matter.ID,
			CreatedAt:    matter.CreatedAt,
			UpdatedAt:    matter.UpdatedAt,
			Metadata:     matter.Metadata,
			MessageCount: len(matter.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// UpdateMatterMetadata applies non-nil fields of the update to a matter's
// metadata. Returns nil without error when the matter does not exist.
func UpdateMatterMetadata(matterID string, updates UpdateMatterRequest) (*Matter, error) {
	matterMu.Lock()
	defer matterMu.Unlock()

	matter, err := GetMatter(matterID)
	if err != nil || matter == nil {
		return matter, err
	}

	if updates.MatterName != nil {
		matter.Metadata.MatterName = *updates.MatterName
	}
	if updates.PracticeArea != nil {
		matter.Metadata.PracticeArea = *updates.PracticeArea
	}
	if updates.Jurisdiction != nil {
		matter.Metadata.Jurisdiction = *updates.Jurisdiction
	}
	if updates.Client != nil {
		matter.Metadata.Client = *updates.Client
	}
	matter.UpdatedAt = time.Now().UTC()

	if err := SaveMatter(matter); err != nil {
		return nil, err
	}
	return matter, nil
}

// DeleteMatter removes a matter. Returns false when it does not exist.
func DeleteMatter(matterID string) (bool, error) {
	path := MatterPath(matterID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("failed to delete matter file: %w", err)
	}
	return true, nil
}

// AddUserMessage appends a user question (with optional context) to a
// matter's history.
func AddUserMessage(matterID, content, caseContext string) error {
	matterMu.Lock()
	defer matterMu.Unlock()

	matter, err := GetMatter(matterID)
	if err != nil {
		return err
	}
	if matter == nil {
		return fmt.Errorf("matter %s not found", matterID)
	}

	now := time.Now().UTC()
	matter.Messages = append(matter.Messages, Message{
		Role:      "user",
		Timestamp: now,
		Content:   content,
		Context:   caseContext,
	})
	matter.UpdatedAt = now
	return SaveMatter(matter)
}

// AddAssistantMessage appends a completed deliberation to a matter's
// history.
func AddAssistantMessage(matterID string, result *DeliberationResult) error {
	matterMu.Lock()
	defer matterMu.Unlock()

	matter, err := GetMatter(matterID)
	if err != nil {
		return err
	}
	if matter == nil {
		return fmt.Errorf("matter %s not found", matterID)
	}

	now := time.Now().UTC()
	stage2 := result.Stage2
	stage3 := result.Stage3
	matter.Messages = append(matter.Messages, Message{
		Role:      "assistant",
		Timestamp: now,
		Stage1:    result.Stage1,
		Stage2:    &stage2,
		Stage3:    &stage3,
	})
	matter.UpdatedAt = now
	return SaveMatter(matter)
}
