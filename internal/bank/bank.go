package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

// Bank errors
var (
	ErrStaleSelection = errors.New("selection no longer resolves against the question bank")
	ErrUnknownProgram = errors.New("unknown or unavailable programme")
	ErrEmptyGroup     = errors.New("question bank group is empty")
	ErrInvalidBank    = errors.New("invalid question bank")
)

// Bank is read-only question content of one test module: named groups of
// ordered question sets. Groups are programme keys, "General", or a module
// specific name such as "pool".
type Bank struct {
	Module string
	groups map[string][]models.QuestionSet
}

func New(module string, groups map[string][]models.QuestionSet) *Bank {
	if groups == nil {
		groups = make(map[string][]models.QuestionSet)
	}
	return &Bank{Module: module, groups: groups}
}

// Group returns the sets of a group in bank order
func (b *Bank) Group(name string) []models.QuestionSet {
	return b.groups[name]
}

func (b *Bank) HasGroup(name string) bool {
	return len(b.groups[name]) > 0
}

// Set finds a set by id within a group
func (b *Bank) Set(group, id string) (models.QuestionSet, bool) {
	for _, set := range b.groups[group] {
		if set.ID == id {
			return set, true
		}
	}
	return models.QuestionSet{}, false
}

// Groups lists group names in sorted order
func (b *Bank) Groups() []string {
	names := make([]string, 0, len(b.groups))
	for name := range b.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every set has an id and every question an id and answer
func (b *Bank) Validate(v *validator.Validator) error {
	if len(b.groups) == 0 {
		return fmt.Errorf("%w: %s has no groups", ErrInvalidBank, b.Module)
	}
	for _, group := range b.Groups() {
		for i := range b.groups[group] {
			if err := v.Validate(&b.groups[group][i]); err != nil {
				return fmt.Errorf("%w: %s/%s set %d: %v", ErrInvalidBank, b.Module, group, i, err)
			}
		}
	}
	return nil
}

// ===== JSON LOADING =====

type fileBank struct {
	Module string               `json:"module"`
	Groups map[string][]fileSet `json:"groups"`
}

type fileSet struct {
	ID        string             `json:"id"`
	Audio     string             `json:"audio"`
	Table     []models.TableCell `json:"table"`
	Questions []fileQuestion     `json:"questions"`
}

// fileQuestion accepts a single "answer" or a list of "answers"
type fileQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
	Answers []string `json:"answers"`
}

func (q fileQuestion) toModel() models.Question {
	answers := make([]string, 0, len(q.Answers)+1)
	if strings.TrimSpace(q.Answer) != "" {
		answers = append(answers, q.Answer)
	}
	for _, a := range q.Answers {
		if strings.TrimSpace(a) != "" {
			answers = append(answers, a)
		}
	}
	return models.Question{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: q.Options,
		Answers: answers,
	}
}

// LoadJSON decodes a bank document
func LoadJSON(r io.Reader) (*Bank, error) {
	var doc fileBank
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}

	groups := make(map[string][]models.QuestionSet, len(doc.Groups))
	for name, sets := range doc.Groups {
		out := make([]models.QuestionSet, 0, len(sets))
		for _, s := range sets {
			set := models.QuestionSet{
				ID:        s.ID,
				Audio:     s.Audio,
				Table:     s.Table,
				Questions: make([]models.Question, 0, len(s.Questions)),
			}
			for _, q := range s.Questions {
				set.Questions = append(set.Questions, q.toModel())
			}
			out = append(out, set)
		}
		groups[name] = out
	}

	return New(doc.Module, groups), nil
}

// LoadFile loads a .json or .xlsx bank by extension
func LoadFile(path string) (*Bank, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open question bank: %w", err)
		}
		defer f.Close()
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("%w: unsupported file %s", ErrInvalidBank, filepath.Base(path))
	}
}

// LoadModule looks for <dir>/<module>.json, then <dir>/<module>.xlsx
func LoadModule(dir, module string) (*Bank, error) {
	for _, ext := range []string{".json", ".xlsx"} {
		path := filepath.Join(dir, module+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		b, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if b.Module == "" {
			b.Module = module
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: no bank file for %s in %s", ErrInvalidBank, module, dir)
}
