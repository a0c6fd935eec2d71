package bank

import (
	"fmt"
	"math/rand"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

// Section is a titled block of resolved items, such as the general and
// programme parts of a listening paper
type Section struct {
	Key     string             `json:"key"`
	SetID   string             `json:"set_id"`
	Audio   string             `json:"audio,omitempty"`
	Table   []models.TableCell `json:"table,omitempty"`
	Example *models.Question   `json:"example,omitempty"`
	Items   []models.Item      `json:"items"`
}

// Paper is the question content of one attempt
type Paper struct {
	Sections []Section `json:"sections"`
}

// Items flattens sections in presentation order
func (p *Paper) Items() []models.Item {
	var items []models.Item
	for _, s := range p.Sections {
		items = append(items, s.Items...)
	}
	return items
}

// Policy picks content for a fresh attempt and rebuilds it on resume. Draw
// returns only identifiers; Resolve fails with ErrStaleSelection when they no
// longer exist in the bank.
type Policy interface {
	Draw(b *Bank, program string, rng *rand.Rand) (models.Selection, error)
	Resolve(b *Bank, sel models.Selection) (*Paper, error)
}

// ===== POOLED DRAW =====

// PooledDraw samples Count distinct questions across every set of a group
type PooledDraw struct {
	Group          string
	Count          int
	ShuffleOptions bool
}

func (p PooledDraw) Draw(b *Bank, _ string, rng *rand.Rand) (models.Selection, error) {
	pool := p.pool(b)
	if len(pool) == 0 {
		return models.Selection{}, fmt.Errorf("%w: %s", ErrEmptyGroup, p.Group)
	}

	n := p.Count
	if n <= 0 || n > len(pool) {
		n = len(pool)
	}

	ids := make([]string, 0, n)
	for _, i := range rng.Perm(len(pool))[:n] {
		ids = append(ids, pool[i].ID)
	}
	return models.Selection{QuestionIDs: ids, Seed: rng.Int63()}, nil
}

func (p PooledDraw) Resolve(b *Bank, sel models.Selection) (*Paper, error) {
	if len(sel.QuestionIDs) == 0 {
		return nil, fmt.Errorf("%w: no question ids", ErrStaleSelection)
	}

	byID := make(map[string]models.Question)
	for _, q := range p.pool(b) {
		if _, seen := byID[q.ID]; !seen {
			byID[q.ID] = q
		}
	}

	shuffle := rand.New(rand.NewSource(sel.Seed))
	items := make([]models.Item, 0, len(sel.QuestionIDs))
	for _, id := range sel.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: question %s", ErrStaleSelection, id)
		}
		if p.ShuffleOptions {
			q.Options = shuffled(q.Options, shuffle)
		}
		items = append(items, models.Item{Question: q, Section: p.Group})
	}

	return &Paper{Sections: []Section{{Key: p.Group, Items: items}}}, nil
}

func (p PooledDraw) pool(b *Bank) []models.Question {
	var pool []models.Question
	for _, set := range b.Group(p.Group) {
		pool = append(pool, set.Questions...)
	}
	return pool
}

// ===== RANDOM SET =====

// RandomSet picks one set of a group, optionally in shuffled question order
type RandomSet struct {
	Group            string
	ShuffleQuestions bool
}

func (p RandomSet) Draw(b *Bank, _ string, rng *rand.Rand) (models.Selection, error) {
	sets := b.Group(p.Group)
	if len(sets) == 0 {
		return models.Selection{}, fmt.Errorf("%w: %s", ErrEmptyGroup, p.Group)
	}

	set := sets[rng.Intn(len(sets))]
	sel := models.Selection{SetKey: set.ID}
	if p.ShuffleQuestions {
		sel.Order = rng.Perm(len(set.Questions))
	}
	return sel, nil
}

func (p RandomSet) Resolve(b *Bank, sel models.Selection) (*Paper, error) {
	set, ok := b.Set(p.Group, sel.SetKey)
	if !ok {
		return nil, fmt.Errorf("%w: set %s", ErrStaleSelection, sel.SetKey)
	}

	order := sel.Order
	if len(order) == 0 {
		order = identity(len(set.Questions))
	}
	if err := checkOrder(order, len(set.Questions)); err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(order))
	for _, i := range order {
		items = append(items, models.Item{Question: set.Questions[i], Section: set.ID})
	}
	return &Paper{Sections: []Section{sectionOf(set, set.ID, items)}}, nil
}

// ===== PROGRAMME POLICIES =====

// ProgramPair combines a random set of a shared group with a random set of
// the learner's programme
type ProgramPair struct {
	General string
}

const (
	sectionGeneral  = "general"
	sectionSpecific = "specific"
)

func (p ProgramPair) Draw(b *Bank, program string, rng *rand.Rand) (models.Selection, error) {
	if err := requireProgram(b, program); err != nil {
		return models.Selection{}, err
	}
	general := b.Group(p.General)
	if len(general) == 0 {
		return models.Selection{}, fmt.Errorf("%w: %s", ErrEmptyGroup, p.General)
	}
	specific := b.Group(program)

	return models.Selection{
		Program: program,
		SetIDs: map[string]string{
			sectionGeneral:  general[rng.Intn(len(general))].ID,
			sectionSpecific: specific[rng.Intn(len(specific))].ID,
		},
	}, nil
}

func (p ProgramPair) Resolve(b *Bank, sel models.Selection) (*Paper, error) {
	general, ok := b.Set(p.General, sel.SetIDs[sectionGeneral])
	if !ok {
		return nil, fmt.Errorf("%w: general set %q", ErrStaleSelection, sel.SetIDs[sectionGeneral])
	}
	specific, ok := b.Set(sel.Program, sel.SetIDs[sectionSpecific])
	if !ok {
		return nil, fmt.Errorf("%w: %s set %q", ErrStaleSelection, sel.Program, sel.SetIDs[sectionSpecific])
	}

	return &Paper{Sections: []Section{
		sectionOf(general, sectionGeneral, itemsOf(general.Questions, sectionGeneral)),
		sectionOf(specific, sectionSpecific, itemsOf(specific.Questions, sectionSpecific)),
	}}, nil
}

// ProgramSet picks one random set of the learner's programme. The seed lays
// out the word bank of a matching task.
type ProgramSet struct{}

func (ProgramSet) Draw(b *Bank, program string, rng *rand.Rand) (models.Selection, error) {
	if err := requireProgram(b, program); err != nil {
		return models.Selection{}, err
	}
	sets := b.Group(program)
	return models.Selection{
		Program: program,
		SetKey:  sets[rng.Intn(len(sets))].ID,
		Seed:    rng.Int63(),
	}, nil
}

func (ProgramSet) Resolve(b *Bank, sel models.Selection) (*Paper, error) {
	set, ok := b.Set(sel.Program, sel.SetKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s set %q", ErrStaleSelection, sel.Program, sel.SetKey)
	}
	return &Paper{Sections: []Section{sectionOf(set, set.ID, itemsOf(set.Questions, set.ID))}}, nil
}

// ProgramFixed presents fixed task sets of the learner's programme. With
// ExampleFirst the first question of the first task is a worked example and
// is not scored.
type ProgramFixed struct {
	Tasks        []string
	ExampleFirst bool
}

func (p ProgramFixed) Draw(b *Bank, program string, _ *rand.Rand) (models.Selection, error) {
	if err := requireProgram(b, program); err != nil {
		return models.Selection{}, err
	}
	for _, task := range p.Tasks {
		if _, ok := b.Set(program, task); !ok {
			return models.Selection{}, fmt.Errorf("%w: %s has no %s", ErrUnknownProgram, program, task)
		}
	}
	return models.Selection{Program: program}, nil
}

func (p ProgramFixed) Resolve(b *Bank, sel models.Selection) (*Paper, error) {
	if sel.Program == "" {
		return nil, fmt.Errorf("%w: no programme", ErrStaleSelection)
	}

	paper := &Paper{}
	for i, task := range p.Tasks {
		set, ok := b.Set(sel.Program, task)
		if !ok {
			return nil, fmt.Errorf("%w: %s set %q", ErrStaleSelection, sel.Program, task)
		}

		questions := set.Questions
		var example *models.Question
		if p.ExampleFirst && i == 0 && len(questions) > 0 {
			first := questions[0]
			example = &first
			questions = questions[1:]
		}

		section := sectionOf(set, task, itemsOf(questions, task))
		section.Example = example
		paper.Sections = append(paper.Sections, section)
	}
	return paper, nil
}

// ===== HELPERS =====

func requireProgram(b *Bank, program string) error {
	if program == "" || !models.IsKnownProgram(program) {
		return fmt.Errorf("%w: %q", ErrUnknownProgram, program)
	}
	if !b.HasGroup(program) {
		return fmt.Errorf("%w: no %s content for %s", ErrUnknownProgram, b.Module, program)
	}
	return nil
}

func sectionOf(set models.QuestionSet, key string, items []models.Item) Section {
	return Section{
		Key:   key,
		SetID: set.ID,
		Audio: set.Audio,
		Table: set.Table,
		Items: items,
	}
}

func itemsOf(questions []models.Question, section string) []models.Item {
	items := make([]models.Item, 0, len(questions))
	for _, q := range questions {
		items = append(items, models.Item{Question: q, Section: section})
	}
	return items
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func checkOrder(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("%w: order has %d entries for %d questions", ErrStaleSelection, len(order), n)
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return fmt.Errorf("%w: invalid question order", ErrStaleSelection)
		}
		seen[i] = true
	}
	return nil
}

// shuffled returns a shuffled copy; bank content is never mutated
func shuffled(in []string, rng *rand.Rand) []string {
	out := append([]string(nil), in...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
