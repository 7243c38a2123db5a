package scoreload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"github.com/okian/juryboard/internal/adapters/repository"
	"github.com/okian/juryboard/pkg/logger"
)

// Every unscoredEvery-th participant gets no sheets, so zero totals are ranked too.
const unscoredEvery = 7

var (
	lastNames  = []string{"Иванова", "Петров", "Смирнова", "Ёлкин", "Егоров", "Абрамова", "Жуков", "Яковлева", "Соколов", "Орлова", "Ежов", "Белов"}
	firstNames = []string{"Анна", "Борис", "Вера", "Глеб", "Дарья", "Ёж", "Илья", "Катя", "Лев", "Мария"}
)

// sheet mirrors the POST /scores request body.
type sheet struct {
	SubmissionID  string  `json:"submission_id"`
	JuryID        int64   `json:"jury_id"`
	ParticipantID int64   `json:"participant_id"`
	Organization  float64 `json:"organization"`
	Content       float64 `json:"content"`
	Visuals       float64 `json:"visuals"`
	Mechanics     float64 `json:"mechanics"`
	Delivery      float64 `json:"delivery"`
}

func (s sheet) total() float64 {
	return s.Organization + s.Content + s.Visuals + s.Mechanics + s.Delivery
}

type participant struct {
	id      int64
	section int64
}

// plan is the seeded conference plus the sheets to submit and the totals
// they must produce.
type plan struct {
	sections     []int64
	participants []participant
	// jury id -> sections it judges
	juries map[int64][]int64
	sheets []sheet

	expectedTotal map[int64]float64
	expectedCount map[int64]int
	// section id -> number of sheets
	sectionSheets map[int64]int
}

// seed creates the conference through dir and plans one sheet per
// (jury, participant in a judged section).
func seed(ctx context.Context, cfg *Config, dir repository.Directory) (*plan, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	p := &plan{
		juries:        map[int64][]int64{},
		expectedTotal: map[int64]float64{},
		expectedCount: map[int64]int{},
		sectionSheets: map[int64]int{},
	}
	run := uuid.NewString()[:8]

	for s := 0; s < cfg.Sections; s++ {
		sectionID, err := dir.CreateSection(ctx, fmt.Sprintf("Load %s section %d", run, s+1))
		if err != nil {
			return nil, fmt.Errorf("create section: %w", err)
		}
		p.sections = append(p.sections, sectionID)

		for i := 0; i < cfg.Participants; i++ {
			last, first := lastNames[rng.IntN(len(lastNames))], firstNames[rng.IntN(len(firstNames))]
			personID, err := dir.CreatePerson(ctx, repository.Person{FirstName: &first, LastName: &last})
			if err != nil {
				return nil, fmt.Errorf("create person: %w", err)
			}
			topic := fmt.Sprintf("Talk %d.%d", s+1, i+1)
			pid, err := dir.CreateParticipant(ctx, personID, sectionID, &topic)
			if err != nil {
				return nil, fmt.Errorf("create participant: %w", err)
			}
			p.participants = append(p.participants, participant{id: pid, section: sectionID})
			p.expectedTotal[pid] = 0
		}

		for j := 0; j < cfg.Juries; j++ {
			juryID, err := p.addJury(ctx, dir)
			if err != nil {
				return nil, err
			}
			if err := p.assign(ctx, dir, sectionID, juryID); err != nil {
				return nil, err
			}
		}
	}

	for j := 0; j < cfg.SharedJuries; j++ {
		juryID, err := p.addJury(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, sectionID := range p.sections {
			if err := p.assign(ctx, dir, sectionID, juryID); err != nil {
				return nil, err
			}
		}
	}

	p.planSheets(rng)
	logger.Get().Info(ctx, "conference seeded",
		logger.Int("sections", len(p.sections)),
		logger.Int("participants", len(p.participants)),
		logger.Int("juries", len(p.juries)),
		logger.Int("sheets", len(p.sheets)),
	)
	return p, nil
}

func (p *plan) addJury(ctx context.Context, dir repository.Directory) (int64, error) {
	juryID, err := dir.CreateJury(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create jury: %w", err)
	}
	p.juries[juryID] = nil
	return juryID, nil
}

func (p *plan) assign(ctx context.Context, dir repository.Directory, sectionID, juryID int64) error {
	if err := dir.AssignJury(ctx, sectionID, juryID); err != nil {
		return fmt.Errorf("assign jury %d: %w", juryID, err)
	}
	p.juries[juryID] = append(p.juries[juryID], sectionID)
	return nil
}

// planSheets draws criteria in half-point steps, which keeps sums exact and
// makes ties common.
func (p *plan) planSheets(rng *rand.Rand) {
	judges := map[int64][]int64{}
	for juryID, sections := range p.juries {
		for _, s := range sections {
			judges[s] = append(judges[s], juryID)
		}
	}
	for _, ids := range judges {
		slices.Sort(ids)
	}
	criterion := func() float64 { return float64(rng.IntN(21)) / 2 }

	for i, part := range p.participants {
		if i%unscoredEvery == unscoredEvery-1 {
			continue
		}
		for _, juryID := range judges[part.section] {
			sh := sheet{
				SubmissionID:  uuid.NewString(),
				JuryID:        juryID,
				ParticipantID: part.id,
				Organization:  criterion(),
				Content:       criterion(),
				Visuals:       criterion(),
				Mechanics:     criterion(),
				Delivery:      criterion(),
			}
			p.sheets = append(p.sheets, sh)
			p.expectedTotal[part.id] += sh.total()
			p.expectedCount[part.id]++
			p.sectionSheets[part.section]++
		}
	}
	rng.Shuffle(len(p.sheets), func(i, j int) { p.sheets[i], p.sheets[j] = p.sheets[j], p.sheets[i] })
}
