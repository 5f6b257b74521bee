package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"space-quiz-bot/internal/config"
	"space-quiz-bot/internal/domain"
	pgstore "space-quiz-bot/internal/infra/postgres"
)

// NewSeedCmd loads the starter astronomy catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the question catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := pgstore.NewQuestionStore(pool)
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Printf("catalog already has %d questions, skipping seed", count)
		return nil
	}

	for _, q := range seedQuestions() {
		if _, err := store.Add(ctx, q); err != nil {
			return fmt.Errorf("seed question %q: %w", q.Prompt, err)
		}
	}
	log.Printf("seeded %d questions", len(seedQuestions()))
	return nil
}

func seedQuestions() []domain.Question {
	return []domain.Question{
		{
			Prompt:        "Which planet of the Solar System is the largest?",
			Options:       [4]string{"Mars", "Venus", "Jupiter", "Saturn"},
			CorrectOption: 3,
			MediaPath:     "./imgs/question1.jpg",
		},
		{
			Prompt:        "What is the name of the galaxy containing the Solar System?",
			Options:       [4]string{"Andromeda", "Milky Way", "Sombrero", "Cigar"},
			CorrectOption: 2,
			MediaPath:     "./imgs/question2.jpg",
		},
		{
			Prompt:        "How many moons does Mars have?",
			Options:       [4]string{"0", "1", "2", "3"},
			CorrectOption: 3,
			Explanation:   "Phobos and Deimos.",
			MediaPath:     "./imgs/question3.jpg",
		},
		{
			Prompt:        "Which object is nicknamed the 'cosmic vacuum cleaner'?",
			Options:       [4]string{"Comet", "Black hole", "Neutron star", "Quasar"},
			CorrectOption: 2,
			MediaPath:     "./imgs/question4.jpg",
		},
		{
			Prompt:        "How many minutes did the first human spaceflight last?",
			Options:       [4]string{"89", "108", "12", "202"},
			CorrectOption: 2,
			Hint:          "Gagarin's single orbit.",
			MediaPath:     "./imgs/question5.jpg",
		},
		{
			Prompt:        "Which gas gives Neptune its blue color?",
			Options:       [4]string{"Oxygen", "Methane", "Helium", "Carbon dioxide"},
			CorrectOption: 2,
			MediaPath:     "./imgs/question6.jpg",
		},
		{
			Prompt:        "What is the largest volcano in the Solar System?",
			Options:       [4]string{"Everest", "Olympus Mons", "Etna", "Krakatoa"},
			CorrectOption: 2,
			Hint:          "It is on Mars.",
			MediaPath:     "./imgs/question7.jpg",
		},
		{
			Prompt:        "Which star is the brightest in the night sky?",
			Options:       [4]string{"Polaris", "Sirius", "Vega", "Aldebaran"},
			CorrectOption: 2,
			MediaPath:     "./imgs/question8.jpg",
		},
		{
			Prompt:        "Which spacecraft was the first to leave the Solar System?",
			Options:       [4]string{"Voyager 1", "Sputnik 1", "Cassini", "Hubble"},
			CorrectOption: 1,
			MediaPath:     "./imgs/question9.jpg",
		},
		{
			Prompt:        "Which element dominates the composition of the Sun?",
			Options:       [4]string{"Oxygen", "Carbon", "Helium", "Hydrogen"},
			CorrectOption: 4,
			Explanation:   "Hydrogen makes up roughly 73% of the Sun's mass.",
			MediaPath:     "./imgs/question10.jpg",
		},
		{
			Prompt:        "Which planet rotates 'lying on its side'?",
			Options:       [4]string{"Uranus", "Neptune", "Pluto", "Venus"},
			CorrectOption: 1,
			MediaPath:     "./imgs/question11.jpg",
		},
		{
			Prompt:        "Which telescope discovered exoplanets in the habitable zone?",
			Options:       [4]string{"Hubble", "James Webb", "Kepler", "Spitzer"},
			CorrectOption: 3,
			MediaPath:     "./imgs/question12.jpg",
		},
		{
			Prompt:        "What distance is measured in parsecs?",
			Options:       [4]string{"Speed of light", "Stellar mass", "Cosmic distances", "Brightness"},
			CorrectOption: 3,
			MediaPath:     "./imgs/question13.jpg",
		},
		{
			Prompt:        "What share of the Universe is visible matter?",
			Options:       [4]string{"5%", "27%", "68%", "95%"},
			CorrectOption: 1,
			Explanation:   "The rest is dark matter and dark energy.",
			MediaPath:     "./imgs/question14.jpg",
		},
		{
			Prompt:        "Which object emits repeating radio signals?",
			Options:       [4]string{"Pulsar", "Quasar", "Meteorite", "Comet nucleus"},
			CorrectOption: 1,
			MediaPath:     "./imgs/question15.jpg",
		},
	}
}
