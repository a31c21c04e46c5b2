package bingo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/caching/interfaces"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

type CardRepository struct {
	db     *sql.DB
	cache  interfaces.CardCache
	logger *logging.ChanneledLogger
}

func NewCardRepository(db *sql.DB, cache interfaces.CardCache, logger *logging.ChanneledLogger) *CardRepository {
	return &CardRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

func (r *CardRepository) FindByID(ctx context.Context, id string) (*bingo.Card, error) {
	if card, found := r.cache.GetCard(id); found {
		return card, nil
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT id, episode_id, holder_id, card_number, grid, marked_squares, patterns, status, created_at
		 FROM cards WHERE id = ?`, id)

	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NewNotFound("card %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load card %s: %w", id, err)
	}

	r.cache.SetCard(card)
	return card, nil
}

// FindActiveByEpisodeID loads every active card of an episode; this is
// the dispatcher's fan-out working set, so the per-episode ID list is
// cached and individual cards are filled from cache where possible.
func (r *CardRepository) FindActiveByEpisodeID(ctx context.Context, episodeID string) ([]*bingo.Card, error) {
	if ids, found := r.cache.GetEpisodeCardIDs(episodeID); found {
		cards := make([]*bingo.Card, 0, len(ids))
		allCached := true
		for _, id := range ids {
			card, exists := r.cache.GetCard(id)
			if !exists {
				allCached = false
				break
			}
			if card.Status == bingo.CardActive {
				cards = append(cards, card)
			}
		}
		if allCached {
			return cards, nil
		}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, episode_id, holder_id, card_number, grid, marked_squares, patterns, status, created_at
		 FROM cards WHERE episode_id = ? AND status = 'active' ORDER BY card_number`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active cards for episode %s: %w", episodeID, err)
	}
	defer rows.Close()

	var cards []*bingo.Card
	var ids []string
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		r.cache.SetCard(card)
		cards = append(cards, card)
		ids = append(ids, card.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.cache.SetEpisodeCardIDs(episodeID, ids)
	return cards, nil
}

func (r *CardRepository) FindByEpisodeAndHolder(ctx context.Context, episodeID, holderID string) (*bingo.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, episode_id, holder_id, card_number, grid, marked_squares, patterns, status, created_at
		 FROM cards WHERE episode_id = ? AND holder_id = ?`, episodeID, holderID)

	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load card for episode %s holder %s: %w", episodeID, holderID, err)
	}

	r.cache.SetCard(card)
	return card, nil
}

func (r *CardRepository) Store(ctx context.Context, card *bingo.Card) error {
	gridJSON, patternsJSON, err := marshalCardState(card)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO cards (id, episode_id, holder_id, card_number, grid, marked_squares, patterns, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.EpisodeID, card.HolderID, card.CardNumber, gridJSON,
		card.MarkedSquares, patternsJSON, string(card.Status), formatTime(card.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}

	r.cache.SetCard(card)
	r.cache.AddEpisodeCardID(card.EpisodeID, card.ID)
	return nil
}

// UpdateState persists the mutable card state: grid marks, derived
// counts, patterns, and status.
func (r *CardRepository) UpdateState(ctx context.Context, card *bingo.Card) error {
	gridJSON, patternsJSON, err := marshalCardState(card)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE cards SET grid = ?, marked_squares = ?, patterns = ?, status = ? WHERE id = ?`,
		gridJSON, card.MarkedSquares, patternsJSON, string(card.Status), card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NewNotFound("card %s", card.ID)
	}

	r.cache.SetCard(card)
	return nil
}

func marshalCardState(card *bingo.Card) (string, string, error) {
	gridJSON, err := json.Marshal(card.Grid)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal grid for card %s: %w", card.ID, err)
	}
	patternsJSON, err := json.Marshal(card.Patterns)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal patterns for card %s: %w", card.ID, err)
	}
	return string(gridJSON), string(patternsJSON), nil
}

func scanCard(row rowScanner) (*bingo.Card, error) {
	var (
		card         bingo.Card
		gridJSON     string
		patternsJSON string
		status       string
		createdAt    string
	)

	err := row.Scan(&card.ID, &card.EpisodeID, &card.HolderID, &card.CardNumber,
		&gridJSON, &card.MarkedSquares, &patternsJSON, &status, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(gridJSON), &card.Grid); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grid for card %s: %w", card.ID, err)
	}
	if err := json.Unmarshal([]byte(patternsJSON), &card.Patterns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patterns for card %s: %w", card.ID, err)
	}
	card.Status = bingo.CardStatus(status)
	card.CreatedAt = parseTime(createdAt)
	return &card, nil
}
