package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/pokedex-client/pkg/pokemon"
)

// FetchListPage fetches one page of the Pokémon index.
func (c *Client) FetchListPage(ctx context.Context, offset, limit int) (pokemon.ListPage, error) {
	if offset < 0 || limit <= 0 {
		return pokemon.ListPage{}, fmt.Errorf("invalid page window offset=%d limit=%d", offset, limit)
	}

	query := url.Values{
		"offset": []string{strconv.Itoa(offset)},
		"limit":  []string{strconv.Itoa(limit)},
	}

	var raw pokemon.RawListPage
	if err := c.getJSON(ctx, "/pokemon", query, &raw); err != nil {
		return pokemon.ListPage{}, fmt.Errorf("fetch list page offset=%d: %w", offset, err)
	}

	page, err := pokemon.ToListPage(raw)
	if err != nil {
		return pokemon.ListPage{}, fmt.Errorf("normalize list page offset=%d: %w", offset, err)
	}
	return page, nil
}

// FetchDetail fetches /pokemon/{id}.
func (c *Client) FetchDetail(ctx context.Context, id int) (pokemon.Detail, error) {
	var raw pokemon.RawDetail
	if err := c.getJSON(ctx, fmt.Sprintf("/pokemon/%d", id), nil, &raw); err != nil {
		return pokemon.Detail{}, fmt.Errorf("fetch detail %d: %w", id, err)
	}
	return pokemon.ToDetail(raw), nil
}

// FetchSpecies fetches /pokemon-species/{id}.
func (c *Client) FetchSpecies(ctx context.Context, id int) (pokemon.Species, error) {
	var raw pokemon.RawSpecies
	if err := c.getJSON(ctx, fmt.Sprintf("/pokemon-species/%d", id), nil, &raw); err != nil {
		return pokemon.Species{}, fmt.Errorf("fetch species %d: %w", id, err)
	}
	return pokemon.ToSpecies(raw), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, target any) error {
	body, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &NetworkFailure{
			Endpoint:   endpoint,
			StatusCode: 200,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response",
			Err:        err,
		}
	}
	return nil
}
