package service

import (
	"context"
	"sort"

	"chronicle/internal/models"
	"chronicle/internal/repository"
)

type SearchService struct {
	Store repository.Repository
}

type Facet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Facets struct {
	Categories []Facet `json:"categories"`
	Sources    []Facet `json:"sources"`
	Tags       []Facet `json:"tags"`
	Services   []Facet `json:"services"`
	Nodes      []Facet `json:"nodes"`
}

type SearchResult struct {
	Events     []models.Event `json:"events"`
	TotalCount int64          `json:"totalCount"`
	Facets     Facets         `json:"facets"`
}

const maxTagFacets = 50

// Search filters events and reports facets computed over the whole table,
// so the available filters do not shrink as they are applied.
func (s *SearchService) Search(ctx context.Context, params repository.ListEventsParams) (SearchResult, error) {
	if params.Limit == 0 {
		params.Limit = 50
	}
	events, err := s.Store.ListEvents(ctx, params)
	if err != nil {
		return SearchResult{}, err
	}
	total, err := s.Store.CountEvents(ctx, params)
	if err != nil {
		return SearchResult{}, err
	}
	all, err := s.Store.ListEvents(ctx, repository.ListEventsParams{Limit: -1})
	if err != nil {
		return SearchResult{}, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return SearchResult{Events: events, TotalCount: total, Facets: BuildFacets(all)}, nil
}

func BuildFacets(events []models.Event) Facets {
	categories := counter{}
	sources := counter{}
	tags := counter{}
	services := counter{}
	nodes := counter{}
	for _, e := range events {
		categories.add(e.Category)
		sources.add(e.Source)
		nodes.add(e.Node())
		for _, t := range e.Tags {
			tags.add(t)
		}
		for _, svc := range e.Services {
			services.add(svc)
		}
	}
	return Facets{
		Categories: categories.sorted(0),
		Sources:    sources.sorted(0),
		Tags:       tags.sorted(maxTagFacets),
		Services:   services.sorted(0),
		Nodes:      nodes.sorted(0),
	}
}

type counter map[string]int

func (c counter) add(key string) {
	if key == "" {
		return
	}
	c[key]++
}

// sorted orders by count descending then name, truncated to limit when > 0.
func (c counter) sorted(limit int) []Facet {
	out := make([]Facet, 0, len(c))
	for name, count := range c {
		out = append(out, Facet{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
