package kommo

import (
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

// MapPipeline splits a Kommo pipeline into the pipeline row and its status rows.
func MapPipeline(raw Pipeline, now time.Time) (*entity.Pipeline, []*entity.PipelineStatus) {
	pipeline := &entity.Pipeline{
		ID:           raw.ID,
		Name:         raw.Name,
		IsMain:       raw.IsMain,
		SortOrder:    raw.Sort,
		LastSyncedAt: now,
	}

	statuses := make([]*entity.PipelineStatus, 0, len(raw.Embedded.Statuses))
	for _, s := range raw.Embedded.Statuses {
		status := &entity.PipelineStatus{
			ID:           s.ID,
			PipelineID:   raw.ID,
			Name:         s.Name,
			SortOrder:    s.Sort,
			LastSyncedAt: now,
		}
		if s.Color != "" {
			color := s.Color
			status.Color = &color
		}
		statuses = append(statuses, status)
	}

	return pipeline, statuses
}

// UniqueByID drops repeated ids from a batch, keeping the last occurrence in
// first-seen order. Postgres rejects an upsert touching the same row twice.
func UniqueByID[T any, K comparable](items []T, id func(T) K) []T {
	index := make(map[K]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := id(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}
