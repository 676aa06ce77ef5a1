package alarmhub

import (
	"context"
	"strconv"
)

const (
	minBatchSize = 5
	maxBatchSize = 100
)

// Page configures a paginated listing fetch. BatchSize is clamped to
// [5,100]; Query carries extra filter pairs appended to every batch
// request.
type Page struct {
	StartIndex int
	BatchSize  int
	Query      []string
}

// FetchPages repeatedly requests batches until the listing is exhausted and
// returns the concatenation in batch order. The server-reported totalCount
// bounds the loop; when it is absent and a full batch was returned, the
// fetcher assumes at least one more item exists (total = index so far + 1)
// so it does not terminate prematurely. This heuristic can under-count by
// one batch when the true total is an exact multiple of the batch size; it
// is kept because it is observable behavior of the portal protocol.
func FetchPages[T any, P entityPtr[T]](ctx context.Context, s *Session, page Page) ([]*T, error) {
	batchSize := page.BatchSize
	if batchSize < minBatchSize {
		batchSize = minBatchSize
	}
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}
	start := page.StartIndex
	if start < 0 {
		start = 0
	}

	var out []*T
	for {
		query := append([]string{
			"batchSize", strconv.Itoa(batchSize),
			"startIndex", strconv.Itoa(start),
		}, page.Query...)

		batch, meta, err := GetManyMeta[T, P](ctx, s, nil, Request{Query: query})
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		start += len(batch)

		total := meta.Int64("totalCount")
		if total == 0 && len(batch) == batchSize {
			total = int64(start) + 1
		}
		if int64(start) >= total || len(batch) < batchSize {
			return out, nil
		}
	}
}
