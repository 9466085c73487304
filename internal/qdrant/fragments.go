package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/qaforge/qa-forge/internal/corpus"
	"github.com/qaforge/qa-forge/internal/pkg/errors"
)

// fragment payload keys written by upstream indexers.
const (
	payloadContent = "content"
	payloadSource  = "source"
)

const scrollBatchSize = 100

// scrollPage fetches one page of points and the cursor for the next
// page. A nil cursor means the scan is complete.
type scrollPage func(offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)

// ScrollFragments pages through a collection and returns every point as
// a corpus fragment. Points without content are skipped.
func (c *Client) ScrollFragments(ctx context.Context, collection string) ([]corpus.Fragment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, errors.New(errors.CodeUnavailable, "client is closed")
	}

	return collectFragments(func(offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
		ctxPage, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		return c.client.ScrollAndOffset(ctxPage, &qdrant.ScrollPoints{
			CollectionName: collectionName(collection),
			Limit:          qdrant.PtrOf(uint32(scrollBatchSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			Offset:         offset,
		})
	})
}

// collectFragments drains a paged scroll. Paging follows the server's
// returned next-page cursor, so no point is visited twice even when a
// page fills exactly.
func collectFragments(page scrollPage) ([]corpus.Fragment, error) {
	var fragments []corpus.Fragment
	var offset *qdrant.PointId

	for {
		points, next, err := page(offset)
		if err != nil {
			return nil, errors.QdrantError("scrolling fragments", err)
		}

		for _, p := range points {
			fragment := fragmentFromPoint(p)
			if fragment.IsEmpty() {
				continue
			}
			fragments = append(fragments, fragment)
		}

		if next == nil {
			break
		}
		offset = next
	}

	return fragments, nil
}

// fragmentFromPoint maps a retrieved point onto a fragment. Content and
// source payload fields are lifted out; every other string field lands
// in metadata.
func fragmentFromPoint(p *qdrant.RetrievedPoint) corpus.Fragment {
	fragment := corpus.Fragment{
		ID:      pointID(p.Id),
		Content: getStringValue(p.Payload, payloadContent),
		Source:  getStringValue(p.Payload, payloadSource),
	}

	for key, value := range p.Payload {
		if key == payloadContent || key == payloadSource {
			continue
		}
		sv, ok := value.Kind.(*qdrant.Value_StringValue)
		if !ok {
			continue
		}
		if fragment.Metadata == nil {
			fragment.Metadata = make(map[string]string)
		}
		fragment.Metadata[key] = sv.StringValue
	}

	return fragment
}

func pointID(id *qdrant.PointId) string {
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}

func getStringValue(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}
