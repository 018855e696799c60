package runtime

import (
	"context"

	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/request"
)

// Search looks up destination pictures for query. The latest search wins: an
// older one still in flight is cancelled and its result ignored.
func (e *Engine) Search(query string) {
	e.cancel(&e.search)
	e.emit(domain.Intent{Type: domain.IntentImages, Payload: domain.ImagePanel{
		Query:  query,
		Status: domain.ImagesSearching,
	}})

	req := domain.SearchRequest{Query: query, Destination: query}
	var h *request.Handle
	h = e.requests.Start(domain.RequestSearch, func(ctx context.Context) (any, error) {
		return e.backend.SearchImages(ctx, req)
	}, func(res request.Result) {
		if e.search != h {
			return
		}
		e.search = nil
		e.onSearched(query, res)
	})
	e.search = h
}

func (e *Engine) onSearched(query string, res request.Result) {
	panel := domain.ImagePanel{Query: query}
	switch {
	case res.Outcome == domain.OutcomeOK:
		resp, _ := res.Value.(*domain.SearchResponse)
		if resp != nil && len(resp.Images) > 0 {
			panel.Status = domain.ImagesReady
			panel.Images = resp.Images
		} else {
			panel.Status = domain.ImagesEmpty
		}
	case res.TimedOut:
		panel.Status = domain.ImagesFailed
		e.notes.Error(MsgSearchTimedOut)
	default:
		panel.Status = domain.ImagesFailed
		e.logger.Warn("Image search failed", "query", query, "err", res.Err)
		e.notes.Error(MsgSearchFailed)
	}
	e.emit(domain.Intent{Type: domain.IntentImages, Payload: panel})
}

func (e *Engine) clearImages() {
	e.cancel(&e.search)
	e.emit(domain.Intent{Type: domain.IntentImages, Payload: domain.ImagePanel{}})
}
