package rofl

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/sync/errgroup"
)

// SegmentResult pairs a segment with the outcome of its decode. A failed
// segment carries its error here instead of stopping its siblings.
type SegmentResult struct {
	Segment Segment
	Err     error
}

// DecodeSegments decodes every segment of the payload across a worker
// pool. Segments are independent of each other, so decryption and
// decompression fan out; results keep on-disk table order. An error
// decoding one segment only marks that segment's result. The returned
// error covers structural failures that precede segment decoding (bad
// payload header, short segment table, undecryptable key).
//
// workers <= 0 selects one worker per CPU.
func (r *Replay) DecodeSegments(ctx context.Context, workers int) ([]SegmentResult, error) {
	payload, err := r.payloadRegion()
	if err != nil {
		return nil, err
	}
	head, err := r.Payload()
	if err != nil {
		return nil, err
	}
	scanner, err := NewSegmentScanner(payload, head, false)
	if err != nil {
		return nil, err
	}
	var segments []Segment
	for scanner.Next() {
		segments = append(segments, scanner.Segment())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	key, err := DeriveSegmentKey(head.MatchID, head.EncryptionKey)
	if err != nil {
		return nil, err
	}
	cipher, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("segment cipher key: %w", err)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]SegmentResult, len(segments))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = SegmentResult{Segment: seg, Err: err}
				return nil
			}
			data, err := decodeSegmentData(cipher, seg.Raw)
			if err != nil {
				results[i] = SegmentResult{Segment: seg, Err: fmt.Errorf("%s %d: %w", seg.Kind, seg.ID, err)}
				return nil
			}
			seg.Data = data
			results[i] = SegmentResult{Segment: seg}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
