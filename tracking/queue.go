package tracking

import "github.com/google/uuid"

// candidate is the best existing track found for a detection
type candidate struct {
	detection int
	track     uuid.UUID
	hasTrack  bool
	score     float64
}

// candidateQueue implements heap.Interface. Distances pop smallest first, similarities (maxFirst) largest first
type candidateQueue struct {
	items    []*candidate
	maxFirst bool
}

func (q *candidateQueue) Len() int { return len(q.items) }

func (q *candidateQueue) Less(i, j int) bool {
	if q.items[i].score == q.items[j].score {
		return q.items[i].detection < q.items[j].detection
	}
	if q.maxFirst {
		return q.items[i].score > q.items[j].score
	}
	return q.items[i].score < q.items[j].score
}

func (q *candidateQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *candidateQueue) Push(x any) {
	q.items = append(q.items, x.(*candidate))
}

func (q *candidateQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	return item
}
