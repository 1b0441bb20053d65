package executor

import "expense_reminder/internal/domain/reminder"

// jobQueue is a min-heap of jobs ordered by FireAt, then by Seq.
// It implements container/heap.Interface.
type jobQueue []*reminder.Job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if !q[i].FireAt.Equal(q[j].FireAt) {
		return q[i].FireAt.Before(q[j].FireAt)
	}
	return q[i].Seq < q[j].Seq
}

func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *jobQueue) Push(x any) {
	*q = append(*q, x.(*reminder.Job))
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return job
}
