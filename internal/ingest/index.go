package ingest

// indexAssigner hands out instance indices. Parser indices are kept only on a
// fresh run; in merge mode, and for negative or repeated indices, the counter
// advances past offset.
type indexAssigner struct {
	merge bool
	next  int
	used  map[int]struct{}
}

func newIndexAssigner(offset int, merge bool) *indexAssigner {
	if !merge && offset < 0 {
		offset = 0
	}
	return &indexAssigner{merge: merge, next: offset, used: make(map[int]struct{})}
}

func (a *indexAssigner) assign(parserIndex int) int {
	if !a.merge && parserIndex >= 0 {
		if _, taken := a.used[parserIndex]; !taken {
			a.used[parserIndex] = struct{}{}
			if parserIndex > a.next {
				a.next = parserIndex
			}
			return parserIndex
		}
	}
	for {
		a.next++
		if _, taken := a.used[a.next]; !taken {
			break
		}
	}
	a.used[a.next] = struct{}{}
	return a.next
}
