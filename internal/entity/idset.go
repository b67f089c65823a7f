package entity

// IDSet is a set of primary keys already present in the store.
type IDSet[K comparable] map[K]struct{}

func NewIDSet[K comparable](ids ...K) IDSet[K] {
	s := make(IDSet[K], len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet[K]) Has(id K) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet[K]) Add(id K) {
	s[id] = struct{}{}
}

func (s IDSet[K]) Len() int {
	return len(s)
}
