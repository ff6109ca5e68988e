package sharedstrings

// InMemoryStrategy keeps every string in a map. It suits tables that fit in memory.
type InMemoryStrategy struct {
	strings map[int]string
	closed  bool
}

// NewInMemoryStrategy creates an empty cache sized for sizeHint strings.
func NewInMemoryStrategy(sizeHint int) *InMemoryStrategy {
	return &InMemoryStrategy{strings: make(map[int]string, max(sizeHint, 0))}
}

func (m *InMemoryStrategy) AddStringForIndex(value string, index int) error {
	if m.closed {
		return ErrCacheClosed
	}
	m.strings[index] = value
	return nil
}

func (m *InMemoryStrategy) GetStringAtIndex(index int) (string, bool, error) {
	v, ok := m.strings[index]
	return v, ok, nil
}

// Len returns the number of stored strings.
func (m *InMemoryStrategy) Len() int { return len(m.strings) }

func (m *InMemoryStrategy) CloseCache() error {
	m.closed = true
	return nil
}

func (m *InMemoryStrategy) ClearCache() error {
	m.strings = make(map[int]string)
	return nil
}
