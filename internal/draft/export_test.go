package draft

// SeqLen is the number of rows holding a sequence number
func (s *State) SeqLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seq)
}
