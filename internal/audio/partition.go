package audio

// Span identifies one contiguous window of samples, [Start,End).
type Span struct {
	Index int
	Start int
	End   int
}

// Len returns the number of samples in the span.
func (s Span) Len() int { return s.End - s.Start }

// Partition splits [0,total) into windows of size windowSize. The spans cover
// every sample exactly once, in order, with the final span possibly shorter
// than windowSize. total == 0 yields no spans; windowSize must be positive.
func Partition(total, windowSize int) []Span {
	if total <= 0 || windowSize <= 0 {
		return nil
	}
	count := (total + windowSize - 1) / windowSize
	spans := make([]Span, 0, count)
	for i := 0; i < count; i++ {
		start := i * windowSize
		end := start + windowSize
		if end > total {
			end = total
		}
		spans = append(spans, Span{Index: i, Start: start, End: end})
	}
	return spans
}
