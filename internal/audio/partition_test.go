package audio

import "testing"

func TestPartitionCoversExactly(t *testing.T) {
	const rate = 48000
	total := rate * 25
	window := rate * 10

	spans := Partition(total, window)
	if len(spans) != 3 {
		t.Fatalf("expected 3 windows for 25s at 10s each, got %d", len(spans))
	}

	next := 0
	for i, span := range spans {
		if span.Index != i {
			t.Fatalf("span %d carries index %d", i, span.Index)
		}
		if span.Start != next {
			t.Fatalf("span %d starts at %d, want %d", i, span.Start, next)
		}
		if span.End <= span.Start {
			t.Fatalf("span %d is empty: %#v", i, span)
		}
		next = span.End
	}
	if next != total {
		t.Fatalf("spans cover %d samples, want %d", next, total)
	}

	last := spans[len(spans)-1]
	if got := last.End - last.Start; got != rate*5 {
		t.Fatalf("final window holds %d samples, want %d", got, rate*5)
	}
}

func TestPartitionShortInput(t *testing.T) {
	spans := Partition(100, 480000)
	if len(spans) != 1 {
		t.Fatalf("expected a single window, got %d", len(spans))
	}
	if spans[0].Start != 0 || spans[0].End != 100 {
		t.Fatalf("unexpected span %#v", spans[0])
	}
}

func TestPartitionExactMultiple(t *testing.T) {
	spans := Partition(300, 100)
	if len(spans) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(spans))
	}
	for _, span := range spans {
		if span.End-span.Start != 100 {
			t.Fatalf("window %d is %d samples, want 100", span.Index, span.End-span.Start)
		}
	}
}

func TestPartitionEmpty(t *testing.T) {
	if spans := Partition(0, 100); len(spans) != 0 {
		t.Fatalf("expected no windows for empty input, got %d", len(spans))
	}
}
