package wire

import "testing"

func TestNameSegments(t *testing.T) {
	n := MustParseName("test.com")
	segs := n.Segments()
	if len(segs) != 2 || segs[0] != "test" || segs[1] != "com" {
		t.Fatalf("unexpected segments: %v", segs)
	}
}

func TestNamePreservesCasing(t *testing.T) {
	n := MustParseName("WWW.Example.COM")
	if n.String() != "WWW.Example.COM" {
		t.Fatalf("expected original casing preserved, got %q", n.String())
	}
	other := MustParseName("www.example.com")
	if !n.Equal(other) {
		t.Fatalf("expected case-insensitive equality")
	}
}

func TestNameContainsDoubleStar(t *testing.T) {
	container := MustParseName("**.test.com")
	name := MustParseName("test.com")
	if !container.Contains(name) {
		t.Fatalf("** pattern should match the zone apex itself")
	}
	west := MustParseName("west.test.com")
	if !container.Contains(west) {
		t.Fatalf("** pattern should match labels beneath the apex")
	}
}

func TestNameContainsStarPlus(t *testing.T) {
	container := MustParseName("*+.test.com")
	name := MustParseName("test.com")
	if container.Contains(name) {
		t.Fatalf("*+ pattern must not match the apex itself")
	}
	west := MustParseName("west.test.com")
	if !container.Contains(west) {
		t.Fatalf("*+ pattern should match one or more labels beneath the apex")
	}
}

func TestNameContainsSingleStar(t *testing.T) {
	container := MustParseName("west.*.com")
	west := MustParseName("west.test.com")
	if !container.Contains(west) {
		t.Fatalf("* pattern should match exactly one label at its position")
	}
	name := MustParseName("test.com")
	if container.Contains(name) {
		t.Fatalf("* pattern must require the same number of labels")
	}
}

func TestNameEndsWith(t *testing.T) {
	name := MustParseName("test.com")
	west := MustParseName("west.test.com")
	if !west.EndsWith(name) {
		t.Fatalf("west.test.com should end with test.com")
	}
	if name.EndsWith(west) {
		t.Fatalf("test.com should not end with west.test.com")
	}
}

func TestNameRootIsEmpty(t *testing.T) {
	root := MustParseName("")
	if !root.IsRoot() || root.NumLabels() != 0 {
		t.Fatalf("expected root name to have zero labels")
	}
	withDot := MustParseName(".")
	if !withDot.IsRoot() {
		t.Fatalf("trailing-dot-only name should also be root")
	}
}

func TestNameLabelTooLong(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := ParseName(string(long) + ".com"); err == nil {
		t.Fatalf("expected error for over-long label")
	}
}
