package catalog

import "testing"

func TestStore_NeverNil(t *testing.T) {
	s := NewStore()
	if s.Current() == nil {
		t.Fatal("fresh store returned nil catalog")
	}
	s.Replace(nil)
	if s.Current() == nil {
		t.Fatal("replacing with nil must install an empty catalog")
	}
}

func TestStore_ReplaceSwapsSnapshot(t *testing.T) {
	s := NewStore()
	old := s.Current()

	c := New()
	c.Ensure("ETH").AddNetwork("ethereum")
	s.Replace(c)

	if s.Current() != c {
		t.Fatal("current snapshot is not the replaced catalog")
	}
	if len(old.Assets) != 0 {
		t.Fatalf("old snapshot mutated by replace: %+v", old.Assets)
	}
}
