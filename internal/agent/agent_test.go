package agent

import "testing"

func TestPool_AddAndGet(t *testing.T) {
	pool := NewPool()
	pool.Add(Profile{ID: "a-1", Name: "translator", Keywords: []string{"translate", "english"}})

	got, ok := pool.Get("a-1")
	if !ok {
		t.Fatal("Get() should find a-1")
	}
	if got.Name != "translator" {
		t.Errorf("Name = %q, want %q", got.Name, "translator")
	}

	if _, ok := pool.Get("missing"); ok {
		t.Error("Get() should not find unknown IDs")
	}
}

func TestPool_AllPreservesInsertionOrder(t *testing.T) {
	pool := NewPool()
	pool.Add(Profile{ID: "c"})
	pool.Add(Profile{ID: "a"})
	pool.Add(Profile{ID: "b"})

	all := pool.All()
	if len(all) != 3 {
		t.Fatalf("All() length = %d, want 3", len(all))
	}
	want := []string{"c", "a", "b"}
	for i, p := range all {
		if p.ID != want[i] {
			t.Errorf("All()[%d].ID = %q, want %q", i, p.ID, want[i])
		}
	}
}

func TestPool_ReplaceKeepsPosition(t *testing.T) {
	pool := NewPool()
	pool.Add(Profile{ID: "a", Name: "old"})
	pool.Add(Profile{ID: "b"})
	pool.Add(Profile{ID: "a", Name: "new"})

	if pool.Size() != 2 {
		t.Errorf("Size() = %d, want 2", pool.Size())
	}

	all := pool.All()
	if all[0].ID != "a" || all[0].Name != "new" {
		t.Errorf("All()[0] = %+v, want updated profile a in first position", all[0])
	}
}

func TestPool_IDsSorted(t *testing.T) {
	pool := NewPool()
	pool.Add(Profile{ID: "z"})
	pool.Add(Profile{ID: "a"})
	pool.Add(Profile{ID: "m"})

	ids := pool.IDs()
	want := []string{"a", "m", "z"}
	for i, id := range ids {
		if id != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, id, want[i])
		}
	}
}
