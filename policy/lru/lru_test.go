package lru

import (
	"testing"

	"github.com/IvanBrykalov/predcache/policy"
)

// --- test doubles ---

type stubNode[K comparable, V any] struct {
	key K
	val V
}

func (n *stubNode[K, V]) Key() K    { return n.key }
func (n *stubNode[K, V]) Value() *V { return &n.val }

// hookLog records every hook invocation in order, so tests can assert
// both which hooks fired and that nothing else did.
type hookLog[K comparable, V any] struct {
	calls []string
	nodes []policy.Node[K, V]
}

func (h *hookLog[K, V]) record(op string, n policy.Node[K, V]) {
	h.calls = append(h.calls, op)
	h.nodes = append(h.nodes, n)
}

func (h *hookLog[K, V]) MoveToFront(n policy.Node[K, V]) { h.record("move", n) }
func (h *hookLog[K, V]) PushFront(n policy.Node[K, V])   { h.record("push", n) }
func (h *hookLog[K, V]) Remove(n policy.Node[K, V])      { h.record("remove", n) }
func (h *hookLog[K, V]) Back() policy.Node[K, V]         { return nil }
func (h *hookLog[K, V]) Len() int                        { return len(h.calls) }

func (h *hookLog[K, V]) only(t *testing.T, want string, n policy.Node[K, V]) {
	t.Helper()
	if len(h.calls) != 1 || h.calls[0] != want {
		t.Fatalf("want exactly one %q hook call, got %v", want, h.calls)
	}
	if h.nodes[0] != n {
		t.Fatalf("hook received the wrong node")
	}
}

// --- tests ---

// Each lifecycle event maps to exactly one list operation: add pushes to
// MRU without proposing an eviction, get and update both promote.
func TestLRU_HookMapping(t *testing.T) {
	t.Parallel()

	n := &stubNode[string, int]{key: "k", val: 1}

	t.Run("add", func(t *testing.T) {
		h := &hookLog[string, int]{}
		p := New[string, int]().New(h)
		if ev := p.OnAdd(n); ev != nil {
			t.Fatalf("OnAdd must not propose an eviction, got %v", ev)
		}
		h.only(t, "push", n)
	})
	t.Run("get", func(t *testing.T) {
		h := &hookLog[string, int]{}
		p := New[string, int]().New(h)
		p.OnGet(n)
		h.only(t, "move", n)
	})
	t.Run("update", func(t *testing.T) {
		h := &hookLog[string, int]{}
		p := New[string, int]().New(h)
		p.OnUpdate(n)
		h.only(t, "move", n)
	})
}

// OnRemove must touch nothing: LRU holds no policy-private state, so the
// shard's own unlink is the whole story.
func TestLRU_OnRemoveTouchesNothing(t *testing.T) {
	t.Parallel()

	h := &hookLog[string, int]{}
	p := New[string, int]().New(h)

	p.OnRemove(&stubNode[string, int]{key: "k", val: 1})
	if len(h.calls) != 0 {
		t.Fatalf("OnRemove must not call hooks, got %v", h.calls)
	}
}

// Plain LRU must NOT implement admission filtering: the shard's insert
// path only gates policies that satisfy policy.Admission, and LRU is the
// always-admit baseline.
func TestLRU_DoesNotFilterAdmission(t *testing.T) {
	t.Parallel()

	p := New[string, int]().New(&hookLog[string, int]{})
	if _, ok := p.(policy.Admission[string]); ok {
		t.Fatal("LRU must not satisfy policy.Admission")
	}
}

// The factory may be shared across shards; each instance is bound to its
// own shard's hooks and never writes to another's.
func TestLRU_InstancesBindTheirOwnHooks(t *testing.T) {
	t.Parallel()

	f := New[string, int]()
	h1 := &hookLog[string, int]{}
	h2 := &hookLog[string, int]{}
	p1 := f.New(h1)
	p2 := f.New(h2)

	n := &stubNode[string, int]{key: "k", val: 1}
	p1.OnAdd(n)
	p2.OnGet(n)

	if len(h1.calls) != 1 || h1.calls[0] != "push" {
		t.Fatalf("shard 1 hooks: got %v", h1.calls)
	}
	if len(h2.calls) != 1 || h2.calls[0] != "move" {
		t.Fatalf("shard 2 hooks: got %v", h2.calls)
	}
}
