package symbol

import (
	"errors"
	"testing"

	"github.com/tinyrange/kette/internal/builtin"
)

func TestInternIsIdempotent(t *testing.T) {
	table := NewTableWithBuiltins()
	before := table.Len()

	first := table.Intern("+", "+", Builtin(builtin.OpAdd))
	second := table.Intern("+", "+", Builtin(builtin.OpAdd))
	if first != second {
		t.Fatalf("Intern(+) returned %d then %d", first, second)
	}
	if table.Len() != before {
		t.Fatalf("Len()=%d after re-interning a builtin, want %d", table.Len(), before)
	}

	a := table.Intern("42", "42", Number(builtin.Uint(42)))
	b := table.Intern("42", "42", Number(builtin.Uint(42)))
	if a != b {
		t.Fatalf("Intern(42) returned %d then %d", a, b)
	}
	if table.Len() != before+1 {
		t.Fatalf("Len()=%d, want %d", table.Len(), before+1)
	}
}

func TestInternKeepsOriginalDefinition(t *testing.T) {
	table := NewTable()
	id := table.Intern("x", "x", Builtin(builtin.OpDrop))
	table.Intern("x", "x", Builtin(builtin.OpAdd))

	sym, err := table.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sym.Builtin.Op != builtin.OpDrop {
		t.Fatalf("definition overwritten: got %v", sym.Builtin.Op)
	}
}

func TestIDsAreDense(t *testing.T) {
	table := NewTable()
	for i, key := range []string{"a", "b", "c"} {
		if id := table.Intern(key, key, ReaderMacro()); int(id) != i {
			t.Fatalf("Intern(%q)=%d, want %d", key, id, i)
		}
	}
}

func TestBuiltinsInterned(t *testing.T) {
	table := NewTableWithBuiltins()
	for _, spelling := range []string{"+", "-", "*", "/", ".", "drop"} {
		id, ok := table.LookupID(spelling)
		if !ok {
			t.Fatalf("builtin %q not interned", spelling)
		}
		sym, err := table.Get(id)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", id, err)
		}
		if sym.Kind != KindBuiltin || sym.Identifier != spelling {
			t.Fatalf("unexpected symbol %v", sym)
		}
	}
}

func TestGetUnknown(t *testing.T) {
	table := NewTable()
	for _, id := range []ID{-1, 0, 7} {
		if _, err := table.Get(id); !errors.Is(err, ErrUnknownSymbol) {
			t.Fatalf("Get(%d) err=%v, want ErrUnknownSymbol", id, err)
		}
	}
	if _, ok := table.LookupID("missing"); ok {
		t.Fatalf("LookupID(missing) succeeded")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	table := NewTableWithBuiltins()
	snap := table.Snapshot()
	snap[0].Identifier = "changed"
	sym, _ := table.Get(0)
	if sym.Identifier == "changed" {
		t.Fatalf("snapshot aliases table storage")
	}
}
