package dbutil

import (
	"fmt"
	"testing"
)

func ExampleMySQLVarArgs() {
	args := MySQLVarArgs()
	args.Append("name", "joe")
	args.Append("age", 62)
	fmt.Println(args.ColumnsForUpdate())
	fmt.Printf("%#v\n", args.Values())
	// Output:
	// name=?,age=?
	// []interface {}{"joe", 62}
}

func TestMySQLVarArgs(t *testing.T) {
	args := MySQLVarArgs()
	if !args.IsEmpty() {
		t.Fatal("expected empty")
	}
	if s := args.ColumnsForUpdate(); s != "" {
		t.Fatalf("expected empty SET clause, got %q", s)
	}

	args.Append("col1", 123)
	if args.IsEmpty() {
		t.Fatal("expected non-empty")
	}
	if s := args.ColumnsForUpdate(); s != "col1=?" {
		t.Fatalf("got %q", s)
	}

	args.Append("col2", "foo")
	if s := args.ColumnsForUpdate(); s != "col1=?,col2=?" {
		t.Fatalf("got %q", s)
	}
	vals := args.Values()
	if len(vals) != 2 || vals[0] != 123 || vals[1] != "foo" {
		t.Fatalf("got %#v", vals)
	}
}

func TestMySQLArgs(t *testing.T) {
	if s := MySQLArgs(0); s != "" {
		t.Fatalf("got %q", s)
	}
	if s := MySQLArgs(1); s != "?" {
		t.Fatalf("got %q", s)
	}
	if s := MySQLArgs(3); s != "?,?,?" {
		t.Fatalf("got %q", s)
	}
}
