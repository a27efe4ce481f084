package gateway

import (
	"context"
	"testing"

	"github.com/petal-labs/toolgate/schema"
)

func nopHandler(context.Context, schema.Params) (any, error) {
	return map[string]string{}, nil
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(ToolDescriptor{Name: "query"}, nopHandler); err != nil {
		t.Fatalf("first Register = %v, want nil", err)
	}
	err := reg.Register(ToolDescriptor{Name: "query"}, nopHandler)
	if err == nil {
		t.Fatal("duplicate Register = nil, want error")
	}
}

func TestRegisterRejectsEmptyNameAndNilHandler(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(ToolDescriptor{Name: "  "}, nopHandler); err == nil {
		t.Error("blank name Register = nil, want error")
	}
	if err := reg.Register(ToolDescriptor{Name: "query"}, nil); err == nil {
		t.Error("nil handler Register = nil, want error")
	}
}

func TestDescriptorsAreNameSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"query", "describe_table", "list_tables"} {
		if err := reg.Register(ToolDescriptor{Name: name}, nopHandler); err != nil {
			t.Fatalf("Register(%s) = %v", name, err)
		}
	}

	descs := reg.Descriptors()
	want := []string{"describe_table", "list_tables", "query"}
	if len(descs) != len(want) {
		t.Fatalf("descriptor count = %d, want %d", len(descs), len(want))
	}
	for i, name := range want {
		if descs[i].Name != name {
			t.Errorf("descs[%d].Name = %s, want %s", i, descs[i].Name, name)
		}
	}
}
