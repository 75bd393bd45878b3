package blit

import (
	"strings"
	"testing"
)

func TestSourceEntryPoints(t *testing.T) {
	src := Source()
	for _, want := range []string{"fn vs_main", "fn fs_main", "@binding(0)", "@binding(1)"} {
		if !strings.Contains(src, want) {
			t.Errorf("blit shader missing %q", want)
		}
	}
}

func TestCompileSPIRV(t *testing.T) {
	code, err := compileSPIRV(Source())
	if err != nil {
		t.Fatalf("compileSPIRV: %v", err)
	}
	if len(code) == 0 {
		t.Fatal("empty SPIR-V")
	}
	const spirvMagic = 0x07230203
	if code[0] != spirvMagic {
		t.Errorf("magic = %#x, want %#x", code[0], spirvMagic)
	}
}

func TestShaderKindString(t *testing.T) {
	tests := []struct {
		kind ShaderKind
		want string
	}{
		{ShaderWGSL, "wgsl"},
		{ShaderSPIRV, "spirv"},
		{ShaderKind(9), "ShaderKind(9)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
