package password

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPolicy_ZeroValueAcceptsAll(t *testing.T) {
	var p Policy
	for _, pw := range []string{"", "x", "cualquier cosa"} {
		if ok, reasons := p.Validate(pw); !ok {
			t.Fatalf("policy vacía rechazó %q: %v", pw, reasons)
		}
	}
}

func TestPolicy_Reasons(t *testing.T) {
	p := Policy{MinLength: 8, RequireUpper: true, RequireDigit: true}

	ok, reasons := p.Validate("corta")
	if ok {
		t.Fatal("password débil aceptada")
	}
	want := map[string]bool{"too_short": true, "missing_upper": true, "missing_digit": true}
	if len(reasons) != len(want) {
		t.Fatalf("reasons = %v", reasons)
	}
	for _, r := range reasons {
		if !want[r] {
			t.Fatalf("reason inesperada %q en %v", r, reasons)
		}
	}

	if ok, reasons := p.Validate("Larga1suficiente"); !ok {
		t.Fatalf("password válida rechazada: %v", reasons)
	}
}

func TestBlacklist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordlist.txt")
	content := "# comunes\nhunter2\n  Password123  \n\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	bl, err := LoadBlacklist(path)
	if err != nil {
		t.Fatalf("LoadBlacklist: %v", err)
	}

	// normalización: trim + lowercase en ambas puntas
	for _, pw := range []string{"hunter2", "HUNTER2", " password123 "} {
		if !bl.Contains(pw) {
			t.Fatalf("%q debería estar prohibida", pw)
		}
	}
	if bl.Contains("# comunes") {
		t.Fatal("las líneas de comentario no son entradas")
	}
	if bl.Contains("libre") {
		t.Fatal("password fuera del wordlist prohibida")
	}
}

func TestBlacklist_EmptyPathAndNil(t *testing.T) {
	bl, err := LoadBlacklist("")
	if err != nil {
		t.Fatalf("path vacío: %v", err)
	}
	if bl.Contains("hunter2") {
		t.Fatal("blacklist vacía no prohíbe nada")
	}

	var nilBL *Blacklist
	if nilBL.Contains("hunter2") {
		t.Fatal("blacklist nil no prohíbe nada")
	}
}
