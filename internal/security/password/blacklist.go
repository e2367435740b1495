package password

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Blacklist es el set de passwords prohibidos, cargado una vez al arranque
// desde un wordlist (un password por línea, # comenta). Después del load es
// solo-lectura; un puntero nil no prohíbe nada.
type Blacklist struct {
	words map[string]struct{}
}

// LoadBlacklist lee el wordlist de path. Path vacío devuelve una blacklist
// vacía, no un error: el feature es opt-in.
func LoadBlacklist(path string) (*Blacklist, error) {
	bl := &Blacklist{words: make(map[string]struct{})}
	if strings.TrimSpace(path) == "" {
		return bl, nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("password: blacklist %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(strings.ToLower(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		bl.words[line] = struct{}{}
	}
	return bl, sc.Err()
}

// Contains matchea con la misma normalización del load: trim + lowercase.
func (b *Blacklist) Contains(plain string) bool {
	if b == nil {
		return false
	}
	_, ok := b.words[strings.ToLower(strings.TrimSpace(plain))]
	return ok
}
