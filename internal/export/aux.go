package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	citationLine = regexp.MustCompile(`^\\citation\{(.*)\}`)
	bibdataLine  = regexp.MustCompile(`^\\bibdata\{(.*)\}`)
)

// ErrBibFileExists is returned by WriteBibFile when it may not overwrite.
var ErrBibFileExists = errors.New("bib file exists")

// Aux holds what bibsearch needs from a LaTeX .aux file.
type Aux struct {
	// Citations lists cited keys in order of first citation.
	Citations []string
	// BibData is the first \bibdata argument, without the .bib extension.
	BibData string
}

// AuxPath maps a LaTeX source or job name to its .aux file.
func AuxPath(file string) string {
	switch filepath.Ext(file) {
	case ".aux":
		return file
	case ".tex":
		return strings.TrimSuffix(file, ".tex") + ".aux"
	}
	return file + ".aux"
}

// ParseAux reads \citation and \bibdata lines.
func ParseAux(r io.Reader) (*Aux, error) {
	aux := &Aux{}
	seen := map[string]bool{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if m := citationLine.FindStringSubmatch(line); m != nil {
			for _, key := range strings.Split(m[1], ",") {
				key = strings.TrimSpace(key)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				aux.Citations = append(aux.Citations, key)
			}
			continue
		}
		if m := bibdataLine.FindStringSubmatch(line); m != nil && aux.BibData == "" {
			// Several databases may be listed; the first is written.
			aux.BibData = strings.TrimSpace(strings.Split(m[1], ",")[0])
		}
	}
	return aux, sc.Err()
}

// ReadAux parses the .aux file belonging to file.
func ReadAux(file string) (*Aux, error) {
	path := AuxPath(file)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	aux, err := ParseAux(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return aux, nil
}

// BibFilePath returns the .bib file an aux file's \bibdata names, relative
// to the aux file's directory.
func BibFilePath(auxPath, bibdata string) string {
	return filepath.Join(filepath.Dir(auxPath), bibdata+".bib")
}

// WriteBibFile writes BibTeX content to path. An existing file is only
// replaced when overwrite is set.
func WriteBibFile(path, content string, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrBibFileExists, path)
		}
		return err
	}
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
