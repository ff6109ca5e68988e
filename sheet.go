package xlstream

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSheetNameLength is the longest name a spreadsheet application accepts.
const MaxSheetNameLength = 31

const invalidSheetNameChars = `\/?*:[]`

// Sheet is the public identity of a worksheet: its position and its name.
type Sheet struct {
	index int
	name  string
	book  *nameRegistry
}

// Index returns the zero-based position of the sheet in the workbook.
func (s *Sheet) Index() int { return s.index }

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// SetName renames the sheet. The name must be 1 to 31 characters long, must
// not contain any of \ / ? * : [ ], must not start or end with a single quote
// and must be unique within the workbook.
func (s *Sheet) SetName(name string) error {
	if err := validateSheetName(name); err != nil {
		return err
	}
	if s.book != nil {
		if err := s.book.claim(s, name); err != nil {
			return err
		}
	}
	s.name = name
	return nil
}

func validateSheetName(name string) error {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return fmt.Errorf("%w: name is empty", ErrInvalidSheetName)
	case n > MaxSheetNameLength:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidSheetName, name, MaxSheetNameLength)
	case strings.ContainsAny(name, invalidSheetNameChars):
		return fmt.Errorf("%w: %q contains one of %s", ErrInvalidSheetName, name, invalidSheetNameChars)
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		return fmt.Errorf("%w: %q starts or ends with a single quote", ErrInvalidSheetName, name)
	}
	return nil
}

// nameRegistry keeps sheet names unique within one workbook.
type nameRegistry struct {
	owners map[string]*Sheet
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{owners: make(map[string]*Sheet)}
}

func (r *nameRegistry) claim(s *Sheet, name string) error {
	if owner, ok := r.owners[name]; ok && owner != s {
		return fmt.Errorf("%w: %q is already used by sheet %d", ErrInvalidSheetName, name, owner.index)
	}
	delete(r.owners, s.name)
	r.owners[name] = s
	return nil
}
