package sharedstrings

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

// SharedStringsPart is the container path of the shared string table.
const SharedStringsPart = "xl/sharedStrings.xml"

// Load streams a shared string table from r into a strategy chosen by f from
// the table's uniqueCount. Rich text runs of one entry are concatenated and
// phonetic hints are ignored. The returned cache is closed for additions.
// A nil f uses NewFactory().
func Load(r io.Reader, f *Factory) (CachingStrategy, error) {
	if f == nil {
		f = NewFactory()
	}
	l := &tableLoader{dec: xml.NewDecoder(r), factory: f}
	if err := l.run(); err != nil {
		if l.cache != nil {
			l.cache.ClearCache()
		}
		return nil, err
	}
	if l.cache == nil {
		l.cache = NewInMemoryStrategy(0)
	}
	if err := l.cache.CloseCache(); err != nil {
		l.cache.ClearCache()
		return nil, err
	}
	return l.cache, nil
}

// LoadFromXLSX loads the shared string table of the XLSX file at path. A file
// without a table gives an empty cache.
func LoadFromXLSX(path string, f *Factory) (CachingStrategy, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, ioError(fmt.Sprintf("open %q", path), err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if !strings.EqualFold(file.Name, SharedStringsPart) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, ioError(fmt.Sprintf("open %s", file.Name), err)
		}
		defer rc.Close()
		return Load(rc, f)
	}
	empty := NewInMemoryStrategy(0)
	empty.CloseCache()
	return empty, nil
}

type tableLoader struct {
	dec     *xml.Decoder
	factory *Factory
	cache   CachingStrategy

	index int
	inSI  bool
	inT   bool
	text  strings.Builder
}

func (l *tableLoader) run() error {
	for {
		tok, err := l.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse shared strings: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := l.start(t); err != nil {
				return err
			}
		case xml.EndElement:
			if err := l.end(t); err != nil {
				return err
			}
		case xml.CharData:
			if l.inT {
				l.text.Write(t)
			}
		}
	}
}

func (l *tableLoader) start(t xml.StartElement) error {
	switch t.Name.Local {
	case "sst":
		return l.createCache(uniqueCount(t))
	case "si":
		if l.cache == nil {
			if err := l.createCache(0); err != nil {
				return err
			}
		}
		l.inSI = true
		l.text.Reset()
	case "t":
		l.inT = l.inSI
	case "rPh", "phoneticPr":
		return l.dec.Skip()
	}
	return nil
}

func (l *tableLoader) end(t xml.EndElement) error {
	switch t.Name.Local {
	case "t":
		l.inT = false
	case "si":
		l.inSI = false
		if err := l.cache.AddStringForIndex(l.text.String(), l.index); err != nil {
			return err
		}
		l.index++
	}
	return nil
}

func (l *tableLoader) createCache(count int) error {
	if l.cache != nil {
		return nil
	}
	cache, err := l.factory.NewStrategy(count)
	if err != nil {
		return err
	}
	l.cache = cache
	return nil
}

// uniqueCount reads uniqueCount, falling back to count. Unknown gives 0.
func uniqueCount(t xml.StartElement) int {
	var count, unique int
	for _, a := range t.Attr {
		switch a.Name.Local {
		case "uniqueCount":
			unique, _ = strconv.Atoi(a.Value)
		case "count":
			count, _ = strconv.Atoi(a.Value)
		}
	}
	if unique > 0 {
		return unique
	}
	return count
}
